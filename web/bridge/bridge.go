//go:build js && wasm

// Package bridge connects the page to the dev server's log mirror and
// serial tty endpoints over WebSockets.
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"syscall/js"

	"tractor.dev/v86boot/session"
	"tractor.dev/v86boot/vmlog"
	"tractor.dev/v86boot/web/jsutil"
)

type Socket struct {
	js.Value
}

// Dial opens a WebSocket and waits for it to connect.
func Dial(ctx context.Context, url string) (*Socket, error) {
	ws := js.Global().Get("WebSocket").New(url)
	ws.Set("binaryType", "arraybuffer")

	opened := make(chan struct{}, 1)
	failed := make(chan struct{}, 1)
	onOpen := js.FuncOf(func(this js.Value, args []js.Value) any {
		opened <- struct{}{}
		return nil
	})
	onError := js.FuncOf(func(this js.Value, args []js.Value) any {
		failed <- struct{}{}
		return nil
	})
	defer onOpen.Release()
	defer onError.Release()
	ws.Call("addEventListener", "open", onOpen)
	ws.Call("addEventListener", "error", onError)
	defer ws.Call("removeEventListener", "open", onOpen)
	defer ws.Call("removeEventListener", "error", onError)

	select {
	case <-opened:
		return &Socket{ws}, nil
	case <-failed:
		return nil, errors.New("websocket: failed to connect to " + url)
	case <-ctx.Done():
		ws.Call("close")
		return nil, ctx.Err()
	}
}

// Write sends p as one binary message.
func (s *Socket) Write(p []byte) (int, error) {
	if s.Get("readyState").Int() != 1 {
		return 0, errors.New("websocket: not open")
	}
	s.Call("send", jsutil.Uint8Array(p))
	return len(p), nil
}

// OnMessage calls fn with the payload of each binary or text message.
func (s *Socket) OnMessage(fn func([]byte)) {
	s.Call("addEventListener", "message", js.FuncOf(func(this js.Value, args []js.Value) any {
		data := args[0].Get("data")
		var b []byte
		if data.Type() == js.TypeString {
			b = []byte(data.String())
		} else {
			b = jsutil.Bytes(data)
		}
		go fn(b)
		return nil
	}))
}

func (s *Socket) Close() error {
	s.Call("close")
	return nil
}

// MirrorLog streams every new log entry to url as CBOR frames until the
// socket closes.
func MirrorLog(ctx context.Context, log *vmlog.Log, url string) error {
	sock, err := Dial(ctx, url)
	if err != nil {
		return err
	}
	var closed atomic.Bool
	log.Subscribe(func(e vmlog.Entry) {
		if closed.Load() {
			return
		}
		b, err := vmlog.MarshalEntry(e)
		if err != nil {
			slog.Error("log mirror", "err", err)
			return
		}
		if _, err := sock.Write(b); err != nil {
			slog.Debug("log mirror closed", "err", err)
			closed.Store(true)
		}
	})
	return nil
}

// Serial bridges the controller's serial port to a tty endpoint. Guest
// output is sent as it arrives, socket messages are typed into the guest.
func Serial(ctx context.Context, ctl *session.Controller, url string) error {
	sock, err := Dial(ctx, url)
	if err != nil {
		return err
	}
	sock.OnMessage(func(b []byte) {
		if err := ctl.SendSerial(b); err != nil {
			slog.Error("tty", "err", err)
		}
	})
	ctl.SetSerial(func(c byte) {
		sock.Write([]byte{c})
	})
	return nil
}
