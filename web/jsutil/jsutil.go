//go:build js && wasm

package jsutil

import (
	"context"
	"errors"
	"fmt"
	"syscall/js"
)

// AwaitErr blocks until promise settles. It must not be called from a JS
// callback goroutine.
func AwaitErr(ctx context.Context, promise js.Value) (js.Value, error) {
	resolved := make(chan js.Value, 1)
	rejected := make(chan js.Value, 1)
	onResolve := js.FuncOf(func(this js.Value, args []js.Value) any {
		resolved <- arg(args)
		return nil
	})
	onReject := js.FuncOf(func(this js.Value, args []js.Value) any {
		rejected <- arg(args)
		return nil
	})
	defer onResolve.Release()
	defer onReject.Release()
	promise.Call("then", onResolve, onReject)

	select {
	case v := <-resolved:
		return v, nil
	case v := <-rejected:
		return js.Undefined(), js.Error{Value: v}
	case <-ctx.Done():
		return js.Undefined(), ctx.Err()
	}
}

func arg(args []js.Value) js.Value {
	if len(args) == 0 {
		return js.Undefined()
	}
	return args[0]
}

// Bytes copies an ArrayBuffer or typed array into a Go slice.
func Bytes(v js.Value) []byte {
	u8 := js.Global().Get("Uint8Array").New(v)
	b := make([]byte, u8.Length())
	js.CopyBytesToGo(b, u8)
	return b
}

// Uint8Array copies b into a new JS Uint8Array.
func Uint8Array(b []byte) js.Value {
	u8 := js.Global().Get("Uint8Array").New(len(b))
	js.CopyBytesToJS(u8, b)
	return u8
}

// Func wraps fn so it runs on its own goroutine. JS event handlers must
// return without blocking; the returned js.Func does.
func Func(fn func(this js.Value, args []js.Value)) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) any {
		go fn(this, args)
		return nil
	})
}

// File is a media.Source backed by a DOM File.
type File struct {
	js.Value
}

func (f File) Name() string { return f.Get("name").String() }
func (f File) Size() int64  { return int64(f.Get("size").Float()) }

func (f File) ReadAll(ctx context.Context) ([]byte, error) {
	buf, err := AwaitErr(ctx, f.Call("arrayBuffer"))
	if err != nil {
		return nil, err
	}
	return Bytes(buf), nil
}

// FirstFile returns the first entry of a FileList, or false if it is empty.
func FirstFile(files js.Value) (File, bool) {
	if files.IsUndefined() || files.IsNull() || files.Length() == 0 {
		return File{}, false
	}
	return File{files.Index(0)}, true
}

// Fetched is a media.Source read with fetch.
type Fetched struct {
	URL      string
	Filename string
	Length   int64
}

func (f Fetched) Name() string { return f.Filename }
func (f Fetched) Size() int64  { return f.Length }

func (f Fetched) ReadAll(ctx context.Context) ([]byte, error) {
	resp, err := Fetch(ctx, f.URL)
	if err != nil {
		return nil, err
	}
	buf, err := AwaitErr(ctx, resp.Call("arrayBuffer"))
	if err != nil {
		return nil, err
	}
	return Bytes(buf), nil
}

// Fetch performs a GET and returns the Response once headers arrive.
// Non-2xx statuses are errors.
func Fetch(ctx context.Context, url string) (js.Value, error) {
	fetch := js.Global().Get("fetch")
	if fetch.IsUndefined() {
		return js.Undefined(), errors.New("fetch is not available")
	}
	resp, err := AwaitErr(ctx, fetch.Invoke(url))
	if err != nil {
		return js.Undefined(), err
	}
	if !resp.Get("ok").Bool() {
		return js.Undefined(), fmt.Errorf("fetch %s: HTTP %d %s", url, resp.Get("status").Int(), resp.Get("statusText").String())
	}
	return resp, nil
}
