//go:build js && wasm

// Package v86 binds the vm.Engine contract to the global V86 constructor.
package v86

import (
	"fmt"
	"log"
	"sync"
	"syscall/js"

	"tractor.dev/v86boot/vm"
	"tractor.dev/v86boot/web/jsutil"
)

type VM struct {
	value js.Value

	mu   sync.Mutex
	subs []*subscription
}

// subscription delivers events to fn in emit order on its own goroutine.
type subscription struct {
	fn    func(vm.Event)
	funcs map[string]js.Func

	mu    sync.Mutex
	queue []vm.Event
	wake  chan struct{}
	done  chan struct{}
}

func (s *subscription) push(ev vm.Event) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) loop() {
	for {
		select {
		case <-s.wake:
		case <-s.done:
			return
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			ev := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			s.deliver(ev)
		}
	}
}

func (s *subscription) deliver(ev vm.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Println("v86 listener:", ev.EventName(), r)
		}
	}()
	s.fn(ev)
}

// New constructs a V86 instance. It satisfies vm.Factory. A constructor
// exception is returned as an error.
func New(opts vm.Options) (_ vm.Engine, err error) {
	ctor := js.Global().Get("V86")
	if !ctor.Truthy() {
		return nil, vm.ErrNoEngine
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("v86: %v", r)
		}
	}()
	return &VM{value: ctor.New(toJS(opts))}, nil
}

func toJS(opts vm.Options) map[string]any {
	m := opts.Map()
	for _, drive := range []string{"cdrom", "hda"} {
		d, ok := m[drive].(map[string]any)
		if !ok {
			continue
		}
		d["buffer"] = jsutil.Uint8Array(d["buffer"].([]byte)).Get("buffer")
	}
	if _, ok := opts.Screen.(js.Value); !ok {
		delete(m, "screen_container")
	}
	return m
}

func (r *VM) Run() error     { return r.call("run") }
func (r *VM) Stop() error    { return r.call("stop") }
func (r *VM) Restart() error { return r.call("restart") }

func (r *VM) SendSerial(p []byte) error {
	return r.call("serial_send_bytes", 0, jsutil.Uint8Array(p))
}

func (r *VM) call(method string, args ...any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("v86 %s: %v", method, rec)
		}
	}()
	r.value.Call(method, args...)
	return nil
}

func (r *VM) Subscribe(fn func(vm.Event)) (cancel func()) {
	s := &subscription{
		fn:    fn,
		funcs: make(map[string]js.Func),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go s.loop()
	s.listen(r.value, "emulator-ready", func(args []js.Value) vm.Event {
		return vm.Ready{}
	})
	s.listen(r.value, "download-progress", func(args []js.Value) vm.Event {
		ev := vm.DownloadProgress{}
		if len(args) == 0 || !args[0].Truthy() {
			return ev
		}
		if name := args[0].Get("file_name"); name.Type() == js.TypeString {
			ev.FileName = name.String()
		}
		ev.Loaded = number(args[0].Get("loaded"))
		ev.Total = number(args[0].Get("total"))
		return ev
	})
	s.listen(r.value, "serial0-output-char", func(args []js.Value) vm.Event {
		ev := vm.SerialOutput{}
		if len(args) > 0 {
			switch args[0].Type() {
			case js.TypeString:
				if str := args[0].String(); len(str) > 0 {
					ev.Char = str[0]
				}
			case js.TypeNumber:
				ev.Char = byte(args[0].Int())
			}
		}
		return ev
	})
	s.listen(r.value, "exit", func(args []js.Value) vm.Event {
		return vm.Exit{Code: int(number(arg(args)))}
	})
	s.listen(r.value, "crash", func(args []js.Value) vm.Event {
		return vm.Crash{}
	})

	r.mu.Lock()
	r.subs = append(r.subs, s)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			for i, sub := range r.subs {
				if sub == s {
					r.subs = append(r.subs[:i], r.subs[i+1:]...)
					break
				}
			}
			r.mu.Unlock()
			close(s.done)
			for name, f := range s.funcs {
				r.value.Call("remove_listener", name, f)
				f.Release()
			}
		})
	}
}

func (s *subscription) listen(v js.Value, name string, decode func([]js.Value) vm.Event) {
	f := js.FuncOf(func(this js.Value, args []js.Value) any {
		s.push(decode(args))
		return nil
	})
	s.funcs[name] = f
	v.Call("add_listener", name, f)
}

func arg(args []js.Value) js.Value {
	if len(args) == 0 {
		return js.Undefined()
	}
	return args[0]
}

func number(v js.Value) int64 {
	if v.Type() != js.TypeNumber {
		return 0
	}
	return int64(v.Float())
}
