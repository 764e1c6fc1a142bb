//go:build js && wasm

package dom

import (
	"syscall/js"

	"tractor.dev/v86boot/web/jsutil"
)

// Element is a thin wrapper over a DOM element.
type Element struct {
	js.Value
}

func ByID(id string) Element {
	return Element{js.Global().Get("document").Call("getElementById", id)}
}

func (e Element) Exists() bool {
	return e.Truthy()
}

func (e Element) Text() string {
	if !e.Exists() {
		return ""
	}
	return e.Get("value").String()
}

func (e Element) Checked() bool {
	return e.Exists() && e.Get("checked").Bool()
}

func (e Element) Show(visible bool) {
	if !e.Exists() {
		return
	}
	display := "none"
	if visible {
		display = ""
	}
	e.Get("style").Set("display", display)
}

func (e Element) ToggleClass(name string, on bool) {
	if !e.Exists() {
		return
	}
	e.Get("classList").Call("toggle", name, on)
}

// On registers a handler that runs on its own goroutine.
func (e Element) On(event string, fn func(ev js.Value)) {
	if !e.Exists() {
		return
	}
	e.Call("addEventListener", event, jsutil.Func(func(_ js.Value, args []js.Value) {
		fn(args[0])
	}))
}

// OnSync registers a handler that runs inside the JS callback. fn must not
// block; it is used where the event has to be handled before returning,
// such as preventDefault on drag events.
func (e Element) OnSync(event string, fn func(ev js.Value)) {
	if !e.Exists() {
		return
	}
	e.Call("addEventListener", event, js.FuncOf(func(_ js.Value, args []js.Value) any {
		fn(args[0])
		return nil
	}))
}

// Panel is a vmlog.Panel over a textarea.
type Panel struct {
	Element
}

func (p Panel) AppendText(s string) {
	if !p.Exists() {
		return
	}
	p.Set("value", p.Get("value").String()+s)
}

func (p Panel) ScrollToEnd() {
	if !p.Exists() {
		return
	}
	p.Set("scrollTop", p.Get("scrollHeight"))
}
