//go:build js && wasm

package jsutil

import (
	"context"
	"syscall/js"
)

// LoadScript appends a script element for url and waits for it to load.
// It does nothing if global is already defined.
func LoadScript(ctx context.Context, url, global string) error {
	if global != "" && js.Global().Get(global).Truthy() {
		return nil
	}
	var onError js.Func
	executor := js.FuncOf(func(this js.Value, args []js.Value) any {
		resolve, reject := args[0], args[1]
		doc := js.Global().Get("document")
		script := doc.Call("createElement", "script")
		script.Set("src", url)
		script.Set("onload", resolve)
		onError = js.FuncOf(func(this js.Value, args []js.Value) any {
			reject.Invoke(js.Global().Get("Error").New("failed to load script: " + url))
			return nil
		})
		script.Set("onerror", onError)
		doc.Get("head").Call("appendChild", script)
		return nil
	})
	defer executor.Release()
	promise := js.Global().Get("Promise").New(executor)
	defer onError.Release()
	_, err := AwaitErr(ctx, promise)
	return err
}
