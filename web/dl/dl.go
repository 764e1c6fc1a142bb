//go:build js && wasm

// Package dl saves data to the user's machine through a browser download.
package dl

import "syscall/js"

// Download offers data as a file named filename.
func Download(data []byte, filename, mime string) {
	if mime == "" {
		mime = "application/octet-stream"
	}
	buf := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(buf, data)
	blob := js.Global().Get("Blob").New([]any{buf}, map[string]any{"type": mime})
	url := js.Global().Get("URL").Call("createObjectURL", blob)
	defer js.Global().Get("URL").Call("revokeObjectURL", url)

	a := js.Global().Get("document").Call("createElement", "a")
	a.Set("href", url)
	a.Set("download", filename)
	a.Call("click")
}
