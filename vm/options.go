package vm

import "strings"

const DefaultAssetsURL = "https://cdn.jsdelivr.net/npm/v86/"

// Assets locates the engine runtime and firmware images.
type Assets struct {
	BaseURL string
}

func (a Assets) url(name string) string {
	base := a.BaseURL
	if base == "" {
		base = DefaultAssetsURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + name
}

// WasmPath returns the engine runtime URL, selecting the fallback build when asked.
func (a Assets) WasmPath(fallback bool) string {
	if fallback {
		return a.url("build/v86-fallback.wasm")
	}
	return a.url("build/v86.wasm")
}

// Library returns the URL of the engine's JavaScript library.
func (a Assets) Library() string { return a.url("build/libv86.js") }

func (a Assets) BIOS() string    { return a.url("bios/seabios.bin") }
func (a Assets) VGABIOS() string { return a.url("bios/vgabios.bin") }

// Media are the disk images attached at construction. Nil means absent.
type Media struct {
	CDROM []byte
	HDA   []byte
}

// Options are the construction options handed to an engine Factory.
type Options struct {
	WasmPath      string
	MemorySize    int64
	VGAMemorySize int64
	ACPI          bool
	BIOS          string
	VGABIOS       string
	CDROM         []byte
	HDA           []byte

	// Screen is the engine's render target. It is opaque here and only
	// interpreted by the engine binding.
	Screen any
}

// Options returns the engine construction options for this snapshot.
func (s Snapshot) Options(assets Assets, media Media, screen any) Options {
	return Options{
		WasmPath:      assets.WasmPath(s.Fallback),
		MemorySize:    s.MemorySize,
		VGAMemorySize: s.VGAMemorySize,
		ACPI:          s.ACPI,
		BIOS:          assets.BIOS(),
		VGABIOS:       assets.VGABIOS(),
		CDROM:         media.CDROM,
		HDA:           media.HDA,
		Screen:        screen,
	}
}

// Map renders the options with the engine's option names. Media buffers
// are left as byte slices; bindings convert them to their native form.
func (o Options) Map() map[string]any {
	m := map[string]any{
		"wasm_path":       o.WasmPath,
		"memory_size":     o.MemorySize,
		"vga_memory_size": o.VGAMemorySize,
		"acpi":            o.ACPI,
		"bios":            map[string]any{"url": o.BIOS},
		"vga_bios":        map[string]any{"url": o.VGABIOS},
		"autostart":       false,
	}
	if o.Screen != nil {
		m["screen_container"] = o.Screen
	}
	if o.CDROM != nil {
		m["cdrom"] = map[string]any{"buffer": o.CDROM}
	}
	if o.HDA != nil {
		m["hda"] = map[string]any{"buffer": o.HDA}
	}
	return m
}
