// Package site holds the page served by the dev server and the runtime
// configuration it publishes to the page.
package site

import "embed"

//go:embed index.html style.css boot.js
var Dir embed.FS

// ConfigPath is where the dev server publishes Config. When the page is
// hosted elsewhere the request fails and the page runs with defaults.
const ConfigPath = "/.config"

const (
	MirrorPath = "/.log"
	TTYPath    = "/.tty"
)

// Config tells the page where to find engine assets and host bridges.
// Empty fields disable the corresponding feature.
type Config struct {
	Assets string       `json:"assets,omitempty"`
	Mirror string       `json:"mirror,omitempty"`
	TTY    string       `json:"tty,omitempty"`
	Media  []MediaEntry `json:"media,omitempty"`

	// Defaults are settings flags (see vm.ParseFlags) applied to the
	// page controls on load.
	Defaults []string `json:"defaults,omitempty"`
}

// MediaEntry describes an image published for preloading.
type MediaEntry struct {
	Slot string `json:"slot"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}
