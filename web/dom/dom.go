//go:build js && wasm

// Package dom binds the page controls to a session controller.
package dom

import (
	"context"
	"log/slog"
	"syscall/js"

	"tractor.dev/v86boot/media"
	"tractor.dev/v86boot/session"
	"tractor.dev/v86boot/vm"
	"tractor.dev/v86boot/vmlog"
	"tractor.dev/v86boot/web/dl"
	"tractor.dev/v86boot/web/jsutil"
)

// UI holds the page elements the controller is driven from.
type UI struct {
	Screen   Element
	DropHint Element
	Log      Panel

	isoInput   Element
	hddInput   Element
	mem        Element
	vgamem     Element
	acpi       Element
	smp        Element
	fallback   Element
	start      Element
	reset      Element
	stop       Element
	fullscreen Element
	saveLog    Element
}

func New() *UI {
	return &UI{
		Screen:     ByID("screen"),
		DropHint:   ByID("dropHint"),
		Log:        Panel{ByID("log")},
		isoInput:   ByID("isoInput"),
		hddInput:   ByID("hddInput"),
		mem:        ByID("mem"),
		vgamem:     ByID("vgamem"),
		acpi:       ByID("acpi"),
		smp:        ByID("smp"),
		fallback:   ByID("wasmFallback"),
		start:      ByID("btnStart"),
		reset:      ByID("btnReset"),
		stop:       ByID("btnStop"),
		fullscreen: ByID("btnFullscreen"),
		saveLog:    ByID("btnSaveLog"),
	}
}

// Settings reads the current control values.
func (u *UI) Settings() vm.Settings {
	return vm.Settings{
		Memory:    u.mem.Text(),
		VGAMemory: u.vgamem.Text(),
		ACPI:      u.acpi.Checked(),
		SMP:       u.smp.Checked(),
		Fallback:  u.fallback.Checked(),
	}
}

// Apply sets the controls to s. Empty sizes leave the control unchanged.
func (u *UI) Apply(s vm.Settings) {
	if s.Memory != "" && u.mem.Exists() {
		u.mem.Set("value", s.Memory)
	}
	if s.VGAMemory != "" && u.vgamem.Exists() {
		u.vgamem.Set("value", s.VGAMemory)
	}
	boxes := []struct {
		el Element
		on bool
	}{{u.acpi, s.ACPI}, {u.smp, s.SMP}, {u.fallback, s.Fallback}}
	for _, b := range boxes {
		if b.el.Exists() {
			b.el.Set("checked", b.on)
		}
	}
}

// Bind registers the page event handlers.
func (u *UI) Bind(ctx context.Context, ctl *session.Controller, loader *media.Loader) {
	u.isoInput.On("change", func(ev js.Value) {
		if f, ok := jsutil.FirstFile(ev.Get("target").Get("files")); ok {
			loader.Load(ctx, media.CDROM, f, media.ViaPicker)
		}
	})
	u.hddInput.On("change", func(ev js.Value) {
		if f, ok := jsutil.FirstFile(ev.Get("target").Get("files")); ok {
			loader.Load(ctx, media.HDA, f, media.ViaPicker)
		}
	})

	u.Screen.OnSync("dragover", func(ev js.Value) {
		ev.Call("preventDefault")
		u.Screen.ToggleClass("drag", true)
	})
	u.Screen.OnSync("dragleave", func(ev js.Value) {
		u.Screen.ToggleClass("drag", false)
	})
	u.Screen.OnSync("drop", func(ev js.Value) {
		ev.Call("preventDefault")
		u.Screen.ToggleClass("drag", false)
		f, ok := jsutil.FirstFile(ev.Get("dataTransfer").Get("files"))
		if !ok {
			return
		}
		go loader.Drop(ctx, f)
	})

	u.start.On("click", func(js.Value) {
		if err := ctl.StartOrCreate(); err != nil {
			slog.Error("start", "err", err)
		}
	})
	u.reset.On("click", func(js.Value) {
		if err := ctl.Restart(); err != nil {
			slog.Error("reset", "err", err)
		}
	})
	u.stop.On("click", func(js.Value) {
		if err := ctl.Terminate(); err != nil {
			slog.Error("stop", "err", err)
		}
	})
	u.fullscreen.OnSync("click", func(js.Value) {
		if !u.Screen.Exists() || !u.Screen.Get("requestFullscreen").Truthy() {
			return
		}
		u.Screen.Call("requestFullscreen")
	})
}

// BindLog lets the user save the log panel contents as a file.
func (u *UI) BindLog(l *vmlog.Log) {
	u.saveLog.OnSync("click", func(js.Value) {
		dl.Download([]byte(l.Text()), "v86boot.log", "text/plain")
	})
}

// Focus gives the screen keyboard focus.
func (u *UI) Focus() {
	if u.Screen.Exists() {
		u.Screen.Call("focus")
	}
}
