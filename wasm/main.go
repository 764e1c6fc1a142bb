//go:build js && wasm

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"net/url"
	"strings"
	"syscall/js"

	"tractor.dev/toolkit-go/engine/cli"
	"tractor.dev/v86boot/internal/slogger"
	"tractor.dev/v86boot/media"
	"tractor.dev/v86boot/session"
	"tractor.dev/v86boot/site"
	"tractor.dev/v86boot/vm"
	v86 "tractor.dev/v86boot/vm/v86"
	"tractor.dev/v86boot/vmlog"
	"tractor.dev/v86boot/web/bridge"
	"tractor.dev/v86boot/web/dom"
	"tractor.dev/v86boot/web/jsutil"
)

func main() {
	log.SetFlags(log.Lshortfile)
	ctx := context.Background()

	query, _ := url.ParseQuery(strings.TrimPrefix(js.Global().Get("location").Get("search").String(), "?"))
	level := slog.LevelInfo
	if query.Get("debug") != "" {
		level = slog.LevelDebug
	}
	slogger.Use(level)

	cfg := loadConfig(ctx)
	for key, field := range map[string]*string{"assets": &cfg.Assets, "mirror": &cfg.Mirror, "tty": &cfg.TTY} {
		if v := query.Get(key); v != "" {
			*field = v
		}
	}
	assets := vm.Assets{BaseURL: cfg.Assets}

	ui := dom.New()
	logs := vmlog.New(ui.Log)
	ctl := session.New(session.Options{
		Factory:  v86.New,
		Log:      logs,
		Settings: ui.Settings,
		Assets:   assets,
		Screen:   ui.Screen.Value,
	})
	loader := &media.Loader{
		Slots:   ctl.Media,
		Log:     logs,
		OnCDROM: func() { ui.DropHint.Show(false) },
	}
	if len(cfg.Defaults) > 0 {
		if s, err := vm.ParseFlags(cfg.Defaults); err != nil {
			slog.Warn("page defaults", "err", err)
		} else {
			ui.Apply(s)
		}
	}
	ui.Bind(ctx, ctl, loader)
	ui.BindLog(logs)
	ui.Focus()

	js.Global().Set("v86boot", map[string]any{
		"ctl": jsutil.Func(func(_ js.Value, args []js.Value) {
			var line []string
			for _, a := range args {
				line = append(line, strings.Fields(a.String())...)
			}
			var out bytes.Buffer
			if err := cli.Execute(ctx, ctl.Command(&out), line); err != nil {
				slog.Error("ctl", "err", err)
			}
			if out.Len() > 0 {
				log.Print(out.String())
			}
		}),
	})

	if err := jsutil.LoadScript(ctx, assets.Library(), "V86"); err != nil {
		slog.Error("load engine", "url", assets.Library(), "err", err)
	}

	if cfg.Mirror != "" {
		go func() {
			if err := bridge.MirrorLog(ctx, logs, socketURL(cfg.Mirror)); err != nil {
				slog.Warn("log mirror", "err", err)
			}
		}()
	}
	if cfg.TTY != "" {
		go func() {
			if err := bridge.Serial(ctx, ctl, socketURL(cfg.TTY)); err != nil {
				slog.Warn("tty", "err", err)
			}
		}()
	}
	for _, m := range cfg.Media {
		slot, ok := media.ParseSlot(m.Slot)
		if !ok {
			slog.Warn("unknown media slot", "slot", m.Slot)
			continue
		}
		src := jsutil.Fetched{URL: m.URL, Filename: m.Name, Length: m.Size}
		go loader.Load(ctx, slot, src, media.ViaPreload)
	}

	select {}
}

// loadConfig reads the dev server's page configuration. A page hosted
// without it runs with defaults.
func loadConfig(ctx context.Context) site.Config {
	var cfg site.Config
	b, err := jsutil.Fetched{URL: site.ConfigPath}.ReadAll(ctx)
	if err != nil {
		slog.Debug("no page config", "err", err)
		return cfg
	}
	if err := json.NewDecoder(bytes.NewReader(b)).Decode(&cfg); err != nil {
		slog.Warn("page config", "err", err)
	}
	return cfg
}

// socketURL resolves a path against the page location as a ws(s) URL.
func socketURL(path string) string {
	if strings.HasPrefix(path, "ws://") || strings.HasPrefix(path, "wss://") {
		return path
	}
	loc := js.Global().Get("location")
	scheme := "ws://"
	if loc.Get("protocol").String() == "https:" {
		scheme = "wss://"
	}
	return scheme + loc.Get("host").String() + path
}
