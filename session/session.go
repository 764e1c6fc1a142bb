// Package session owns the single emulator session of the page and the
// media attached to it.
package session

import (
	"fmt"
	"log/slog"
	"sync"

	"tractor.dev/v86boot/media"
	"tractor.dev/v86boot/vm"
	"tractor.dev/v86boot/vmlog"
)

// Controller creates, drives and replaces the page's emulator session.
// At most one engine exists at a time.
type Controller struct {
	factory  vm.Factory
	log      vmlog.Sink
	settings func() vm.Settings
	assets   vm.Assets
	screen   any

	// Media holds the images attached to the next constructed session.
	Media *media.Slots

	mu     sync.Mutex
	engine vm.Engine
	cancel func()

	serialMu sync.Mutex
	serial   func(byte)
}

type Options struct {
	Factory vm.Factory
	Log     vmlog.Sink

	// Settings reads the current control values. Nil means defaults.
	Settings func() vm.Settings
	Assets   vm.Assets

	// Screen is passed through to the engine as its render target.
	Screen any

	// Serial receives guest serial output. Serial output is never logged.
	Serial func(byte)
}

func New(opts Options) *Controller {
	settings := opts.Settings
	if settings == nil {
		settings = func() vm.Settings { return vm.Settings{} }
	}
	return &Controller{
		factory:  opts.Factory,
		log:      opts.Log,
		settings: settings,
		assets:   opts.Assets,
		screen:   opts.Screen,
		serial:   opts.Serial,
		Media:    &media.Slots{},
	}
}

// SetSerial replaces the serial output hook. It applies to sessions
// constructed afterwards as well as the live one.
func (c *Controller) SetSerial(fn func(byte)) {
	c.serialMu.Lock()
	defer c.serialMu.Unlock()
	c.serial = fn
}

// StartOrCreate runs the existing session, or constructs one from the
// current settings and media first. An existing session keeps the
// configuration it was created with.
func (c *Controller) StartOrCreate() error {
	e, err := c.ensure()
	if err != nil {
		return err
	}
	if c.Media.Empty() {
		c.log.Append("No ISO/HDD selected yet.")
	}
	if err := e.Run(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	c.log.Append("VM started.")
	return nil
}

// Recreate stops and discards any existing session and constructs a new
// one without running it.
func (c *Controller) Recreate() error {
	c.mu.Lock()
	old, cancel := c.engine, c.cancel
	c.engine, c.cancel = nil, nil
	c.mu.Unlock()

	if old != nil {
		if err := old.Stop(); err != nil {
			slog.Debug("stop replaced session", "err", err)
		}
		cancel()
	}
	_, err := c.ensure()
	return err
}

// Restart resets the existing session in place. Without a session it does
// nothing.
func (c *Controller) Restart() error {
	e := c.current()
	if e == nil {
		return nil
	}
	if err := e.Restart(); err != nil {
		return fmt.Errorf("restart: %w", err)
	}
	c.log.Append("VM reset.")
	return nil
}

// Terminate stops the existing session. The session stays current and can
// be run again; only Recreate discards it.
func (c *Controller) Terminate() error {
	e := c.current()
	if e == nil {
		return nil
	}
	if err := e.Stop(); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	c.log.Append("VM stopped.")
	return nil
}

// SendSerial writes p to the live session's serial port, if any.
func (c *Controller) SendSerial(p []byte) error {
	e := c.current()
	if e == nil {
		return nil
	}
	return e.SendSerial(p)
}

type Status struct {
	Session bool
	CDROM   string
	HDA     string
}

func (c *Controller) Status() Status {
	st := Status{Session: c.current() != nil}
	if img := c.Media.Get(media.CDROM); img != nil {
		st.CDROM = img.Name
	}
	if img := c.Media.Get(media.HDA); img != nil {
		st.HDA = img.Name
	}
	return st
}

func (c *Controller) current() vm.Engine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine
}

// ensure returns the current engine, constructing it if there is none.
func (c *Controller) ensure() (vm.Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine != nil {
		return c.engine, nil
	}

	snap := vm.Build(c.settings())
	var m vm.Media
	if img := c.Media.Get(media.CDROM); img != nil {
		m.CDROM = img.Data
	}
	if img := c.Media.Get(media.HDA); img != nil {
		m.HDA = img.Data
	}
	e, err := c.factory(snap.Options(c.assets, m, c.screen))
	if err != nil {
		return nil, fmt.Errorf("create emulator: %w", err)
	}
	slog.Debug("session created", "memory", snap.MemorySize, "vga_memory", snap.VGAMemorySize, "acpi", snap.ACPI, "smp", snap.SMP, "fallback", snap.Fallback)

	c.engine = e
	c.cancel = e.Subscribe(c.handle)
	return e, nil
}

// handle translates engine events into log entries.
func (c *Controller) handle(ev vm.Event) {
	switch ev := ev.(type) {
	case vm.Ready:
		c.log.Append("Emulator ready.")
	case vm.DownloadProgress:
		if pct, ok := ev.Percent(); ok {
			c.log.Append(fmt.Sprintf("Downloading %s: %d%%", ev.FileName, pct))
		}
	case vm.SerialOutput:
		c.serialMu.Lock()
		serial := c.serial
		c.serialMu.Unlock()
		if serial != nil {
			serial(ev.Char)
		}
	case vm.Exit:
		c.log.Append(fmt.Sprintf("VM exited: %d", ev.Code))
	case vm.Crash:
		c.log.Append("VM crashed")
	}
}
