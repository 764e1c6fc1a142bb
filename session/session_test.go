package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"tractor.dev/toolkit-go/engine/cli"
	"tractor.dev/v86boot/media"
	"tractor.dev/v86boot/vm"
)

type fakeEngine struct {
	opts     vm.Options
	runs     int
	stops    int
	restarts int
	stopErr  error
	sent     []byte
	subs     map[int]func(vm.Event)
	nextSub  int
}

func (e *fakeEngine) Run() error     { e.runs++; return nil }
func (e *fakeEngine) Restart() error { e.restarts++; return nil }
func (e *fakeEngine) Stop() error    { e.stops++; return e.stopErr }

func (e *fakeEngine) SendSerial(p []byte) error {
	e.sent = append(e.sent, p...)
	return nil
}

func (e *fakeEngine) Subscribe(fn func(vm.Event)) func() {
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	return func() { delete(e.subs, id) }
}

func (e *fakeEngine) emit(ev vm.Event) {
	for i := 0; i < e.nextSub; i++ {
		if fn, ok := e.subs[i]; ok {
			fn(ev)
		}
	}
}

type fakeFactory struct {
	engines []*fakeEngine
	err     error
}

func (f *fakeFactory) New(opts vm.Options) (vm.Engine, error) {
	if f.err != nil {
		return nil, f.err
	}
	e := &fakeEngine{opts: opts, subs: make(map[int]func(vm.Event))}
	f.engines = append(f.engines, e)
	return e, nil
}

type recordLog struct {
	lines []string
}

func (r *recordLog) Append(msg string) { r.lines = append(r.lines, msg) }

func (r *recordLog) count(substr string) int {
	n := 0
	for _, l := range r.lines {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}

func setup(settings *vm.Settings) (*Controller, *fakeFactory, *recordLog) {
	f := &fakeFactory{}
	log := &recordLog{}
	c := New(Options{
		Factory:  f.New,
		Log:      log,
		Settings: func() vm.Settings { return *settings },
		Screen:   "screen",
	})
	return c, f, log
}

func TestStartOrCreateConstructsOnce(t *testing.T) {
	settings := vm.Settings{}
	c, f, log := setup(&settings)

	if err := c.StartOrCreate(); err != nil {
		t.Fatal(err)
	}
	if len(f.engines) != 1 || f.engines[0].runs != 1 {
		t.Fatalf("expected one engine run once, got %d engines", len(f.engines))
	}

	settings.Memory = "1024"
	if err := c.StartOrCreate(); err != nil {
		t.Fatal(err)
	}
	if len(f.engines) != 1 {
		t.Fatalf("second start constructed a new engine")
	}
	e := f.engines[0]
	if e.runs != 2 {
		t.Errorf("expected run invoked once more, got %d total", e.runs)
	}
	if e.opts.MemorySize != 512*vm.MiB {
		t.Errorf("existing session should keep its configuration, got %d", e.opts.MemorySize)
	}
	if log.count("No ISO/HDD selected yet.") != 2 || log.count("VM started.") != 2 {
		t.Errorf("unexpected log: %q", log.lines)
	}
}

func TestRecreateThenStart(t *testing.T) {
	settings := vm.Settings{Memory: "256"}
	c, f, _ := setup(&settings)

	if err := c.StartOrCreate(); err != nil {
		t.Fatal(err)
	}
	settings = vm.Settings{Memory: "4096", VGAMemory: "16", ACPI: true}
	c.Media.Set(media.HDA, &media.Image{Name: "disk.vhd", Data: []byte("hdd")})

	if err := c.Recreate(); err != nil {
		t.Fatal(err)
	}
	if err := c.StartOrCreate(); err != nil {
		t.Fatal(err)
	}

	if len(f.engines) != 2 {
		t.Fatalf("expected 2 engines constructed, got %d", len(f.engines))
	}
	old, cur := f.engines[0], f.engines[1]
	if old.stops != 1 {
		t.Errorf("old engine should be stopped once, got %d", old.stops)
	}
	if len(old.subs) != 0 {
		t.Errorf("old engine still has %d subscriptions", len(old.subs))
	}
	if cur.runs != 1 {
		t.Errorf("new engine should run once, got %d", cur.runs)
	}
	if cur.opts.MemorySize != 2048*vm.MiB || cur.opts.VGAMemorySize != 16*vm.MiB || !cur.opts.ACPI {
		t.Errorf("new engine not built from latest settings: %+v", cur.opts)
	}
	if string(cur.opts.HDA) != "hdd" || cur.opts.CDROM != nil {
		t.Errorf("new engine not built with latest media: cdrom=%v hda=%q", cur.opts.CDROM, cur.opts.HDA)
	}
	if cur.opts.Screen != "screen" {
		t.Errorf("screen not passed through: %v", cur.opts.Screen)
	}
}

func TestRecreateIgnoresStopError(t *testing.T) {
	settings := vm.Settings{}
	c, f, _ := setup(&settings)
	if err := c.Recreate(); err != nil {
		t.Fatal(err)
	}
	f.engines[0].stopErr = errors.New("already stopped")
	if err := c.Recreate(); err != nil {
		t.Fatalf("stop error should be ignored, got %v", err)
	}
	if len(f.engines) != 2 || f.engines[1].runs != 0 {
		t.Errorf("expected a fresh engine that is not running")
	}
}

func TestOldEngineEventsDropped(t *testing.T) {
	settings := vm.Settings{}
	c, f, log := setup(&settings)
	c.Recreate()
	c.Recreate()
	f.engines[0].emit(vm.Crash{})
	f.engines[1].emit(vm.Ready{})
	if log.count("VM crashed") != 0 || log.count("Emulator ready.") != 1 {
		t.Errorf("unexpected log: %q", log.lines)
	}
}

func TestRestartAndTerminateWithoutSession(t *testing.T) {
	settings := vm.Settings{}
	c, f, log := setup(&settings)
	if err := c.Restart(); err != nil {
		t.Fatal(err)
	}
	if err := c.Terminate(); err != nil {
		t.Fatal(err)
	}
	if err := c.SendSerial([]byte("x")); err != nil {
		t.Fatal(err)
	}
	if len(f.engines) != 0 || len(log.lines) != 0 {
		t.Errorf("expected no-ops, got %d engines and log %q", len(f.engines), log.lines)
	}
}

func TestTerminateKeepsHandle(t *testing.T) {
	settings := vm.Settings{}
	c, f, log := setup(&settings)
	c.StartOrCreate()
	if err := c.Terminate(); err != nil {
		t.Fatal(err)
	}
	if !c.Status().Session {
		t.Error("handle should survive stop")
	}
	if err := c.Restart(); err != nil {
		t.Fatal(err)
	}
	c.StartOrCreate()

	e := f.engines[0]
	if len(f.engines) != 1 || e.stops != 1 || e.restarts != 1 || e.runs != 2 {
		t.Errorf("unexpected engine use: engines=%d stops=%d restarts=%d runs=%d", len(f.engines), e.stops, e.restarts, e.runs)
	}
	if log.count("VM stopped.") != 1 || log.count("VM reset.") != 1 {
		t.Errorf("unexpected log: %q", log.lines)
	}
}

func TestEventLogging(t *testing.T) {
	settings := vm.Settings{}
	c, f, log := setup(&settings)
	var serial []byte
	c.SetSerial(func(b byte) { serial = append(serial, b) })
	c.Recreate()
	e := f.engines[0]

	e.emit(vm.Ready{})
	e.emit(vm.DownloadProgress{FileName: "v86.wasm", Loaded: 1, Total: 3})
	e.emit(vm.DownloadProgress{FileName: "", Loaded: 1, Total: 3})
	e.emit(vm.DownloadProgress{FileName: "bios", Loaded: 0, Total: 3})
	e.emit(vm.SerialOutput{Char: 'h'})
	e.emit(vm.SerialOutput{Char: 'i'})
	e.emit(vm.Exit{Code: 2})
	e.emit(vm.Crash{})

	want := []string{
		"Emulator ready.",
		"Downloading v86.wasm: 33%",
		"VM exited: 2",
		"VM crashed",
	}
	if strings.Join(log.lines, "|") != strings.Join(want, "|") {
		t.Errorf("expected %q, got %q", want, log.lines)
	}
	if string(serial) != "hi" {
		t.Errorf("expected serial hook to get %q, got %q", "hi", serial)
	}
}

func TestDropThenStart(t *testing.T) {
	settings := vm.Settings{}
	c, f, log := setup(&settings)
	loader := &media.Loader{Slots: c.Media, Log: log}

	if err := loader.Drop(context.Background(), media.Bytes{Filename: "boot.iso", Data: []byte("iso")}); err != nil {
		t.Fatal(err)
	}
	if err := c.StartOrCreate(); err != nil {
		t.Fatal(err)
	}

	want := []string{"ISO loaded via drop: boot.iso", "VM started."}
	if strings.Join(log.lines, "|") != strings.Join(want, "|") {
		t.Errorf("expected %q, got %q", want, log.lines)
	}
	if string(f.engines[0].opts.CDROM) != "iso" || f.engines[0].opts.HDA != nil {
		t.Errorf("unexpected media: %+v", f.engines[0].opts)
	}
}

func TestFactoryErrorPropagates(t *testing.T) {
	settings := vm.Settings{}
	c, f, log := setup(&settings)
	f.err = vm.ErrNoEngine

	err := c.StartOrCreate()
	if !errors.Is(err, vm.ErrNoEngine) {
		t.Fatalf("expected ErrNoEngine, got %v", err)
	}
	if c.Status().Session {
		t.Error("no session should exist after a failed construction")
	}
	if log.count("VM started.") != 0 {
		t.Errorf("unexpected log: %q", log.lines)
	}
}

func TestSendSerial(t *testing.T) {
	settings := vm.Settings{}
	c, f, _ := setup(&settings)
	c.Recreate()
	if err := c.SendSerial([]byte("ls\n")); err != nil {
		t.Fatal(err)
	}
	if string(f.engines[0].sent) != "ls\n" {
		t.Errorf("unexpected serial input: %q", f.engines[0].sent)
	}
}

func TestCommand(t *testing.T) {
	settings := vm.Settings{}
	c, f, _ := setup(&settings)
	c.Media.Set(media.CDROM, &media.Image{Name: "boot.iso", Data: []byte("iso")})

	var out bytes.Buffer
	cmd := c.Command(&out)
	for _, action := range []string{"start", "reset", "stop", "status", "bogus"} {
		if err := cli.Execute(context.Background(), cmd, []string{action}); err != nil {
			t.Fatalf("%s: %v", action, err)
		}
	}

	e := f.engines[0]
	if e.runs != 1 || e.restarts != 1 || e.stops != 1 {
		t.Errorf("unexpected engine use: runs=%d restarts=%d stops=%d", e.runs, e.restarts, e.stops)
	}
	got := out.String()
	if !strings.Contains(got, `session=true cdrom="boot.iso" hda=""`) {
		t.Errorf("missing status line: %q", got)
	}
	if !strings.Contains(got, `unknown action "bogus"`) {
		t.Errorf("missing error for unknown action: %q", got)
	}
}
