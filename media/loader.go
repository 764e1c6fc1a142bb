package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"tractor.dev/v86boot/vmlog"
)

// Source is a file the user selected, dropped or that was published by
// the dev server.
type Source interface {
	Name() string
	Size() int64
	ReadAll(ctx context.Context) ([]byte, error)
}

// Via records how a source reached the loader. It only affects the log line.
type Via int

const (
	ViaPicker Via = iota
	ViaDrop
	ViaPreload
)

// Loader reads sources into Slots and reports on a vmlog.Sink.
type Loader struct {
	Slots *Slots
	Log   vmlog.Sink

	// OnCDROM is called after an image is stored in the CD-ROM slot.
	OnCDROM func()
}

// Load reads src and stores it in slot s. A nil src is ignored. On failure
// the slot keeps its previous image and the error is logged and returned.
func (l *Loader) Load(ctx context.Context, s Slot, src Source, via Via) error {
	if src == nil {
		return nil
	}
	seq := l.Slots.begin(s)
	data, err := src.ReadAll(ctx)
	if err != nil {
		l.Log.Append(fmt.Sprintf("Failed to read %s: %v", src.Name(), err))
		return fmt.Errorf("read %s: %w", src.Name(), err)
	}
	if !l.Slots.commit(s, seq, &Image{Name: src.Name(), Data: data}) {
		slog.Debug("discarding stale load", "slot", s, "name", src.Name())
		return nil
	}
	l.Log.Append(loadedMessage(s, via, src.Name(), src.Size()))
	if s == CDROM && l.OnCDROM != nil {
		l.OnCDROM()
	}
	return nil
}

// Drop loads a dropped file into the slot chosen by Classify.
func (l *Loader) Drop(ctx context.Context, src Source) error {
	if src == nil {
		return nil
	}
	return l.Load(ctx, Classify(src.Name()), src, ViaDrop)
}

// Go runs Load on a new goroutine. The returned channel receives its
// result and is then closed.
func (l *Loader) Go(ctx context.Context, s Slot, src Source, via Via) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- l.Load(ctx, s, src, via)
	}()
	return done
}

func loadedMessage(s Slot, via Via, name string, size int64) string {
	kind := "HDD image"
	if s == CDROM {
		kind = "ISO"
	}
	switch via {
	case ViaDrop:
		return fmt.Sprintf("%s loaded via drop: %s", kind, name)
	case ViaPreload:
		return fmt.Sprintf("%s preloaded: %s (%d bytes)", kind, name, size)
	default:
		return fmt.Sprintf("%s loaded: %s (%d bytes)", kind, name, size)
	}
}

// Bytes is an in-memory Source.
type Bytes struct {
	Filename string
	Data     []byte
}

func (b Bytes) Name() string { return b.Filename }
func (b Bytes) Size() int64  { return int64(len(b.Data)) }

func (b Bytes) ReadAll(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.ReadAll(bytes.NewReader(b.Data))
}
