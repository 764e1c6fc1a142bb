package slogger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/term"
)

type HandlerOptions struct {
	Level slog.Leveler
	// Color enables ANSI grey for timestamps, attribute keys and sources.
	Color bool
	// Exclude drops records carrying an attribute with any of these keys.
	Exclude []string
}

// Handler writes records as
//
//	15:04:05.000 pkg: message key=value file.go:12
type Handler struct {
	opts  HandlerOptions
	attrs []slog.Attr
	group string

	mu *sync.Mutex
	w  io.Writer
}

func NewHandler(w io.Writer, opts HandlerOptions) *Handler {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	return &Handler{opts: opts, mu: &sync.Mutex{}, w: w}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	for _, a := range attrs {
		h2.attrs = append(h2.attrs[:len(h2.attrs):len(h2.attrs)], h.qualify(a))
	}
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	if h2.group != "" {
		h2.group += "." + name
	} else {
		h2.group = name
	}
	return &h2
}

func (h *Handler) qualify(a slog.Attr) slog.Attr {
	if h.group != "" {
		a.Key = h.group + "." + a.Key
	}
	return a
}

func (h *Handler) excluded(key string) bool {
	for _, k := range h.opts.Exclude {
		if k == key {
			return true
		}
	}
	return false
}

func (h *Handler) grey(s string) string {
	if !h.opts.Color {
		return s
	}
	return "\033[90m" + s + "\033[0m"
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	attrs := append([]slog.Attr(nil), h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.qualify(a))
		return true
	})

	var b strings.Builder
	b.WriteString(h.grey(r.Time.Format("15:04:05.000")))
	b.WriteByte(' ')

	file, line := "???", 0
	pkg := "???"
	if r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if frame.File != "" {
			file, line = filepath.Base(frame.File), frame.Line
			pkg = filepath.Base(filepath.Dir(frame.File))
		}
	}
	fmt.Fprintf(&b, "%s: ", pkg)
	if r.Level != slog.LevelInfo {
		fmt.Fprintf(&b, "%s ", r.Level)
	}
	b.WriteString(r.Message)

	for _, a := range attrs {
		if h.excluded(a.Key) {
			return nil
		}
		v := "<nil>"
		if a.Value.Any() != nil {
			v = fmt.Sprintf("%v", a.Value.Any())
		}
		fmt.Fprintf(&b, " %s%s", h.grey(a.Key+"="), v)
	}
	fmt.Fprintf(&b, " %s\n", h.grey(fmt.Sprintf("%s:%d", file, line)))

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// New returns a logger writing to stdout, coloured when stdout is a terminal.
func New(level slog.Level) *slog.Logger {
	return slog.New(NewHandler(os.Stdout, HandlerOptions{
		Level: level,
		Color: term.IsTerminal(int(os.Stdout.Fd())),
	}))
}

// Use installs New(level) as the default logger.
func Use(level slog.Level) {
	slog.SetDefault(New(level))
}
