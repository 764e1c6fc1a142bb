package slogger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("session created", "memory", 512, "err", nil)

	out := buf.String()
	for _, want := range []string{"slogger: session created", "memory=512", "err=<nil>", "slogger_test.go:"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Errorf("unexpected colour codes: %q", out)
	}
}

func TestHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, HandlerOptions{Level: slog.LevelInfo}))
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug record should be filtered, got %q", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "WARN shown") {
		t.Errorf("expected level prefix, got %q", buf.String())
	}
}

func TestHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, HandlerOptions{})).With("slot", "cdrom").WithGroup("req")
	logger.Info("loaded", "name", "boot.iso")

	out := buf.String()
	if !strings.Contains(out, "slot=cdrom") || !strings.Contains(out, "req.name=boot.iso") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestHandlerExclude(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, HandlerOptions{Exclude: []string{"serial"}}))
	logger.Info("char", "serial", 'a')
	logger.Info("kept", "slot", "hda")
	out := buf.String()
	if strings.Contains(out, "char") || !strings.Contains(out, "kept") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestHandlerColor(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, HandlerOptions{Color: true}))
	logger.Info("hi", "k", "v")
	if !strings.Contains(buf.String(), "\033[90mk=\033[0mv") {
		t.Errorf("expected grey key, got %q", buf.String())
	}
}
