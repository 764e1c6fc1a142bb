package vm

import (
	"errors"
	"flag"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const MiB = 1024 * 1024

const (
	DefaultMemoryMiB = 512
	MinMemoryMiB     = 32
	MaxMemoryMiB     = 2048

	DefaultVGAMemoryMiB = 8
	MinVGAMemoryMiB     = 1
	MaxVGAMemoryMiB     = 32
)

// Settings holds the raw values of the page controls. Sizes are kept as
// typed by the user; Build is responsible for interpreting them.
type Settings struct {
	Memory    string
	VGAMemory string
	ACPI      bool
	SMP       bool
	Fallback  bool
}

// Snapshot is the validated configuration a session is constructed with.
// It is a value type and is never modified after Build returns it.
type Snapshot struct {
	MemorySize    int64
	VGAMemorySize int64
	ACPI          bool
	SMP           bool
	Fallback      bool
}

// Build derives a Snapshot from the current control values.
func Build(s Settings) Snapshot {
	return Snapshot{
		MemorySize:    ClampMemory(s.Memory),
		VGAMemorySize: ClampVGAMemory(s.VGAMemory),
		ACPI:          s.ACPI,
		SMP:           s.SMP,
		Fallback:      s.Fallback,
	}
}

// ClampMemory returns the guest memory size in bytes for a raw control value.
func ClampMemory(raw string) int64 {
	return clampMiB(raw, DefaultMemoryMiB, MinMemoryMiB, MaxMemoryMiB)
}

// ClampVGAMemory returns the video memory size in bytes for a raw control value.
func ClampVGAMemory(raw string) int64 {
	return clampMiB(raw, DefaultVGAMemoryMiB, MinVGAMemoryMiB, MaxVGAMemoryMiB)
}

func clampMiB(raw string, def, lo, hi float64) int64 {
	v, ok := parseMiB(raw)
	if !ok {
		v = def
	}
	v = math.Max(lo, math.Min(hi, v))
	return int64(v * MiB)
}

var sizeRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)([KMGT])I?B?$`)

// parseMiB interprets a size control value in MiB. Plain numbers are MiB,
// suffixed values like "1G" or "512M" are converted.
func parseMiB(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil || errors.Is(err, strconv.ErrRange) {
		if math.IsNaN(v) {
			return 0, false
		}
		return v, true
	}
	m := sizeRe.FindStringSubmatch(strings.ToUpper(raw))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	switch m[2] {
	case "K":
		v /= 1024
	case "G":
		v *= 1024
	case "T":
		v *= 1024 * 1024
	}
	return v, true
}

// FlagSet is the subset of flag.FlagSet used to bind Settings.
type FlagSet interface {
	StringVar(p *string, name, value, usage string)
	BoolVar(p *bool, name string, value bool, usage string)
}

// BindFlags registers the settings flags on f, storing into s.
func BindFlags(f FlagSet, s *Settings) {
	f.StringVar(&s.Memory, "m", "", "Set memory size (MiB, or with K/M/G suffix)")
	f.StringVar(&s.Memory, "mem", "", "Set memory size (MiB, or with K/M/G suffix)")
	f.StringVar(&s.VGAMemory, "vga-mem", "", "Set video memory size (MiB, or with K/M/G suffix)")
	f.BoolVar(&s.ACPI, "acpi", false, "Enable ACPI")
	f.BoolVar(&s.SMP, "smp", false, "Enable SMP")
	f.BoolVar(&s.Fallback, "fallback", false, "Use the non-SIMD fallback build")
}

// ParseFlags reads Settings from command arguments.
func ParseFlags(args []string) (Settings, error) {
	var s Settings
	f := flag.NewFlagSet("vm", flag.ContinueOnError)
	f.SetOutput(io.Discard)
	BindFlags(f, &s)
	if err := f.Parse(args); err != nil {
		return Settings{}, err
	}
	return s, nil
}
