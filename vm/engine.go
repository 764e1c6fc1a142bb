package vm

import "errors"

// ErrNoEngine is returned by a Factory when the engine runtime is not
// available in the host environment.
var ErrNoEngine = errors.New("emulator engine not available")

// Engine is one live instance of the external emulator.
type Engine interface {
	Run() error
	Stop() error
	Restart() error

	// SendSerial writes bytes to the guest's first serial port.
	SendSerial(p []byte) error

	// Subscribe registers fn for all engine events. Events of one type are
	// delivered in the order the engine emits them. The returned func
	// removes the subscription.
	Subscribe(fn func(Event)) (cancel func())
}

// Factory constructs an Engine. Construction errors are not recoverable
// by the caller.
type Factory func(Options) (Engine, error)

// Event is one of Ready, DownloadProgress, SerialOutput, Exit or Crash.
type Event interface {
	EventName() string
}

// Ready is emitted once the engine has loaded its runtime and firmware.
type Ready struct{}

// DownloadProgress reports a named download. Loaded and Total are bytes;
// either may be zero when the engine does not know them.
type DownloadProgress struct {
	FileName string
	Loaded   int64
	Total    int64
}

// Percent returns the integer percentage, truncated, and whether the event
// carries enough information to compute it.
func (e DownloadProgress) Percent() (int, bool) {
	if e.FileName == "" || e.Loaded <= 0 || e.Total <= 0 {
		return 0, false
	}
	return int(e.Loaded * 100 / e.Total), true
}

type SerialOutput struct {
	Char byte
}

type Exit struct {
	Code int
}

type Crash struct{}

func (Ready) EventName() string            { return "emulator-ready" }
func (DownloadProgress) EventName() string { return "download-progress" }
func (SerialOutput) EventName() string     { return "serial0-output-char" }
func (Exit) EventName() string             { return "exit" }
func (Crash) EventName() string            { return "crash" }
