package input

import (
	"bytes"
	"sync"

	"github.com/Veraticus/idlewatch/pkg/interfaces"
)

// Focus reporting mode switches, as written by the wrapped program.
var (
	seqFocusEnable  = []byte("\x1b[?1004h")
	seqFocusDisable = []byte("\x1b[?1004l")
)

// Terminal is the target for a wrapped terminal session. Keyboard and
// mouse bytes are fed in through HandleInput; window size changes through
// Resize.
type Terminal struct {
	*Bus

	mu          sync.Mutex
	decoder     *Decoder
	passthrough bool
}

// NewTerminal creates a terminal target.
func NewTerminal() *Terminal {
	return &Terminal{
		Bus:     NewBus(),
		decoder: NewDecoder(),
	}
}

// Ensure Terminal implements Target and InputHandler
var (
	_ interfaces.Target       = (*Terminal)(nil)
	_ interfaces.InputHandler = (*Terminal)(nil)
)

// HandleInput decodes a chunk of input and emits its events.
func (t *Terminal) HandleInput(data []byte) {
	t.mu.Lock()
	events := t.decoder.Decode(data)
	t.mu.Unlock()

	for _, name := range events {
		t.Emit(name)
	}
}

// Resize emits a resize event.
func (t *Terminal) Resize() {
	t.Emit("resize")
}

// FilterInput returns the bytes to forward to the wrapped program. Focus
// reports exist only because we asked the outer terminal for them, so they
// are dropped unless the program enabled focus reporting itself.
func (t *Terminal) FilterInput(data []byte) []byte {
	t.mu.Lock()
	passthrough := t.passthrough
	t.mu.Unlock()

	if passthrough {
		return data
	}
	return StripFocusReports(data)
}

// FilterOutput watches the program's output for focus reporting mode
// switches. They are removed so the program can't turn off reporting we
// rely on; instead they decide whether focus reports are passed through.
func (t *Terminal) FilterOutput(data []byte) []byte {
	hasEnable := bytes.Contains(data, seqFocusEnable)
	hasDisable := bytes.Contains(data, seqFocusDisable)
	if !hasEnable && !hasDisable {
		return data
	}

	t.mu.Lock()
	switch {
	case hasEnable && hasDisable:
		t.passthrough = bytes.LastIndex(data, seqFocusEnable) > bytes.LastIndex(data, seqFocusDisable)
	case hasEnable:
		t.passthrough = true
	default:
		t.passthrough = false
	}
	t.mu.Unlock()

	out := bytes.ReplaceAll(data, seqFocusEnable, nil)
	return bytes.ReplaceAll(out, seqFocusDisable, nil)
}

// FocusPassthrough reports whether the program asked for focus reports.
func (t *Terminal) FocusPassthrough() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.passthrough
}

// EnableFocusReporting returns the sequence asking a terminal for focus reports.
func EnableFocusReporting() []byte {
	return append([]byte(nil), seqFocusEnable...)
}

// DisableFocusReporting returns the sequence turning focus reports off.
func DisableFocusReporting() []byte {
	return append([]byte(nil), seqFocusDisable...)
}
