package input

import (
	"bytes"
	"strconv"
)

// Event names produced by the decoder besides the tracked defaults.
const (
	EventFocus   = "focus"
	EventBlur    = "blur"
	EventMouseUp = "mouseup"
)

var (
	seqFocusIn  = []byte("\x1b[I")
	seqFocusOut = []byte("\x1b[O")
	seqPaste    = []byte("\x1b[200~")
)

// maxPending bounds how much of an unterminated escape sequence is held
// back waiting for the next chunk.
const maxPending = 32

// Decoder turns raw terminal input into DOM-style event names.
// Plain keystrokes become keydown/keypress/keyup, Enter adds submit, mouse
// reports become mousedown/mouseup/mousemove/scroll, bracketed paste
// becomes change, and focus reports become focus/blur.
type Decoder struct {
	// Sequences can be split across reads.
	pending []byte
}

// NewDecoder creates a decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode returns the events found in data, in input order. A run of plain
// keys yields one keydown/keypress/keyup triple.
func (d *Decoder) Decode(data []byte) []string {
	buf := append(d.pending, data...)
	d.pending = nil

	var events []string
	inKeys := false
	key := func() {
		if !inKeys {
			events = append(events, "keydown", "keypress", "keyup")
			inKeys = true
		}
	}
	emit := func(name string) {
		events = append(events, name)
		inKeys = false
	}

	for i := 0; i < len(buf); {
		b := buf[i]

		if b != 0x1b {
			key()
			if b == '\r' || b == '\n' {
				emit("submit")
			}
			i++
			continue
		}

		// A lone ESC at the end is the Escape key.
		if i+1 >= len(buf) {
			key()
			i++
			continue
		}

		switch buf[i+1] {
		case '[':
			n, name, ok := d.csi(buf[i:])
			if !ok {
				d.hold(buf[i:], key)
				return events
			}
			if name == "" {
				key()
			} else {
				emit(name)
			}
			i += n
		case 'O':
			// SS3: application-mode cursor and F1-F4 keys.
			if i+2 >= len(buf) {
				d.hold(buf[i:], key)
				return events
			}
			key()
			i += 3
		default:
			// Alt+key.
			key()
			i += 2
		}
	}

	return events
}

// hold keeps an unterminated sequence for the next call, or gives up on it
// and counts it as a key when it is implausibly long.
func (d *Decoder) hold(rest []byte, key func()) {
	if len(rest) <= maxPending {
		d.pending = append([]byte(nil), rest...)
		return
	}
	key()
}

// csi parses a CSI sequence at the start of seq. It returns its length,
// the event it maps to ("" for an ordinary key) and false if incomplete.
func (d *Decoder) csi(seq []byte) (int, string, bool) {
	// X10 mouse: ESC [ M cb cx cy
	if len(seq) >= 3 && seq[2] == 'M' {
		if len(seq) < 6 {
			return 0, "", false
		}
		cb := int(seq[3]) - 32
		return 6, mouseEvent(cb, cb&3 == 3), true
	}

	end := -1
	for j := 2; j < len(seq); j++ {
		if seq[j] >= 0x40 && seq[j] <= 0x7e {
			end = j
			break
		}
	}
	if end < 0 {
		return 0, "", false
	}
	n := end + 1
	whole := seq[:n]

	switch {
	case bytes.Equal(whole, seqFocusIn):
		return n, EventFocus, true
	case bytes.Equal(whole, seqFocusOut):
		return n, EventBlur, true
	case bytes.Equal(whole, seqPaste):
		return n, "change", true
	case seq[2] == '<' && (seq[end] == 'M' || seq[end] == 'm'):
		// SGR mouse: ESC [ < b ; x ; y M|m
		params := bytes.SplitN(seq[3:end], []byte(";"), 2)
		cb, err := strconv.Atoi(string(params[0]))
		if err != nil {
			return n, "", true
		}
		return n, mouseEvent(cb, seq[end] == 'm'), true
	}
	return n, "", true
}

func mouseEvent(cb int, release bool) string {
	switch {
	case cb&64 != 0:
		return "scroll"
	case cb&32 != 0:
		return "mousemove"
	case release:
		return EventMouseUp
	default:
		return "mousedown"
	}
}

// StripFocusReports removes focus in/out reports from data.
func StripFocusReports(data []byte) []byte {
	if !bytes.Contains(data, seqFocusIn) && !bytes.Contains(data, seqFocusOut) {
		return data
	}
	out := bytes.ReplaceAll(data, seqFocusIn, nil)
	return bytes.ReplaceAll(out, seqFocusOut, nil)
}
