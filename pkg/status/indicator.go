package status

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"
)

// Status represents the current notification status
type Status int

const (
	StatusNone Status = iota
	StatusSending
	StatusSuccess
	StatusFailed
)

// successLinger is how long a delivered notification stays on the line.
const successLinger = 30 * time.Second

// Indicator draws the detector state on the bottom line of the terminal:
// focus, idle/active, and the last notification result.
type Indicator struct {
	mu       sync.Mutex
	status   Status
	lastSent time.Time
	enabled  bool
	writer   io.Writer
	output   *termenv.Output
	now      func() time.Time

	idle          bool
	visible       bool
	focusReported bool

	// Output from the wrapped program can overwrite the line, so redraws
	// come faster right after it.
	lastActivity time.Time
	refreshChan  chan struct{}
}

// NewIndicator creates a status indicator. Colors follow the terminal's
// capabilities as detected by termenv.
func NewIndicator(writer io.Writer, enabled bool) *Indicator {
	return newIndicator(writer, enabled, termenv.NewOutput(writer))
}

func newIndicator(writer io.Writer, enabled bool, output *termenv.Output) *Indicator {
	return &Indicator{
		writer:      writer,
		output:      output,
		enabled:     enabled,
		visible:     true,
		now:         time.Now,
		refreshChan: make(chan struct{}, 1),
	}
}

// SetStatus updates the notification status
func (i *Indicator) SetStatus(status Status) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.status = status
	if status == StatusSuccess {
		i.lastSent = i.now()
	}
	_ = i.draw()
}

// SetIdle updates the idle state
func (i *Indicator) SetIdle(idle bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.idle = idle
	_ = i.draw()
}

// SetVisible updates the focus state. The focus marker is shown once the
// first visibility change has been reported.
func (i *Indicator) SetVisible(visible bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.visible = visible
	i.focusReported = true
	_ = i.draw()
}

// MarkActivity marks that the wrapped program just wrote output
func (i *Indicator) MarkActivity() {
	i.mu.Lock()
	i.lastActivity = i.now()
	i.mu.Unlock()

	if i.enabled {
		select {
		case i.refreshChan <- struct{}{}:
		default:
		}
	}
}

// draw renders the status line. Callers hold i.mu.
func (i *Indicator) draw() error {
	if !i.enabled || i.writer == nil {
		return nil
	}

	// \0337 and \0338 (DECSC/DECRC) save and restore the cursor around a
	// write to line 999, which terminals clamp to the last line.
	sequence := fmt.Sprintf("\0337\033[r\033[999;1H\033[2K%s\0338", i.statusText())
	_, err := io.WriteString(i.writer, sequence)
	return err
}

func (i *Indicator) color(s, c string) string {
	return i.output.String(s).Foreground(i.output.Color(c)).String()
}

// statusText returns the colored status line
func (i *Indicator) statusText() string {
	var parts []string

	if i.focusReported {
		if i.visible {
			parts = append(parts, i.color("◉", "6"))
		} else {
			parts = append(parts, i.color("○", "8"))
		}
	}

	if i.idle {
		parts = append(parts, i.color("Ⓩ idle", "3"))
	} else {
		parts = append(parts, i.color("▶ active", "2"))
	}

	switch i.status {
	case StatusSending:
		parts = append(parts, i.color("⟳ ntfy", "3"))
	case StatusSuccess:
		if age := i.now().Sub(i.lastSent); age < successLinger {
			text := "✓ ntfy"
			if age >= time.Second {
				text += fmt.Sprintf(" (%ds)", int(age.Seconds()))
			}
			parts = append(parts, i.color(text, "2"))
		}
	case StatusFailed:
		parts = append(parts, i.color("✗ ntfy", "1"))
	}

	return strings.Join(parts, " ")
}

// Clear removes the status line
func (i *Indicator) Clear() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.enabled || i.writer == nil {
		return nil
	}

	_, err := io.WriteString(i.writer, "\0337\033[999;1H\033[2K\0338")
	return err
}

// StartAutoRefresh redraws the line periodically until stopChan closes,
// then clears it.
func (i *Indicator) StartAutoRefresh(stopChan <-chan struct{}) {
	go func() {
		normalInterval := 2 * time.Second
		activeInterval := 100 * time.Millisecond

		ticker := time.NewTicker(normalInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				i.mu.Lock()
				isActive := i.now().Sub(i.lastActivity) < 500*time.Millisecond
				_ = i.draw()
				i.mu.Unlock()

				if isActive {
					ticker.Reset(activeInterval)
				} else {
					ticker.Reset(normalInterval)
				}
			case <-i.refreshChan:
				i.mu.Lock()
				_ = i.draw()
				i.mu.Unlock()
			case <-stopChan:
				_ = i.Clear()
				return
			}
		}
	}()
}
