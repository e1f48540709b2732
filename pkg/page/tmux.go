package page

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/idlewatch/pkg/interfaces"
)

// tmuxTimeout bounds a focus query so a wedged tmux server can't pin the
// poll goroutine.
const tmuxTimeout = 500 * time.Millisecond

// DefaultTmuxPollInterval is how often tmux is asked for focus while
// someone is listening.
const DefaultTmuxPollInterval = time.Second

// tmuxFocusFormat prints whether any client is attached to the session,
// and whether our window and pane are the active ones.
const tmuxFocusFormat = "#{session_attached} #{window_active} #{pane_active}"

// TmuxPage is a page for sessions running inside tmux. The page is
// focused when the session has a client attached and our pane is the one
// on screen.
//
// tmux is queried from a background goroutine while handlers are
// subscribed. HasFocus answers from the last sample, so callers on the
// detector loop never wait on a tmux process.
type TmuxPage struct {
	pane        string
	cmdExecutor func(name string, args ...string) ([]byte, error)
	interval    time.Duration

	mu       sync.Mutex
	sampled  bool
	focused  bool
	handlers map[int]func(bool)
	nextID   int
	stopChan chan struct{}
}

// Ensure TmuxPage implements VisibilityNotifier
var _ interfaces.VisibilityNotifier = (*TmuxPage)(nil)

// NewTmuxPage creates a tmux page for the given pane. If pane is empty,
// $TMUX_PANE is used.
func NewTmuxPage(pane string) *TmuxPage {
	if pane == "" {
		pane = os.Getenv("TMUX_PANE")
	}
	return &TmuxPage{
		pane:        pane,
		cmdExecutor: defaultCmdExecutor,
		interval:    DefaultTmuxPollInterval,
		handlers:    make(map[int]func(bool)),
	}
}

// SetPollInterval changes the poll period. It applies to pollers started
// afterwards.
func (p *TmuxPage) SetPollInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultTmuxPollInterval
	}
	p.mu.Lock()
	p.interval = d
	p.mu.Unlock()
}

// defaultCmdExecutor executes a command and returns its output.
func defaultCmdExecutor(name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), tmuxTimeout)
	defer cancel()
	return exec.CommandContext(ctx, name, args...).Output()
}

// HasFocus implements interfaces.Page. It returns the last sample and
// only queries tmux when nothing has been sampled yet.
func (p *TmuxPage) HasFocus() bool {
	p.mu.Lock()
	if p.sampled {
		focused := p.focused
		p.mu.Unlock()
		return focused
	}
	p.mu.Unlock()
	return p.Refresh()
}

// Refresh queries tmux, stores the result and tells handlers if focus
// changed since the previous sample. When tmux can't be queried the page
// is assumed focused.
func (p *TmuxPage) Refresh() bool {
	focused, err := p.query()
	if err != nil {
		focused = true
	}

	p.mu.Lock()
	changed := p.sampled && focused != p.focused
	p.sampled = true
	p.focused = focused
	var handlers []func(bool)
	if changed {
		for _, h := range p.handlers {
			handlers = append(handlers, h)
		}
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h(focused)
	}
	return focused
}

// OnVisibilityChange implements interfaces.VisibilityNotifier. The first
// subscriber starts the poller and the last cancel stops it.
func (p *TmuxPage) OnVisibilityChange(handler func(visible bool)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = handler
	if p.stopChan == nil {
		p.stopChan = make(chan struct{})
		go p.pollLoop(p.interval, p.stopChan)
	}
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.handlers, id)
			if len(p.handlers) == 0 {
				p.stopLocked()
			}
		})
	}
}

// Close stops the poller and drops every handler.
func (p *TmuxPage) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = make(map[int]func(bool))
	p.stopLocked()
}

func (p *TmuxPage) stopLocked() {
	if p.stopChan != nil {
		close(p.stopChan)
		p.stopChan = nil
	}
}

func (p *TmuxPage) pollLoop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.Refresh()
		case <-stop:
			return
		}
	}
}

func (p *TmuxPage) query() (bool, error) {
	args := []string{"display-message", "-p"}
	if p.pane != "" {
		args = append(args, "-t", p.pane)
	}
	args = append(args, tmuxFocusFormat)

	output, err := p.cmdExecutor("tmux", args...)
	if err != nil {
		return false, fmt.Errorf("tmux display-message: %w", err)
	}

	fields := strings.Fields(string(output))
	if len(fields) != 3 {
		return false, fmt.Errorf("unexpected tmux output %q", strings.TrimSpace(string(output)))
	}

	attached := fields[0] != "" && fields[0] != "0"
	return attached && fields[1] == "1" && fields[2] == "1", nil
}

// isInTmux checks if we're running inside a tmux session.
func (p *TmuxPage) isInTmux() bool {
	return os.Getenv("TMUX") != ""
}

// IsAvailable checks if tmux is available and we're in a tmux session.
func (p *TmuxPage) IsAvailable() bool {
	if !p.isInTmux() {
		return false
	}

	// Check if tmux command is available
	_, err := p.cmdExecutor("tmux", "-V")
	return err == nil
}
