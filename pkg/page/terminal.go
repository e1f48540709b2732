// Package page provides the Page implementations: what "the page is
// visible and focused" means for a terminal session.
package page

import (
	"sync"

	"github.com/Veraticus/idlewatch/pkg/interfaces"
)

// Focus report event names, as emitted by input.Terminal.
const (
	eventFocus = "focus"
	eventBlur  = "blur"
)

// TerminalPage follows the focus reports of the outer terminal emulator.
// It assumes focus until told otherwise, since terminals only report
// changes.
type TerminalPage struct {
	mu       sync.Mutex
	focused  bool
	handlers map[int]func(bool)
	nextID   int
	detach   func()
}

// NewTerminalPage creates a page listening to focus and blur events on target.
func NewTerminalPage(target interfaces.Target) *TerminalPage {
	p := &TerminalPage{
		focused:  true,
		handlers: make(map[int]func(bool)),
	}
	p.detach = target.Subscribe([]string{eventFocus, eventBlur}, func(ev interfaces.Event) {
		p.set(ev.Name == eventFocus)
	})
	return p
}

// Ensure TerminalPage implements VisibilityNotifier
var _ interfaces.VisibilityNotifier = (*TerminalPage)(nil)

// HasFocus implements interfaces.Page
func (p *TerminalPage) HasFocus() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.focused
}

// OnVisibilityChange implements interfaces.VisibilityNotifier
func (p *TerminalPage) OnVisibilityChange(handler func(visible bool)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.handlers[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.handlers, id)
			p.mu.Unlock()
		})
	}
}

// Close stops listening to the target.
func (p *TerminalPage) Close() {
	p.detach()
}

// set records the focus state and notifies listeners. Repeated reports
// are passed on as-is.
func (p *TerminalPage) set(focused bool) {
	p.mu.Lock()
	p.focused = focused
	handlers := make([]func(bool), 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h(focused)
	}
}
