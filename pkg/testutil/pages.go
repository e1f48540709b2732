package testutil

import (
	"sync"

	"github.com/Veraticus/idlewatch/pkg/interfaces"
)

// MockPage is a pollable page whose focus is set by the test.
type MockPage struct {
	mu      sync.Mutex
	focused bool
	polls   int
}

// NewMockPage creates a page with the given focus.
func NewMockPage(focused bool) *MockPage {
	return &MockPage{focused: focused}
}

// Ensure MockPage implements Page
var _ interfaces.Page = (*MockPage)(nil)

// HasFocus implements interfaces.Page
func (p *MockPage) HasFocus() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls++
	return p.focused
}

// SetFocused changes what HasFocus returns.
func (p *MockPage) SetFocused(focused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.focused = focused
}

// Polls returns how many times HasFocus was called.
func (p *MockPage) Polls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

// MockVisibilityPage pushes visibility changes when the test calls Emit.
type MockVisibilityPage struct {
	MockPage

	mu       sync.Mutex
	handlers map[int]func(bool)
	nextID   int
}

// NewMockVisibilityPage creates a push-capable page with the given focus.
func NewMockVisibilityPage(focused bool) *MockVisibilityPage {
	return &MockVisibilityPage{
		MockPage: MockPage{focused: focused},
		handlers: make(map[int]func(bool)),
	}
}

// Ensure MockVisibilityPage implements VisibilityNotifier
var _ interfaces.VisibilityNotifier = (*MockVisibilityPage)(nil)

// OnVisibilityChange implements interfaces.VisibilityNotifier
func (p *MockVisibilityPage) OnVisibilityChange(handler func(visible bool)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.handlers[id] = handler

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.handlers, id)
	}
}

// Emit delivers a visibility change to every listener.
func (p *MockVisibilityPage) Emit(visible bool) {
	p.SetFocused(visible)

	p.mu.Lock()
	handlers := make([]func(bool), 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h(visible)
	}
}

// Listeners returns the number of attached listeners.
func (p *MockVisibilityPage) Listeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handlers)
}
