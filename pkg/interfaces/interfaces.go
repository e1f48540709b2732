// Package interfaces defines the core interfaces used throughout the application.
package interfaces

import "time"

// Event is a named input event delivered by a Target.
type Event struct {
	Name string
	Time time.Time
}

// Target emits named input events, the way a DOM element does.
// Subscribe must not block; handler may be called from any goroutine.
// The returned function detaches the handler and is safe to call twice.
//
// Targets are used as map keys, so implementations must be comparable
// (pointer receivers in practice).
type Target interface {
	Subscribe(events []string, handler func(Event)) (unsubscribe func())
}

// Page reports whether the page currently has input focus.
type Page interface {
	HasFocus() bool
}

// VisibilityNotifier is implemented by pages that push visibility and
// focus changes instead of being polled. visible is true only when the
// page is both shown and focused.
type VisibilityNotifier interface {
	Page
	OnVisibilityChange(handler func(visible bool)) (cancel func())
}

// ProcessWrapper wraps and monitors a process.
type ProcessWrapper interface {
	Start(command string, args []string) error
	Wait() error
	ExitCode() int
}

// InputHandler receives raw bytes typed into the wrapped terminal.
type InputHandler interface {
	HandleInput(data []byte)
}

// RateLimiter limits notification frequency.
type RateLimiter interface {
	Allow() bool
	Reset()
}
