package idle

import (
	"context"

	"github.com/Veraticus/idlewatch/pkg/activity"
	"github.com/Veraticus/idlewatch/pkg/interfaces"
	"github.com/Veraticus/idlewatch/pkg/loop"
	"github.com/Veraticus/idlewatch/pkg/status"
	"github.com/Veraticus/idlewatch/pkg/visibility"
)

// DetectorState is everything one attachment owns. It is created by Init,
// mutated only on the loop goroutine and made inert by destroy.
type DetectorState struct {
	id      string
	config  Config
	targets []interfaces.Target

	controller *status.Controller
	activity   *activity.Timer
	visibility *visibility.Monitor

	unsubscribe []func()
	destroyed   bool
}

// ID returns the attachment identifier used in log records.
func (s *DetectorState) ID() string {
	return s.id
}

// Config returns the merged configuration.
func (s *DetectorState) Config() Config {
	return s.config
}

// Idle returns the last delivered classification.
func (s *DetectorState) Idle() bool {
	return s.controller.Idle()
}

// Visible returns the last known page visibility.
func (s *DetectorState) Visible() bool {
	return s.visibility.Visible()
}

// ActivityTimer returns the pending idle-expiry timer, or nil.
func (s *DetectorState) ActivityTimer() *loop.Timer {
	return s.activity.Handle()
}

// Destroyed reports whether the attachment has been torn down.
func (s *DetectorState) Destroyed() bool {
	return s.destroyed
}

func (s *DetectorState) live() bool {
	return !s.destroyed
}

// onActivity handles a tracked input event.
func (s *DetectorState) onActivity(ctx context.Context) {
	if s.destroyed {
		return
	}
	s.activity.Reset(ctx)
}

// guard wraps a hook so it never runs for a destroyed attachment.
func (s *DetectorState) guard(cb func(ctx context.Context)) func(ctx context.Context) {
	if cb == nil {
		return nil
	}
	return func(ctx context.Context) {
		if s.destroyed {
			return
		}
		cb(ctx)
	}
}

// teardown cancels timers and detaches listeners. Idempotent.
func (s *DetectorState) teardown() {
	if s.destroyed {
		return
	}
	s.destroyed = true

	s.activity.Close()
	s.visibility.Stop()
	for _, unsub := range s.unsubscribe {
		unsub()
	}
	s.unsubscribe = nil
}
