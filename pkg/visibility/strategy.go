package visibility

import (
	"context"
	"time"

	"github.com/Veraticus/idlewatch/pkg/interfaces"
	"github.com/Veraticus/idlewatch/pkg/loop"
)

// Strategy is how the monitor learns about visibility changes. report is
// always invoked on the loop goroutine.
type Strategy interface {
	Start(report func(ctx context.Context, visible bool))
	Stop()
	Name() string
}

// Select picks the strategy for a page: push notifications when the page
// offers them, polling HasFocus otherwise, and nothing for a nil page.
func Select(l *loop.Loop, page interfaces.Page, interval time.Duration) Strategy {
	if page == nil {
		return nullStrategy{}
	}
	if notifier, ok := page.(interfaces.VisibilityNotifier); ok {
		return &eventStrategy{loop: l, page: notifier}
	}
	return &pollStrategy{loop: l, page: page, interval: interval}
}

// eventStrategy relays every change the page pushes, duplicates included.
type eventStrategy struct {
	loop   *loop.Loop
	page   interfaces.VisibilityNotifier
	cancel func()
	gen    uint64
}

func (s *eventStrategy) Name() string { return "event" }

func (s *eventStrategy) Start(report func(ctx context.Context, visible bool)) {
	s.Stop()
	s.gen++
	gen := s.gen

	s.cancel = s.page.OnVisibilityChange(func(visible bool) {
		_ = s.loop.Post(func(ctx context.Context) {
			if s.gen != gen || s.cancel == nil {
				return
			}
			report(ctx, visible)
		})
	})
}

func (s *eventStrategy) Stop() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

// pollStrategy samples HasFocus and reports edges.
type pollStrategy struct {
	loop     *loop.Loop
	page     interfaces.Page
	interval time.Duration
	timer    *loop.Timer
	last     bool
}

func (s *pollStrategy) Name() string { return "poll" }

func (s *pollStrategy) Start(report func(ctx context.Context, visible bool)) {
	s.Stop()
	s.last = s.page.HasFocus()

	s.timer = s.loop.SetInterval(s.interval, func(ctx context.Context) {
		focused := s.page.HasFocus()
		if focused == s.last {
			return
		}
		s.last = focused
		report(ctx, focused)
	})
}

func (s *pollStrategy) Stop() {
	s.timer.Stop()
	s.timer = nil
}

// Timer exposes the pending poll, for inspection.
func (s *pollStrategy) Timer() *loop.Timer {
	return s.timer
}

// nullStrategy is used when the platform has no way to tell.
type nullStrategy struct{}

func (nullStrategy) Name() string                                  { return "none" }
func (nullStrategy) Start(func(ctx context.Context, visible bool)) {}
func (nullStrategy) Stop()                                         {}
