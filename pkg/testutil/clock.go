package testutil

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/idlewatch/pkg/loop"
)

// FakeClock is a manually advanced loop.Clock.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*FakeTimer
}

// FakeTimer is a timer created by FakeClock.
type FakeTimer struct {
	clock    *FakeClock
	deadline time.Time
	seq      int
	f        func()
	stopped  bool
}

// NewFakeClock creates a clock starting at a fixed instant.
func NewFakeClock() *FakeClock {
	return &FakeClock{
		now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Ensure FakeClock implements loop.Clock
var _ loop.Clock = (*FakeClock)(nil)

// Now returns the fake current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc registers f to run once the clock has advanced by d.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) loop.ClockTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &FakeTimer{
		clock:    c,
		deadline: c.now.Add(d),
		seq:      c.seq,
		f:        f,
	}
	c.timers = append(c.timers, t)
	return t
}

// Stop cancels the timer.
func (t *FakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped {
		return false
	}
	t.stopped = true
	t.clock.removeLocked(t)
	return true
}

// Advance moves the clock forward, firing due timers in deadline order.
// Timers registered by a firing callback fire too if they fall due inside
// the window.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.deadline
		next.stopped = true
		c.removeLocked(next)
		c.mu.Unlock()

		next.f()
	}
}

// Pending returns the number of timers that have not fired or been stopped.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *FakeClock) nextDueLocked(target time.Time) *FakeTimer {
	if len(c.timers) == 0 {
		return nil
	}
	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].deadline.Equal(c.timers[j].deadline) {
			return c.timers[i].seq < c.timers[j].seq
		}
		return c.timers[i].deadline.Before(c.timers[j].deadline)
	})
	if c.timers[0].deadline.After(target) {
		return nil
	}
	return c.timers[0]
}

func (c *FakeClock) removeLocked(t *FakeTimer) {
	for i, other := range c.timers {
		if other == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return
		}
	}
}

// Drain blocks until every task posted to l so far has run.
func Drain(t *testing.T, l *loop.Loop) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := l.Call(ctx, func(context.Context) {}); err != nil {
		t.Fatalf("Drain: %v", err)
	}
}

// StartedLoop returns a running loop on a fake clock, closed at test end.
func StartedLoop(t *testing.T) (*loop.Loop, *FakeClock) {
	t.Helper()

	clock := NewFakeClock()
	l := loop.New(loop.WithClock(clock))
	l.Start()
	t.Cleanup(l.Close)
	return l, clock
}
