package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Timer is a timeout or interval whose callback runs on the loop.
type Timer struct {
	loop     *Loop
	period   time.Duration
	interval bool
	fn       func(ctx context.Context)

	stopped atomic.Bool
	fired   atomic.Int64

	mu    sync.Mutex
	clock ClockTimer
}

// SetTimeout runs fn on the loop once, after d.
func (l *Loop) SetTimeout(d time.Duration, fn func(ctx context.Context)) *Timer {
	return l.schedule(d, false, fn)
}

// SetInterval runs fn on the loop every d until the timer is stopped.
func (l *Loop) SetInterval(d time.Duration, fn func(ctx context.Context)) *Timer {
	return l.schedule(d, true, fn)
}

func (l *Loop) schedule(d time.Duration, interval bool, fn func(ctx context.Context)) *Timer {
	t := &Timer{
		loop:     l,
		period:   d,
		interval: interval,
		fn:       fn,
	}
	t.mu.Lock()
	t.clock = l.clock.AfterFunc(d, t.expire)
	t.mu.Unlock()
	return t
}

// expire runs on the clock goroutine.
func (t *Timer) expire() {
	if t.stopped.Load() {
		return
	}

	if err := t.loop.Post(t.run); err != nil {
		return
	}

	if t.interval {
		t.mu.Lock()
		if !t.stopped.Load() {
			t.clock = t.loop.clock.AfterFunc(t.period, t.expire)
		}
		t.mu.Unlock()
	}
}

// run executes on the loop. A task posted before Stop was called is
// discarded here.
func (t *Timer) run(ctx context.Context) {
	if t.stopped.Load() {
		return
	}
	t.fired.Add(1)
	if !t.interval {
		t.stopped.Store(true)
	}
	t.fn(ctx)
}

// Stop cancels the timer. It is safe on a nil, fired or stopped timer.
func (t *Timer) Stop() {
	if t == nil {
		return
	}
	t.stopped.Store(true)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.clock != nil {
		t.clock.Stop()
	}
}

// Active reports whether the timer can still fire.
func (t *Timer) Active() bool {
	return t != nil && !t.stopped.Load()
}

// Fired returns how many times the callback has run.
func (t *Timer) Fired() int {
	if t == nil {
		return 0
	}
	return int(t.fired.Load())
}

// Period returns the timer's delay or interval.
func (t *Timer) Period() time.Duration {
	return t.period
}
