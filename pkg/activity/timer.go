// Package activity implements the inactivity timer behind idle detection.
package activity

import (
	"context"
	"log/slog"
	"time"

	"github.com/Veraticus/idlewatch/pkg/loop"
)

// Timer fires after a period without activity. In keep-tracking mode the
// timer is recurring and re-armed on every reset; otherwise it fires once
// and stops re-arming after that first expiry.
//
// All methods must be called on the loop goroutine.
type Timer struct {
	loop   *loop.Loop
	logger *slog.Logger

	onExpire   func(ctx context.Context)
	onActivity func(ctx context.Context)

	interval  time.Duration
	recurring bool
	handle    *loop.Timer
	fired     bool
	closed    bool
}

// New creates an unarmed timer. onExpire runs when the period elapses;
// onActivity runs at the start of every Reset.
func New(l *loop.Loop, onExpire, onActivity func(ctx context.Context), logger *slog.Logger) *Timer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Timer{
		loop:       l,
		logger:     logger,
		onExpire:   onExpire,
		onActivity: onActivity,
	}
}

// Arm schedules expiry after interval, replacing any pending timer.
func (t *Timer) Arm(interval time.Duration, recurring bool) *loop.Timer {
	t.Cancel()
	if t.closed {
		return nil
	}

	t.interval = interval
	t.recurring = recurring
	t.fired = false

	if recurring {
		t.handle = t.loop.SetInterval(interval, t.expire)
	} else {
		t.handle = t.loop.SetTimeout(interval, t.expire)
	}
	return t.handle
}

// Reset reports activity, cancels the pending timer and re-arms a fresh one
// unless tracking stopped after a one-shot expiry. It returns the new handle
// or nil when nothing was re-armed.
func (t *Timer) Reset(ctx context.Context) *loop.Timer {
	if t.closed {
		return nil
	}

	if t.onActivity != nil {
		t.onActivity(ctx)
	}

	t.Cancel()

	// onActivity may have closed us.
	if t.closed {
		return nil
	}
	if !t.recurring && t.fired {
		t.logger.Debug("activity timer not re-armed after one-shot expiry")
		return nil
	}
	if t.interval <= 0 {
		return nil
	}
	return t.Arm(t.interval, t.recurring)
}

// Cancel stops the pending timer. Safe to call repeatedly.
func (t *Timer) Cancel() {
	if t.handle != nil {
		t.handle.Stop()
		t.handle = nil
	}
}

// Close cancels the timer for good; later Arm and Reset calls do nothing.
func (t *Timer) Close() {
	t.closed = true
	t.Cancel()
}

// Handle returns the pending timer, or nil.
func (t *Timer) Handle() *loop.Timer {
	return t.handle
}

// Fired reports whether the timer has expired since it was last armed.
func (t *Timer) Fired() bool {
	return t.fired
}

func (t *Timer) expire(ctx context.Context) {
	if t.closed {
		return
	}
	t.fired = true
	if !t.recurring {
		t.handle = nil
	}
	t.logger.Debug("activity timer expired", "interval", t.interval, "recurring", t.recurring)

	if t.onExpire != nil {
		t.onExpire(ctx)
	}
}
