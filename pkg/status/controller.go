package status

import (
	"context"
	"log/slog"
)

// Callbacks are the user hooks fired on idle/active edges. Nil hooks are skipped.
type Callbacks struct {
	OnIdle         func(ctx context.Context)
	OnActive       func(ctx context.Context)
	OnStatusChange func(ctx context.Context, idle bool)
}

// Controller holds the idle/active classification and is the only place
// that suppresses repeated notifications. It is owned by a single loop
// goroutine and does no locking of its own.
type Controller struct {
	idle      bool
	callbacks Callbacks
	live      func() bool
	logger    *slog.Logger
}

// NewController creates a controller starting at the given idle status.
// live reports whether the owning attachment still exists; the controller
// stops delivering callbacks as soon as it returns false.
func NewController(initial bool, callbacks Callbacks, live func() bool, logger *slog.Logger) *Controller {
	if live == nil {
		live = func() bool { return true }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		idle:      initial,
		callbacks: callbacks,
		live:      live,
		logger:    logger,
	}
}

// Idle returns the recorded classification.
func (c *Controller) Idle() bool {
	return c.idle
}

// SetIdle records status and fires the callbacks if it is an edge.
// It reports whether the value changed.
func (c *Controller) SetIdle(ctx context.Context, status bool) bool {
	if !c.live() || status == c.idle {
		return false
	}

	c.idle = status
	c.logger.Debug("status changed", "idle", status)

	if cb := c.callbacks.OnStatusChange; cb != nil {
		cb(ctx, status)
	}

	// A callback may have destroyed the detector or flipped the status again.
	if !c.live() || c.idle != status {
		return true
	}

	if status {
		if cb := c.callbacks.OnIdle; cb != nil {
			cb(ctx)
		}
	} else {
		if cb := c.callbacks.OnActive; cb != nil {
			cb(ctx)
		}
	}
	return true
}
