package idle

import (
	"context"
	"time"

	"github.com/Veraticus/idlewatch/pkg/visibility"
)

// DefaultIdleCheckPeriod is how long without activity before going idle.
const DefaultIdleCheckPeriod = 60 * time.Second

// DefaultTrackEvents are the input events that count as activity.
var DefaultTrackEvents = []string{
	"mousemove",
	"mousedown",
	"keydown",
	"keypress",
	"keyup",
	"submit",
	"change",
	"mouseenter",
	"scroll",
	"resize",
	"touchstart",
}

// Config holds the options for one attachment. Zero values mean "use the
// default"; the pointer fields distinguish an explicit false from unset.
type Config struct {
	// IdleCheckPeriod is the inactivity interval before OnIdle fires.
	IdleCheckPeriod time.Duration

	// TrackEvents lists the event names that reset the activity timer.
	TrackEvents []string

	OnIdle         func(ctx context.Context)
	OnActive       func(ctx context.Context)
	OnHide         func(ctx context.Context)
	OnShow         func(ctx context.Context)
	OnStatusChange func(ctx context.Context, idle bool)

	// KeepTracking keeps the timer recurring. When false, idle is detected
	// once and the timer is not re-armed after that. Default true.
	// Either way OnIdle fires once per idle crossing: later ticks with no
	// activity in between repeat the idle status, which is a no-op.
	KeepTracking *bool

	// IdleStatus is the initial status. Default is !page.HasFocus().
	IdleStatus *bool

	// VisibilityCheckInterval is the poll period for pages that can't push
	// visibility changes.
	VisibilityCheckInterval time.Duration
}

// Bool returns a pointer to b, for the optional Config fields.
func Bool(b bool) *bool {
	return &b
}

// DefaultConfig returns the default configuration. IdleStatus stays unset
// because it depends on the page.
func DefaultConfig() Config {
	return Config{
		IdleCheckPeriod:         DefaultIdleCheckPeriod,
		TrackEvents:             append([]string(nil), DefaultTrackEvents...),
		KeepTracking:            Bool(true),
		VisibilityCheckInterval: visibility.DefaultCheckInterval,
	}
}

// merge lays user over c and returns the result. Slices and pointers are
// copied so later changes by the caller don't leak into a live attachment.
func (c Config) merge(user *Config) Config {
	out := c
	if user != nil {
		if user.IdleCheckPeriod > 0 {
			out.IdleCheckPeriod = user.IdleCheckPeriod
		}
		if user.TrackEvents != nil {
			out.TrackEvents = user.TrackEvents
		}
		if user.OnIdle != nil {
			out.OnIdle = user.OnIdle
		}
		if user.OnActive != nil {
			out.OnActive = user.OnActive
		}
		if user.OnHide != nil {
			out.OnHide = user.OnHide
		}
		if user.OnShow != nil {
			out.OnShow = user.OnShow
		}
		if user.OnStatusChange != nil {
			out.OnStatusChange = user.OnStatusChange
		}
		if user.KeepTracking != nil {
			out.KeepTracking = user.KeepTracking
		}
		if user.IdleStatus != nil {
			out.IdleStatus = user.IdleStatus
		}
		if user.VisibilityCheckInterval > 0 {
			out.VisibilityCheckInterval = user.VisibilityCheckInterval
		}
	}

	out.TrackEvents = append([]string(nil), out.TrackEvents...)
	if out.KeepTracking != nil {
		out.KeepTracking = Bool(*out.KeepTracking)
	}
	if out.IdleStatus != nil {
		out.IdleStatus = Bool(*out.IdleStatus)
	}
	return out
}

func (c Config) keepTracking() bool {
	return c.KeepTracking == nil || *c.KeepTracking
}
