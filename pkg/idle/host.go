// Package idle classifies a session as idle or active from input events
// and page visibility, and notifies observers on transitions.
//
// A Host owns the attachments for one page and one loop. Bind a set of
// targets to get a Selection, then Init it with a Config:
//
//	host := idle.NewHost(l, page, logger)
//	sel, err := host.Bind(terminal).Init(ctx, &idle.Config{
//		IdleCheckPeriod: 2 * time.Minute,
//		OnIdle:          func(ctx context.Context) { ... },
//	})
//
// Callbacks run on the loop goroutine and receive a context that lets them
// call back into the Selection (for example Destroy from OnIdle) without
// deadlocking. That context must not be kept after the callback returns.
package idle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Veraticus/idlewatch/pkg/activity"
	"github.com/Veraticus/idlewatch/pkg/interfaces"
	"github.com/Veraticus/idlewatch/pkg/loop"
	"github.com/Veraticus/idlewatch/pkg/status"
	"github.com/Veraticus/idlewatch/pkg/visibility"
)

// Host tracks which targets are attached so that attaching a target twice
// replaces the earlier attachment instead of stacking listeners.
type Host struct {
	loop   *loop.Loop
	page   interfaces.Page
	logger *slog.Logger

	// loop-owned
	attached map[interfaces.Target]*DetectorState
}

// NewHost creates a host. page may be nil when the platform can't report
// focus; the detector then starts idle-biased.
func NewHost(l *loop.Loop, page interfaces.Page, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		loop:     l,
		page:     page,
		logger:   logger,
		attached: make(map[interfaces.Target]*DetectorState),
	}
}

// Bind returns a selection over targets. Nothing is attached until Init.
func (h *Host) Bind(targets ...interfaces.Target) *Selection {
	return &Selection{
		host:    h,
		targets: append([]interfaces.Target(nil), targets...),
	}
}

// Attachments returns the number of live attachments.
func (h *Host) Attachments(ctx context.Context) (int, error) {
	var n int
	err := h.loop.Call(ctx, func(context.Context) {
		seen := make(map[*DetectorState]bool)
		for _, st := range h.attached {
			seen[st] = true
		}
		n = len(seen)
	})
	return n, err
}

// attach builds and starts a new attachment for targets. Runs on the loop.
func (h *Host) attach(targets []interfaces.Target, user *Config) *DetectorState {
	for _, target := range targets {
		if prev, ok := h.attached[target]; ok {
			h.detach(prev)
		}
	}

	cfg := DefaultConfig().merge(user)

	initial := !(h.page != nil && h.page.HasFocus())
	if cfg.IdleStatus != nil {
		initial = *cfg.IdleStatus
	}

	st := &DetectorState{
		id:      uuid.NewString(),
		config:  cfg,
		targets: targets,
	}
	logger := h.logger.With("attachment", st.id)

	st.controller = status.NewController(initial, status.Callbacks{
		OnIdle:         cfg.OnIdle,
		OnActive:       cfg.OnActive,
		OnStatusChange: cfg.OnStatusChange,
	}, st.live, logger)

	st.activity = activity.New(h.loop,
		func(ctx context.Context) { st.controller.SetIdle(ctx, true) },
		func(ctx context.Context) { st.controller.SetIdle(ctx, false) },
		logger,
	)

	st.visibility = visibility.New(h.loop, h.page, cfg.VisibilityCheckInterval, visibility.Callbacks{
		OnHide: st.guard(cfg.OnHide),
		OnShow: st.guard(cfg.OnShow),
	}, st.onActivity, logger)

	st.visibility.Start()
	st.activity.Arm(cfg.IdleCheckPeriod, cfg.keepTracking())

	for _, target := range targets {
		h.attached[target] = st
		unsub := target.Subscribe(cfg.TrackEvents, func(interfaces.Event) {
			_ = h.loop.Post(st.onActivity)
		})
		st.unsubscribe = append(st.unsubscribe, unsub)
	}

	logger.Info("detector attached",
		"targets", len(targets),
		"idle_check_period", cfg.IdleCheckPeriod,
		"keep_tracking", cfg.keepTracking(),
		"idle", initial,
		"visibility", st.visibility.StrategyName(),
	)
	return st
}

// detach tears down st and forgets its targets. Runs on the loop.
func (h *Host) detach(st *DetectorState) {
	if st == nil || st.destroyed {
		return
	}
	st.teardown()
	for _, target := range st.targets {
		if h.attached[target] == st {
			delete(h.attached, target)
		}
	}
	h.logger.Info("detector destroyed", "attachment", st.id)
}

// Selection is a set of targets sharing one attachment.
type Selection struct {
	host    *Host
	targets []interfaces.Target

	// loop-owned
	state *DetectorState
}

// Targets returns the bound targets.
func (s *Selection) Targets() []interfaces.Target {
	return append([]interfaces.Target(nil), s.targets...)
}

// Init attaches the detector to the selection, first destroying any
// attachment already present on its targets. cfg may be nil.
func (s *Selection) Init(ctx context.Context, cfg *Config) (*Selection, error) {
	if len(s.targets) == 0 {
		return s, ErrNoTargets
	}
	err := s.host.loop.Call(ctx, func(context.Context) {
		s.host.detach(s.state)
		s.state = s.host.attach(s.targets, cfg)
	})
	if err != nil {
		return s, fmt.Errorf("init: %w", err)
	}
	return s, nil
}

// Destroy detaches listeners and cancels timers for every target in the
// selection. No callback fires for those targets once Destroy returns.
func (s *Selection) Destroy(ctx context.Context) (*Selection, error) {
	err := s.host.loop.Call(ctx, func(context.Context) {
		s.host.detach(s.state)
		for _, target := range s.targets {
			s.host.detach(s.host.attached[target])
		}
		s.state = nil
	})
	if err != nil {
		return s, fmt.Errorf("destroy: %w", err)
	}
	return s, nil
}

// Idle reports the current classification. ok is false when nothing is attached.
func (s *Selection) Idle(ctx context.Context) (idle, ok bool, err error) {
	err = s.host.loop.Call(ctx, func(context.Context) {
		if st := s.current(); st != nil {
			idle, ok = st.Idle(), true
		}
	})
	return idle, ok, err
}

// Visible reports the last known page visibility. ok is false when nothing is attached.
func (s *Selection) Visible(ctx context.Context) (visible, ok bool, err error) {
	err = s.host.loop.Call(ctx, func(context.Context) {
		if st := s.current(); st != nil {
			visible, ok = st.Visible(), true
		}
	})
	return visible, ok, err
}

// State returns the live attachment, or nil. The returned value must only
// be read on the loop goroutine.
func (s *Selection) State(ctx context.Context) (*DetectorState, error) {
	var st *DetectorState
	err := s.host.loop.Call(ctx, func(context.Context) { st = s.current() })
	return st, err
}

// current returns the live attachment covering the selection, which may
// have been created through another selection on the same targets.
func (s *Selection) current() *DetectorState {
	if s.state != nil && !s.state.destroyed {
		return s.state
	}
	for _, target := range s.targets {
		if st := s.host.attached[target]; st != nil {
			return st
		}
	}
	return nil
}
