// Package visibility tracks whether the page is shown and focused.
package visibility

import (
	"context"
	"log/slog"
	"time"

	"github.com/Veraticus/idlewatch/pkg/interfaces"
	"github.com/Veraticus/idlewatch/pkg/loop"
)

// DefaultCheckInterval is the poll period used when none is configured.
const DefaultCheckInterval = time.Second

// Callbacks are the hide/show hooks. Nil hooks are skipped.
type Callbacks struct {
	OnHide func(ctx context.Context)
	OnShow func(ctx context.Context)
}

// Monitor reports hide/show transitions and treats becoming visible as
// activity. It is owned by the loop goroutine.
type Monitor struct {
	loop      *loop.Loop
	page      interfaces.Page
	interval  time.Duration
	callbacks Callbacks
	onVisible func(ctx context.Context)
	logger    *slog.Logger

	strategy Strategy
	visible  bool
	running  bool
}

// New creates a stopped monitor. onVisible runs after OnShow, and is where
// the detector resets its activity timer.
func New(l *loop.Loop, page interfaces.Page, interval time.Duration, callbacks Callbacks, onVisible func(ctx context.Context), logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		loop:      l,
		page:      page,
		interval:  interval,
		callbacks: callbacks,
		onVisible: onVisible,
		logger:    logger,
	}
}

// Start begins observing. A page without focus capability starts hidden.
func (m *Monitor) Start() {
	m.Stop()

	m.visible = m.page != nil && m.page.HasFocus()
	m.strategy = Select(m.loop, m.page, m.interval)
	m.running = true
	m.strategy.Start(m.handle)

	m.logger.Debug("visibility monitor started", "strategy", m.strategy.Name(), "visible", m.visible)
}

// Stop cancels polling and detaches listeners. Safe to call repeatedly.
func (m *Monitor) Stop() {
	if !m.running {
		return
	}
	m.running = false
	m.strategy.Stop()
}

// Visible returns the last known visibility.
func (m *Monitor) Visible() bool {
	return m.visible
}

// StrategyName returns the active strategy, or "" when stopped.
func (m *Monitor) StrategyName() string {
	if !m.running {
		return ""
	}
	return m.strategy.Name()
}

func (m *Monitor) handle(ctx context.Context, visible bool) {
	if !m.running {
		return
	}

	if !visible {
		m.visible = false
		m.logger.Debug("page hidden")
		if cb := m.callbacks.OnHide; cb != nil {
			cb(ctx)
		}
		return
	}

	m.visible = true
	m.logger.Debug("page visible")
	if cb := m.callbacks.OnShow; cb != nil {
		cb(ctx)
	}

	// OnShow may have stopped us.
	if m.running && m.onVisible != nil {
		m.onVisible(ctx)
	}
}
