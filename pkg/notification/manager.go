package notification

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Veraticus/idlewatch/pkg/config"
	"github.com/Veraticus/idlewatch/pkg/interfaces"
	"github.com/Veraticus/idlewatch/pkg/loop"
)

// queueSize bounds the notifications waiting for the notifier.
const queueSize = 32

// Manager orchestrates notification sending with batching and rate
// limiting. Send never blocks on the network: delivery happens on a
// worker goroutine, so it is safe to call from detector callbacks.
type Manager struct {
	config      *config.Config
	notifier    Notifier
	rateLimiter interfaces.RateLimiter
	batcher     *Batcher
	clock       loop.Clock
	logger      *slog.Logger

	mu     sync.Mutex
	queue  chan Notification
	done   chan struct{}
	closed bool
}

// NewManager creates a manager and starts its worker. rateLimiter may be nil.
func NewManager(cfg *config.Config, notifier Notifier, rateLimiter interfaces.RateLimiter, clock loop.Clock, logger *slog.Logger) *Manager {
	if clock == nil {
		clock = loop.RealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		config:      cfg,
		notifier:    notifier,
		rateLimiter: rateLimiter,
		clock:       clock,
		logger:      logger,
		queue:       make(chan Notification, queueSize),
		done:        make(chan struct{}),
	}

	if cfg.BatchWindow > 0 {
		m.batcher = NewBatcher(cfg.BatchWindow, clock, m.sendBatch)
	}

	go m.worker()
	return m
}

// Send queues or batches a notification. Notifications over the rate
// limit, or arriving when the queue is full, are dropped.
func (m *Manager) Send(notification Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("notification manager closed")
	}

	if m.rateLimiter != nil && !m.rateLimiter.Allow() {
		m.logger.Debug("notification rate limited", "transition", notification.Transition)
		return nil
	}

	if m.batcher != nil {
		m.batcher.Add(notification)
		return nil
	}

	m.enqueueLocked(notification)
	return nil
}

func (m *Manager) enqueueLocked(n Notification) {
	select {
	case m.queue <- n:
	default:
		m.logger.Warn("notification queue full, dropping", "transition", n.Transition)
	}
}

// sendBatch delivers a batch, combining it when it holds more than one.
func (m *Manager) sendBatch(notifications []Notification) {
	n := notifications[0]
	if len(notifications) > 1 {
		n = Notification{
			Title:      fmt.Sprintf("idlewatch: %d transitions", len(notifications)),
			Message:    formatBatchMessage(notifications),
			Time:       m.clock.Now(),
			Transition: "batch",
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.enqueueLocked(n)
	}
}

func (m *Manager) worker() {
	defer close(m.done)

	for n := range m.queue {
		if err := m.notifier.Send(n); err != nil {
			m.logger.Error("failed to send notification", "transition", n.Transition, "error", err)
			continue
		}
		m.logger.Debug("notification sent", "transition", n.Transition, "title", n.Title)
	}
}

// Close flushes pending batches and waits for queued notifications to be
// delivered.
func (m *Manager) Close() error {
	if m.batcher != nil {
		m.batcher.Flush()
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	<-m.done
	return nil
}

// formatBatchMessage formats multiple notifications into a single message
func formatBatchMessage(notifications []Notification) string {
	lines := make([]string, 0, len(notifications))
	for _, n := range notifications {
		lines = append(lines, n.Time.Format("15:04:05")+" "+n.Transition+": "+n.Message)
	}
	return strings.Join(lines, "\n")
}
