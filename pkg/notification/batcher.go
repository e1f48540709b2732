package notification

import (
	"sync"
	"time"

	"github.com/Veraticus/idlewatch/pkg/loop"
)

// Batcher groups notifications within a time window
type Batcher struct {
	window   time.Duration
	callback func([]Notification)
	clock    loop.Clock

	mu      sync.Mutex
	pending []Notification
	timer   loop.ClockTimer
}

// NewBatcher creates a batcher. The window starts with the first
// notification added. A nil clock means the real clock.
func NewBatcher(window time.Duration, clock loop.Clock, callback func([]Notification)) *Batcher {
	if clock == nil {
		clock = loop.RealClock()
	}
	return &Batcher{
		window:   window,
		callback: callback,
		clock:    clock,
	}
}

// Add adds a notification to the batch
func (b *Batcher) Add(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, n)
	if b.timer == nil {
		b.timer = b.clock.AfterFunc(b.window, b.flush)
	}
}

// Pending returns the number of notifications waiting for the window to close.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// flush hands all pending notifications to the callback
func (b *Batcher) flush() {
	b.mu.Lock()
	toSend := b.pending
	b.pending = nil
	b.timer = nil
	b.mu.Unlock()

	if len(toSend) > 0 {
		b.callback(toSend)
	}
}

// Flush immediately sends any pending notifications
func (b *Batcher) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.mu.Unlock()

	b.flush()
}
