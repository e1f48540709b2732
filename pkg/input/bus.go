// Package input provides the event targets the detector listens to.
package input

import (
	"sync"
	"time"

	"github.com/Veraticus/idlewatch/pkg/interfaces"
)

// Bus is an in-memory target. Anything can Emit named events into it.
// It is also the building block of the terminal and OS targets.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*subscription
	nextID int
	now    func() time.Time
}

type subscription struct {
	events  map[string]struct{}
	handler func(interfaces.Event)
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[int]*subscription),
		now:  time.Now,
	}
}

// Ensure Bus implements Target
var _ interfaces.Target = (*Bus)(nil)

// Subscribe implements interfaces.Target
func (b *Bus) Subscribe(events []string, handler func(interfaces.Event)) func() {
	set := make(map[string]struct{}, len(events))
	for _, name := range events {
		set[name] = struct{}{}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = &subscription{events: set, handler: handler}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Emit delivers an event to every subscriber tracking name.
// It returns the number of handlers called.
func (b *Bus) Emit(name string) int {
	ev := interfaces.Event{Name: name, Time: b.now()}

	b.mu.RLock()
	var handlers []func(interfaces.Event)
	for _, sub := range b.subs {
		if _, ok := sub.events[name]; ok {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
	return len(handlers)
}

// Subscribers returns the number of attached handlers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
