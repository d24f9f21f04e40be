// Package events carries the pipeline's transition signals to whoever needs
// them: connectivity flips, sync lifecycle, badge updates.
package events

import "sync"

// Type identifies an event on the bus.
type Type string

const (
	WentOnline   Type = "wentOnline"
	WentOffline  Type = "wentOffline"
	SyncStarted  Type = "syncStarted"
	SyncFinished Type = "syncFinished"
)

// SyncSummary is the payload of SyncFinished.
type SyncSummary struct {
	Synced int
	Failed int
}

// Handler receives an event payload. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(payload any)

// Bus is a minimal in-process pub/sub. Every subscription returns an
// explicit cancel so listeners are torn down with their owning lifecycle
// instead of leaking across sessions.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[Type]map[int]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Type]map[int]Handler)}
}

// Subscribe registers a handler for one event type and returns its teardown.
// Cancelling twice is harmless.
func (b *Bus) Subscribe(t Type, h Handler) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[t] == nil {
		b.subs[t] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[t][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[t], id)
	}
}

// Publish delivers the payload to every handler subscribed to t.
func (b *Bus) Publish(t Type, payload any) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs[t]))
	for _, h := range b.subs[t] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(payload)
	}
}
