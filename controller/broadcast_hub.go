package controller

import (
	"sync"
	"sync/atomic"
)

// Hub fans values out to any number of subscribers and keeps the latest one.
//
// Publish never blocks: a subscriber whose buffer is full misses the value
// and the drop counter goes up. This keeps sensor and scheduler goroutines
// free of back-pressure from slow WebSocket clients.
type Hub[T any] struct {
	mu     sync.Mutex
	subs   map[int]chan T
	nextID int

	latest    T
	hasLatest bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewHub creates an empty hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[int]chan T)}
}

// ─── subscribe / publish ────────────────────────────────────────────────

// Subscribe returns a channel receiving every value published from now on
// and a function that unsubscribes and closes the channel.
func (h *Hub[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan T, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish stores v as the latest value and offers it to every subscriber.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = v
	h.hasLatest = true
	h.published.Add(1)
	for _, ch := range h.subs {
		select {
		case ch <- v:
		default:
			h.dropped.Add(1)
		}
	}
}

// ─── inspection ─────────────────────────────────────────────────────────

// Latest returns the most recently published value.
func (h *Hub[T]) Latest() (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.hasLatest
}

// Subscribers returns the number of live subscriptions.
func (h *Hub[T]) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Stats returns published values and per-subscriber drops.
func (h *Hub[T]) Stats() (published, dropped uint64) {
	return h.published.Load(), h.dropped.Load()
}
