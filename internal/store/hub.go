package store

import "sync"

// Hub fans out change signals to in-process subscribers, keyed by Day.Key().
// Signals are coalesced: a listener that is behind receives at most one
// pending signal and reloads the latest state.
type Hub struct {
	mu        sync.Mutex
	listeners map[string]map[chan struct{}]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{listeners: make(map[string]map[chan struct{}]struct{})}
}

// Listen registers a listener for key. The returned func unregisters it and
// closes the channel.
func (h *Hub) Listen(key string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	set, ok := h.listeners[key]
	if !ok {
		set = make(map[chan struct{}]struct{})
		h.listeners[key] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.listeners[key], ch)
			if len(h.listeners[key]) == 0 {
				delete(h.listeners, key)
			}
			close(ch)
		})
	}
}

// Notify signals every listener of key without blocking.
func (h *Hub) Notify(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.listeners[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Listeners returns how many listeners are registered for key.
func (h *Hub) Listeners(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners[key])
}
