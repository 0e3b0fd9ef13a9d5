package preview

import (
	"sort"
	"sync"

	"github.com/leapstack-labs/fetchsql/internal/convert"
)

// Event is the latest translation of a watched file.
type Event struct {
	Path   string          `json:"path"`
	Result *convert.Result `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Hub broadcasts preview events to all subscribed listeners and remembers
// the last event per file for late subscribers.
type Hub struct {
	mu        sync.RWMutex
	listeners map[chan Event]struct{}
	last      map[string]Event
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		listeners: make(map[chan Event]struct{}),
		last:      make(map[string]Event),
	}
}

// Subscribe returns a channel that receives every published event.
// The caller must call Unsubscribe when done to prevent goroutine leaks.
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, 8)
	h.mu.Lock()
	h.listeners[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	delete(h.listeners, ch)
	h.mu.Unlock()
	close(ch)
}

// Publish records ev and sends it to all listeners.
// Non-blocking: a listener whose buffer is full misses the event and
// catches up on the next one.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last[ev.Path] = ev
	for ch := range h.listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Snapshot returns the last event of every file, ordered by path.
func (h *Hub) Snapshot() []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Event, 0, len(h.last))
	for _, ev := range h.last {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
