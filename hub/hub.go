package hub

import (
	"sync"

	"github.com/yeremiapane/restroflow/metrics"
	"github.com/yeremiapane/restroflow/utils"
)

// Event names what changed. Subscribers treat every event as "refetch".
type Event string

const (
	EventTables   Event = "tables"
	EventQueue    Event = "queue"
	EventSettings Event = "settings"
	EventWaiters  Event = "waiters"
)

// Hub fans change signals out to live dashboards. It is created when the server
// starts and closed when it stops.
type Hub struct {
	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	closed  bool
	metrics *metrics.Metrics
}

// Subscription receives at most one pending event; further broadcasts coalesce
// until the subscriber drains C.
type Subscription struct {
	C  <-chan Event
	ch chan Event
}

func New(m *metrics.Metrics) *Hub {
	return &Hub{
		subs:    make(map[*Subscription]struct{}),
		metrics: m,
	}
}

// Subscribe registers a listener. On a closed hub the returned channel is
// already closed.
func (h *Hub) Subscribe() *Subscription {
	ch := make(chan Event, 1)
	sub := &Subscription{C: ch, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	h.subs[sub] = struct{}{}
	h.metrics.SubscriberDelta(1)
	return sub
}

// Unsubscribe releases the slot. Safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.ch)
	h.metrics.SubscriberDelta(-1)
}

// Broadcast never blocks: a subscriber with a pending event already knows it
// must refetch.
func (h *Hub) Broadcast(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for sub := range h.subs {
		select {
		case sub.ch <- event:
		default:
		}
	}
	utils.InfoLogger.Debugf("Broadcast %s to %d subscribers", event, len(h.subs))
}

// Close ends every subscription; later Subscribe calls get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		close(sub.ch)
		delete(h.subs, sub)
		h.metrics.SubscriberDelta(-1)
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
