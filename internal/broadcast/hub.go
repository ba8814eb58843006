package broadcast

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Event types published to subscribers.
const (
	EventPosition   = "position"
	EventVesselInfo = "vessel_info"
)

// Event is one realtime update. For a single MMSI, events reach every
// subscriber in the order the pipeline accepted them.
type Event struct {
	Type    string `json:"type"`
	MMSI    string `json:"mmsi"`
	Payload any    `json:"payload"`
}

// DefaultQueueSize bounds each subscriber's outbound queue.
const DefaultQueueSize = 256

// Subscriber is one consumer of the event stream. Events arrives on C;
// when the hub closes the subscription, C is closed.
type Subscriber struct {
	C chan Event

	hub     *Hub
	dropped uint64
}

// Dropped reports how many events were discarded because this subscriber's
// queue was full. Only meaningful under the hub lock-free read tolerance;
// it is a monotone diagnostic counter, not an exact sequence.
func (s *Subscriber) Dropped() uint64 {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.dropped
}

// Close removes the subscriber from the hub. Safe to call more than once.
func (s *Subscriber) Close() {
	s.hub.unsubscribe(s)
}

// Hub fans accepted pipeline updates out to subscribers. Publication never
// blocks: a subscriber whose queue is full loses its oldest queued event.
type Hub struct {
	logger *logrus.Logger

	mu        sync.Mutex
	subs      map[*Subscriber]struct{}
	queueSize int
	published uint64
}

// NewHub creates a hub with the given per-subscriber queue size
// (DefaultQueueSize when n <= 0).
func NewHub(logger *logrus.Logger, queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		logger:    logger,
		subs:      make(map[*Subscriber]struct{}),
		queueSize: queueSize,
	}
}

// Subscribe registers a new consumer.
func (h *Hub) Subscribe() *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := &Subscriber{
		C:   make(chan Event, h.queueSize),
		hub: h,
	}
	h.subs[s] = struct{}{}
	return s
}

func (h *Hub) unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.C)
}

// Subscribers reports the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Published reports the total number of events accepted for fan-out.
func (h *Hub) Published() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.published
}

// Publish delivers the event to every subscriber without blocking. When a
// subscriber's queue is full, its oldest queued event is dropped to make
// room, so a stalled consumer can never hold up ingestion.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.published++
	for s := range h.subs {
		select {
		case s.C <- ev:
			continue
		default:
		}
		// Queue full: shed the oldest event, then retry once.
		select {
		case <-s.C:
			s.dropped++
		default:
		}
		select {
		case s.C <- ev:
		default:
			s.dropped++
		}
	}
}
