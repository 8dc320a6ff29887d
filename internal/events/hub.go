package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/minimarket/internal/dependencies/clock"
	"github.com/mcoot/minimarket/internal/model"
)

const (
	// Buffer size for each subscriber's pending events
	subscriberBufferSize = 64

	// Buffer size for events waiting to be fanned out
	publishBufferSize = 256
)

// Publisher is the notification sink used by the registry
type Publisher interface {
	Publish(eventType model.EventType, profileID model.ProfileID, errText string)
}

// Subscriber receives events from a Hub
type Subscriber struct {
	profileID   model.ProfileID
	events      chan model.Event
	connectedAt time.Time
}

// Events returns the channel events are delivered on. It is closed when the
// subscriber is removed or the hub stops.
func (s *Subscriber) Events() <-chan model.Event {
	return s.events
}

func (s *Subscriber) wants(ev model.Event) bool {
	return s.profileID == "" || s.profileID == ev.ProfileID
}

// Hub fans out profile events to subscribers. Delivery is fire-and-forget:
// a subscriber whose buffer is full misses the event.
type Hub struct {
	subscribers map[*Subscriber]bool
	mu          sync.RWMutex
	clock       clock.Clock
	logger      *slog.Logger

	register   chan *Subscriber
	unregister chan *Subscriber
	publish    chan model.Event
	done       chan struct{}
	closeOnce  sync.Once
}

// Ensure Hub implements Publisher
var _ Publisher = (*Hub)(nil)

// NewHub creates a Hub. Call Run in its own goroutine to start delivery.
func NewHub(clk clock.Clock, logger *slog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[*Subscriber]bool),
		clock:       clk,
		logger:      logger.With(slog.String("component", "events")),
		register:    make(chan *Subscriber),
		unregister:  make(chan *Subscriber),
		publish:     make(chan model.Event, publishBufferSize),
		done:        make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Info("event hub started")
	for {
		select {
		case sub := <-h.register:
			h.mu.Lock()
			h.subscribers[sub] = true
			count := len(h.subscribers)
			h.mu.Unlock()
			h.logger.Debug("subscriber registered",
				slog.String("profile_filter", string(sub.profileID)),
				slog.Int("total_subscribers", count))

		case sub := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				close(sub.events)
				count := len(h.subscribers)
				h.mu.Unlock()
				h.logger.Debug("subscriber unregistered",
					slog.Duration("connection_duration", h.clock.Now().Sub(sub.connectedAt)),
					slog.Int("total_subscribers", count))
			} else {
				h.mu.Unlock()
			}

		case ev := <-h.publish:
			h.deliver(ev)

		case <-h.done:
			h.mu.Lock()
			count := len(h.subscribers)
			for sub := range h.subscribers {
				close(sub.events)
				delete(h.subscribers, sub)
			}
			h.mu.Unlock()
			h.logger.Info("event hub stopped", slog.Int("disconnected_subscribers", count))
			return
		}
	}
}

func (h *Hub) deliver(ev model.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for sub := range h.subscribers {
		if !sub.wants(ev) {
			continue
		}
		select {
		case sub.events <- ev:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("event dropped - subscriber buffer full",
			slog.String("event_type", string(ev.Type)),
			slog.String("profile_id", string(ev.ProfileID)),
			slog.Int("dropped", dropped))
	}
}

// Subscribe registers a subscriber. An empty profileID receives every event.
func (h *Hub) Subscribe(profileID model.ProfileID) *Subscriber {
	sub := &Subscriber{
		profileID:   profileID,
		events:      make(chan model.Event, subscriberBufferSize),
		connectedAt: h.clock.Now(),
	}
	select {
	case h.register <- sub:
	case <-h.done:
		close(sub.events)
	}
	return sub
}

// Unsubscribe removes a subscriber and closes its channel
func (h *Hub) Unsubscribe(sub *Subscriber) {
	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}

// Publish queues an event for delivery without blocking the caller
func (h *Hub) Publish(eventType model.EventType, profileID model.ProfileID, errText string) {
	ev := model.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: h.clock.Now().UTC(),
		ProfileID: profileID,
		Error:     errText,
	}

	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.publish <- ev:
	default:
		h.logger.Warn("event dropped - hub buffer full",
			slog.String("event_type", string(eventType)))
	}
}

// Close shuts down the hub. It is safe to call more than once.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// SubscriberCount returns the number of connected subscribers
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
