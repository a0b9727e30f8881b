package websocket

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultBufferSize is the per-subscription event buffer used when a Hub is
// built with a non-positive size.
const DefaultBufferSize = 64

// Hub is an in-process publish/subscribe bus keyed by topic.
type Hub struct {
	mu sync.Mutex

	// A map of topics to the set of subscriptions registered on it.
	subscriptions map[string]map[*Subscription]bool

	bufferSize int
	closed     bool
}

// NewHub creates a new Hub.
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Hub{
		subscriptions: make(map[string]map[*Subscription]bool),
		bufferSize:    bufferSize,
	}
}

// Subscription is a live stream of payloads published to one topic.
type Subscription struct {
	ID    string
	Topic string

	hub    *Hub
	events chan interface{}
	done   chan struct{}
	once   sync.Once
}

// Events returns the stream. It is closed when the subscription ends.
func (s *Subscription) Events() <-chan interface{} { return s.events }

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close deregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.removeSubscription(s)
}

// Subscribe registers interest in topic. Every Publish that starts after
// Subscribe returns is delivered; nothing published earlier is replayed.
// The subscription ends when ctx is done, on Close, when the hub closes, or
// when the subscriber falls a full buffer behind.
func (h *Hub) Subscribe(ctx context.Context, topic string) *Subscription {
	sub := &Subscription{
		ID:     uuid.New().String(),
		Topic:  topic,
		hub:    h,
		events: make(chan interface{}, h.bufferSize),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.finish()
		return sub
	}
	h.addSubscription(sub)
	total := len(h.subscriptions[topic])
	h.mu.Unlock()

	log.Debug().Str("subscription_id", sub.ID).Str("topic", topic).Int("topic_subscribers", total).Msg("Subscriber registered")

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()

	return sub
}

// Publish delivers payload to every subscription currently registered on
// topic. It never blocks: a subscriber whose buffer is full is dropped.
func (h *Hub) Publish(topic string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscriptions[topic] {
		select {
		case sub.events <- payload:
		default:
			log.Warn().Str("subscription_id", sub.ID).Str("topic", topic).Msg("Subscriber too slow, dropping")
			h.removeSubscription(sub)
		}
	}
}

// SubscriberCount returns the number of live subscriptions on topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscriptions[topic])
}

// Close ends every subscription. Later subscriptions end immediately and
// later publishes are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, subs := range h.subscriptions {
		for sub := range subs {
			h.removeSubscription(sub)
		}
	}
}

// addSubscription must be called with h.mu held.
func (h *Hub) addSubscription(sub *Subscription) {
	if h.subscriptions[sub.Topic] == nil {
		h.subscriptions[sub.Topic] = make(map[*Subscription]bool)
	}
	h.subscriptions[sub.Topic][sub] = true
}

// removeSubscription must be called with h.mu held.
func (h *Hub) removeSubscription(sub *Subscription) {
	subs, ok := h.subscriptions[sub.Topic]
	if !ok || !subs[sub] {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.subscriptions, sub.Topic)
	}
	sub.finish()
	log.Debug().Str("subscription_id", sub.ID).Str("topic", sub.Topic).Msg("Subscriber removed")
}

func (s *Subscription) finish() {
	s.once.Do(func() {
		close(s.events)
		close(s.done)
	})
}
