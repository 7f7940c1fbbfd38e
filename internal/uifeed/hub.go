package uifeed

import (
	"sync"

	"github.com/google/uuid"
)

// Subscriber is one connected UI's per-topic outbound queue. Send is
// buffered and drop-oldest on overflow: a slow UI must never stall the
// session goroutine publishing into it.
type Subscriber struct {
	ID   string
	Send chan []byte
}

const subscriberBuffer = 256

// Hub fans events out to subscribers of a topic, grounded on the teacher's
// SessionManager/BroadcastToClients pattern (sync.Map-style per-topic
// registry, non-blocking send, silently dropped on a full buffer).
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[string]*Subscriber
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[string]*Subscriber)}
}

// Subscribe registers a new subscriber to topic and returns it; callers
// read from Subscriber.Send until Unsubscribe is called for it.
func (h *Hub) Subscribe(topic string) *Subscriber {
	sub := &Subscriber{ID: uuid.NewString(), Send: make(chan []byte, subscriberBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]*Subscriber)
	}
	h.topics[topic][sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscriber and closes its Send channel.
func (h *Hub) Unsubscribe(topic string, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.topics[topic]; ok {
		if _, ok := subs[sub.ID]; ok {
			delete(subs, sub.ID)
			close(sub.Send)
		}
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Publish fans data out to every subscriber of topic. A subscriber with a
// full buffer has its oldest pending message dropped rather than blocking
// the publisher.
func (h *Hub) Publish(topic string, data []byte) {
	h.mu.RLock()
	subs := h.topics[topic]
	targets := make([]*Subscriber, 0, len(subs))
	for _, sub := range subs {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		select {
		case sub.Send <- data:
		default:
			select {
			case <-sub.Send:
			default:
			}
			select {
			case sub.Send <- data:
			default:
			}
		}
	}
}
