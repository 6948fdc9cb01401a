// Package broadcast fans engine output out to any number of subscribers.
//
// Subscribers receive [Message] values on a buffered channel. Publishing never
// blocks: when a subscriber's buffer is full the oldest queued message is
// dropped to make room, so a slow reader always ends up with the most recent
// state (which is what matters for layout frames).
package broadcast

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Topics used by the engine.
const (
	TopicFrames        = "frames"
	TopicNotifications = "notifications"
)

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 64

// Message is one published value.
type Message struct {
	Topic   string
	Payload any
}

// Hub is a topic-based publish/subscribe hub. It is safe for concurrent use.
type Hub struct {
	mu       sync.RWMutex
	subs     map[string]map[string]*Subscription
	closed   bool
	shutdown chan struct{}
	buffer   int
	dropped  atomic.Uint64
}

// NewHub creates a hub whose subscriptions buffer up to buffer messages.
// A buffer of zero or less selects DefaultBuffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:     make(map[string]map[string]*Subscription),
		shutdown: make(chan struct{}),
		buffer:   buffer,
	}
}

// Subscription receives the messages of one topic.
type Subscription struct {
	id     string
	topic  string
	ch     chan Message
	hub    *Hub
	cancel context.CancelFunc
}

// Subscribe registers a subscription to topic that lasts until ctx is done,
// Unsubscribe is called, or the hub shuts down. It returns ErrClosed after
// Shutdown.
func (h *Hub) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		id:     uuid.NewString(),
		topic:  topic,
		ch:     make(chan Message, h.buffer),
		hub:    h,
		cancel: cancel,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		cancel()
		return nil, ErrClosed
	}
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[string]*Subscription)
	}
	h.subs[topic][sub.id] = sub
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Unsubscribe()
		case <-h.shutdown:
		}
	}()
	return sub, nil
}

// Publish delivers payload to every subscriber of topic without blocking.
func (h *Hub) Publish(topic string, payload any) {
	msg := Message{Topic: topic, Payload: payload}

	// Channels are only closed under the write lock, so sending while holding
	// the read lock is safe.
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for _, sub := range h.subs[topic] {
		h.offer(sub.ch, msg)
	}
}

func (h *Hub) offer(ch chan Message, msg Message) {
	for {
		select {
		case ch <- msg:
			return
		default:
		}
		select {
		case <-ch:
			h.dropped.Add(1)
		default:
		}
	}
}

// Subscribers returns the number of subscriptions to topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}

// Dropped returns how many messages were discarded because a subscriber fell
// behind.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Shutdown closes every subscription. Later publishes are ignored.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.shutdown)
	for topic, subs := range h.subs {
		for _, sub := range subs {
			sub.cancel()
			close(sub.ch)
		}
		delete(h.subs, topic)
	}
}

// ID returns the subscription's unique id.
func (s *Subscription) ID() string { return s.id }

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string { return s.topic }

// C returns the message channel. It is closed when the subscription ends.
func (s *Subscription) C() <-chan Message { return s.ch }

// Unsubscribe ends the subscription and closes its channel. It is safe to call
// more than once.
func (s *Subscription) Unsubscribe() {
	s.cancel()

	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.subs[s.topic]
	if _, ok := subs[s.id]; !ok {
		return
	}
	delete(subs, s.id)
	if len(subs) == 0 {
		delete(h.subs, s.topic)
	}
	close(s.ch)
}
