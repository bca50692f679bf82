// Package events provides in-process change notifications for the portal.
// Domain services publish typed events on the Bus; interested parties (the
// websocket hub, a navigation badge, tests) subscribe by topic without being
// structurally coupled to the publisher.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Topic names published by the portal.
const (
	TopicCartUpdated = "cart.updated"
)

// Event represents a single change notification.
type Event struct {
	Topic     string          `json:"topic"`
	PatientID string          `json:"patient_id"`
	Type      string          `json:"type,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Publisher is the interface domain services publish through.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Handler consumes events for one topic.
type Handler func(Event)

// Bus is a synchronous in-process topic bus. Handlers run on the publisher's
// goroutine and must not block.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a topic.
func (b *Bus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// Publish dispatches the event to every handler subscribed to its topic.
func (b *Bus) Publish(_ context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	handlers := b.handlers[event.Topic]
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

// Nop is a Publisher that discards every event. Useful as a default.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
