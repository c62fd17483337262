// Package events fans shell notifications out to host UI clients and holds
// the completion callbacks those clients must resolve.
package events

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const subscriberBufSize = 256

// Topics published by the shell.
const (
	TopicDecision    = "decision"
	TopicPopupShown  = "popup_shown"
	TopicPopupClosed = "popup_closed"
	TopicFileChooser = "file_chooser"
	TopicJSAlert     = "js_alert"
	TopicToast       = "toast"
	TopicPush        = "push"
	TopicLifecycle   = "lifecycle"
)

// Event is one notification delivered to subscribers.
type Event struct {
	Topic   string          `json:"topic"`
	Time    time.Time       `json:"time"`
	Payload json.RawMessage `json:"payload"`
}

// Broker fans out events to all subscribed clients.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int64]chan Event
	nextID      atomic.Int64
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[int64]chan Event),
	}
}

// Subscribe registers a client. The channel is buffered; slow consumers have
// events dropped.
func (b *Broker) Subscribe() (int64, <-chan Event) {
	id := b.nextID.Add(1)
	ch := make(chan Event, subscriberBufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	ch, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish marshals payload and sends it to every subscriber without blocking.
func (b *Broker) Publish(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("events marshal failed", "topic", topic, "error", err)
		return
	}
	evt := Event{Topic: topic, Time: time.Now().UTC(), Payload: data}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

// ClientCount returns the number of active subscribers.
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
