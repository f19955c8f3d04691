package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// EventPublisher delivers a JSON event body to a named queue.
type EventPublisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, []byte) error { return nil }

// NopPublisher discards events. Used when no broker is configured.
func NopPublisher() EventPublisher { return nopPublisher{} }

// EventHandler processes one event body.
type EventHandler func(ctx context.Context, body []byte) error

// LocalBus delivers events to handlers in this process. It stands in for the
// broker when RABBITMQ_URL is unset, so consumers run the same either way.
type LocalBus struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
}

func NewLocalBus() *LocalBus {
	return &LocalBus{handlers: make(map[string][]EventHandler)}
}

func (b *LocalBus) Subscribe(queue string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[queue] = append(b.handlers[queue], handler)
}

// Publish runs every handler for queue and logs their failures. Queues with
// no subscriber drop the event.
func (b *LocalBus) Publish(ctx context.Context, queue string, body []byte) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.handlers[queue]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, body); err != nil {
			log.Printf("events: %s handler failed: %v", queue, err)
		}
	}
	return nil
}

// publishEvent is fire-and-forget: failures are logged, never returned.
func publishEvent(pub EventPublisher, queue string, payload any) {
	if pub == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("events: failed to encode %s: %v", queue, err)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pub.Publish(ctx, queue, body); err != nil {
			log.Printf("events: failed to publish %s: %v", queue, err)
		}
	}()
}
