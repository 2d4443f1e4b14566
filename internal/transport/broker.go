package transport

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Broker delivers events to followers in publish order.
type Broker interface {
	Publish(ctx context.Context, ev Event) error
}

// Loopback is an in-process broker. Handlers run synchronously.
type Loopback struct {
	mu        sync.Mutex
	handlers  []func(Event)
	published []Event
}

func NewLoopback() *Loopback {
	return &Loopback{}
}

func (l *Loopback) Subscribe(handler func(Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, handler)
}

func (l *Loopback) Publish(ctx context.Context, ev Event) error {
	l.mu.Lock()
	l.published = append(l.published, ev)
	handlers := append([]func(Event){}, l.handlers...)
	l.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
	return nil
}

// Published returns every event seen so far.
func (l *Loopback) Published() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.published...)
}

// Outbox buffers events raised while a command runs. The session flushes
// it once the command has finished so the core never touches the network.
type Outbox struct {
	pending []Event
}

func (o *Outbox) Publish(ev Event) {
	o.pending = append(o.pending, ev)
}

func (o *Outbox) Len() int { return len(o.pending) }

// Flush sends pending events in order. Failed events are logged and dropped;
// the first error is returned.
func (o *Outbox) Flush(ctx context.Context, b Broker) error {
	if b == nil {
		o.pending = nil
		return nil
	}
	var first error
	for _, ev := range o.pending {
		if err := b.Publish(ctx, ev); err != nil {
			log.Error().Err(err).Str("event", ev.EventType()).Msg("Failed to publish event")
			if first == nil {
				first = err
			}
		}
	}
	o.pending = nil
	return first
}
