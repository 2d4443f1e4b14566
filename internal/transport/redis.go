package transport

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DefaultChannel = "usedplus:events"

// RedisBroker fans events out over a redis pub/sub channel.
type RedisBroker struct {
	client  *redis.Client
	channel string
}

func NewRedisBroker(client *redis.Client, channel string) *RedisBroker {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBroker{client: client, channel: channel}
}

func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, data).Err()
}

// Subscription is a follower's view of the channel.
type Subscription struct {
	ps      *redis.PubSub
	events  chan Event
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// Subscribe returns once redis has confirmed the subscription, so events
// published afterwards are guaranteed to arrive.
func (b *RedisBroker) Subscribe(ctx context.Context) (*Subscription, error) {
	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	s := &Subscription{
		ps:      ps,
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.pump()
	return s, nil
}

// pump stops on Close even when nobody reads Events any more.
func (s *Subscription) pump() {
	defer close(s.stopped)
	defer close(s.events)
	for msg := range s.ps.Channel() {
		ev, err := Decode([]byte(msg.Payload))
		if err != nil {
			log.Warn().Err(err).Str("channel", msg.Channel).Msg("Dropped undecodable event")
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

// Events is closed when the subscription closes.
func (s *Subscription) Events() <-chan Event { return s.events }

func (s *Subscription) Close() error {
	s.once.Do(func() { close(s.done) })
	return s.ps.Close()
}
