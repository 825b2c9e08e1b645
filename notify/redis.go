// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/danielhkuo/party-survey/models"
)

// RedisChannel is the Pub/Sub channel carrying party change events
const RedisChannel = "survey:party_changes"

// RedisBroker shares change events between server instances through
// Redis Pub/Sub.
type RedisBroker struct {
	client  *redis.Client
	channel string
	ownsCli bool
}

// NewRedisBroker connects to the Redis instance at url
func NewRedisBroker(ctx context.Context, url string) (*RedisBroker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	b := NewRedisBrokerFromClient(client)
	b.ownsCli = true
	return b, nil
}

// NewRedisBrokerFromClient wraps an existing client. Close does not close it.
func NewRedisBrokerFromClient(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client, channel: RedisChannel}
}

func (b *RedisBroker) Publish(ctx context.Context, ev models.ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)

	// Wait for the subscription to be confirmed before returning
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	s := &redisSub{
		pubsub: pubsub,
		ch:     make(chan models.ChangeEvent, subscriberBuffer),
		stop:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run(ctx)
	return s, nil
}

func (b *RedisBroker) Close() error {
	if b.ownsCli {
		return b.client.Close()
	}
	return nil
}

type redisSub struct {
	pubsub *redis.PubSub
	ch     chan models.ChangeEvent
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func (s *redisSub) Events() <-chan models.ChangeEvent { return s.ch }

func (s *redisSub) run(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.ch)

	msgs := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var ev models.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				slog.Warn("dropping malformed change event", "channel", msg.Channel, "error", err)
				continue
			}
			select {
			case s.ch <- ev:
			default:
			}
		}
	}
}

func (s *redisSub) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stop)
		err = s.pubsub.Close()
		s.wg.Wait()
	})
	return err
}
