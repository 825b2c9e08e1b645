// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/danielhkuo/party-survey/models"
)

var ErrClosed = errors.New("broker closed")

// subscriberBuffer bounds how far a slow subscriber may lag. Events past
// the buffer are dropped: a pending event already forces a full refetch.
const subscriberBuffer = 16

// Broker fans party change events out to subscribers.
type Broker interface {
	Publish(ctx context.Context, ev models.ChangeEvent) error
	Subscribe(ctx context.Context) (Subscription, error)
	Close() error
}

// Subscription delivers events until closed. Events is closed when the
// subscription ends.
type Subscription interface {
	Events() <-chan models.ChangeEvent
	Close() error
}

// MemoryBroker is an in-process broker for single-instance deployments.
type MemoryBroker struct {
	mu     sync.Mutex
	subs   map[*memorySub]struct{}
	closed bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[*memorySub]struct{})}
}

func (b *MemoryBroker) Publish(_ context.Context, ev models.ChangeEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	for s := range b.subs {
		select {
		case s.ch <- ev:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	s := &memorySub{
		broker:   b,
		ch:       make(chan models.ChangeEvent, subscriberBuffer),
		finished: make(chan struct{}),
	}
	b.subs[s] = struct{}{}

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				s.Close()
			case <-s.finished:
			}
		}()
	}
	return s, nil
}

// Subscribers returns the number of live subscriptions
func (b *MemoryBroker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for s := range b.subs {
		s.closeLocked()
	}
	return nil
}

type memorySub struct {
	broker   *MemoryBroker
	ch       chan models.ChangeEvent
	once     sync.Once
	finished chan struct{}
}

func (s *memorySub) Events() <-chan models.ChangeEvent { return s.ch }

func (s *memorySub) Close() error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	s.closeLocked()
	return nil
}

// closeLocked requires broker.mu
func (s *memorySub) closeLocked() {
	s.once.Do(func() {
		delete(s.broker.subs, s)
		close(s.ch)
		close(s.finished)
	})
}

// Kind names accepted by New
const (
	KindMemory   = "memory"
	KindRedis    = "redis"
	KindPostgres = "postgres"
)

// New builds the broker named by kind. target is the Redis URL for the
// redis broker and the Postgres URL for the postgres broker.
func New(ctx context.Context, kind, target, pgChannel string) (Broker, error) {
	switch kind {
	case KindMemory, "":
		return NewMemoryBroker(), nil
	case KindRedis:
		return NewRedisBroker(ctx, target)
	case KindPostgres:
		return NewPGBroker(target, pgChannel)
	}
	return nil, errors.New("unknown broker: " + kind)
}
