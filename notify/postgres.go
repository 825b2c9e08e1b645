// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/danielhkuo/party-survey/models"
)

// PGBroker turns Postgres NOTIFY messages from the party trigger into
// change events. Publish is a no-op: the trigger already notifies for
// every party row change.
type PGBroker struct {
	listener *pq.Listener
	fanout   *MemoryBroker
	wg       sync.WaitGroup
	once     sync.Once
}

// NewPGBroker listens on channel using its own connection to url
func NewPGBroker(url, channel string) (*PGBroker, error) {
	report := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("postgres listener event", "event", ev, "error", err)
		}
	}

	listener := pq.NewListener(url, time.Second, time.Minute, report)
	if err := listener.Listen(channel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", channel, err)
	}

	b := &PGBroker{listener: listener, fanout: NewMemoryBroker()}
	b.wg.Add(1)
	go b.run()
	return b, nil
}

func (b *PGBroker) run() {
	defer b.wg.Done()

	for n := range b.listener.Notify {
		ev := models.ChangeEvent{Kind: models.ChangeUpdate, At: time.Now()}
		if n == nil {
			// Reconnected; anything may have changed while we were away
			slog.Info("postgres listener reconnected")
		} else if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
			slog.Warn("malformed party notification", "payload", n.Extra, "error", err)
		}
		b.fanout.Publish(context.Background(), ev)
	}
}

func (b *PGBroker) Publish(context.Context, models.ChangeEvent) error {
	return nil
}

func (b *PGBroker) Subscribe(ctx context.Context) (Subscription, error) {
	return b.fanout.Subscribe(ctx)
}

func (b *PGBroker) Close() error {
	var err error
	b.once.Do(func() {
		err = b.listener.Close()
		b.wg.Wait()
		b.fanout.Close()
	})
	return err
}
