// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package partyservice

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danielhkuo/party-survey/models"
)

// DefaultReconnectDelay is the pause between change stream reconnects
const DefaultReconnectDelay = 3 * time.Second

var errStreamEnded = errors.New("change stream ended")

// Subscription is a live change stream. Close releases it.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Close stops the stream and waits for its reader to exit
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Subscribe follows the backend change stream, calling onChange for every
// change event until ctx ends or Close is called. Dropped streams are
// reopened after the reconnect delay.
func (c *Client) Subscribe(ctx context.Context, onChange func(models.ChangeEvent)) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		for {
			err := c.consume(ctx, onChange)
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("change stream interrupted, reconnecting",
				zap.Error(err),
				zap.Duration("delay", c.reconnectDelay),
			)

			t := time.NewTimer(c.reconnectDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
	}()

	return sub, nil
}

// consume reads one connection of the event stream until it fails
func (c *Client) consume(ctx context.Context, onChange func(models.ChangeEvent)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("parties", "events"), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("change stream: status %d: %s", resp.StatusCode, readErrorMessage(resp.Body))
	}
	c.logger.Debug("change stream connected")

	var event string
	var data strings.Builder

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			if event == "change" && data.Len() > 0 {
				var ev models.ChangeEvent
				if err := json.Unmarshal([]byte(data.String()), &ev); err != nil {
					c.logger.Warn("malformed change event", zap.String("data", data.String()), zap.Error(err))
				} else {
					onChange(ev)
				}
			}
			event = ""
			data.Reset()

		case strings.HasPrefix(line, ":"):
			// comment / keep-alive

		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))

		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return errStreamEnded
}
