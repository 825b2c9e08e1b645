// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package app

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Poller runs a function on a fixed interval until stopped
type Poller interface {
	// Stop cancels future runs and waits for a running one to finish
	Stop()
}

type PollerFactory func(interval time.Duration, fn func()) (Poller, error)

// CronPoller schedules the refresh on a cron runner
type CronPoller struct {
	c *cron.Cron
}

// NewCronPoller starts fn every interval. The interval must be a whole
// number of seconds, at least 1s.
func NewCronPoller(interval time.Duration, fn func()) (Poller, error) {
	if interval < time.Second || interval%time.Second != 0 {
		return nil, fmt.Errorf("poll interval %v is not a whole number of seconds", interval)
	}
	c := cron.New()
	c.Schedule(cron.Every(interval), cron.FuncJob(fn))
	c.Start()
	return &CronPoller{c: c}, nil
}

func (p *CronPoller) Stop() {
	<-p.c.Stop().Done()
}
