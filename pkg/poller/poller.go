// Package poller checks a condition a bounded number of times.
package poller

import (
	"context"
	"time"
)

// Poller evaluates a condition up to attempts times, sleeping interval between evaluations.
type Poller struct {
	attempts int
	interval time.Duration
}

// New creates a Poller. Non-positive attempts disables polling.
func New(attempts int, interval time.Duration) *Poller {
	if attempts < 0 {
		attempts = 0
	}
	if interval < 0 {
		interval = 0
	}
	return &Poller{attempts: attempts, interval: interval}
}

// Attempts returns the configured attempt budget.
func (p *Poller) Attempts() int {
	return p.attempts
}

// Until evaluates cond until it returns true, the attempt budget is spent or ctx is done.
// It returns whether the condition was confirmed.
func (p *Poller) Until(ctx context.Context, cond func(ctx context.Context) bool) bool {
	for attempt := 0; attempt < p.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(p.interval):
			}
		}

		if cond(ctx) {
			return true
		}
	}

	return false
}
