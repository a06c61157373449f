// Package dedup suppresses retransmitted alerts.
package dedup

import (
	"fmt"
	"sync"
	"time"

	"github.com/vadiminshakov/alertbridge/internal/domain"
)

// Deduplicator remembers only the most recent accepted signal key.
// Two different signals arriving back to back are never duplicates of each other.
type Deduplicator struct {
	mu         sync.Mutex
	window     time.Duration
	key        string
	lastSeenAt time.Time
}

// New creates a Deduplicator with the given window.
func New(window time.Duration) *Deduplicator {
	return &Deduplicator{window: window}
}

// IsDuplicate reports whether key equals the retained key and arrived within the window.
// A duplicate leaves the record untouched; anything else replaces it with (key, now).
func (d *Deduplicator) IsDuplicate(key string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.key != "" && key == d.key && now.Sub(d.lastSeenAt) < d.window {
		return true
	}

	d.key = key
	d.lastSeenAt = now
	return false
}

// Window returns the configured window.
func (d *Deduplicator) Window() time.Duration {
	return d.window
}

// Key derives the dedup key of a signal.
// strict keys include the desired position, coarse keys only action and size.
func Key(sig domain.Signal, strict bool) string {
	size := sig.RawSize.String()
	if strict {
		return fmt.Sprintf("%s|%s|%s", sig.Action, sig.Desired, size)
	}
	return fmt.Sprintf("%s|%s", sig.Action, size)
}
