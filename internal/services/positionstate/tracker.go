// Package positionstate counts pyramid entries per side.
package positionstate

import (
	"sync"

	"github.com/vadiminshakov/alertbridge/internal/domain"
)

// Tracker holds entry counters for the long and short sides.
// Counters never exceed the cap and at most one of them is non-zero.
type Tracker struct {
	mu    sync.Mutex
	cap   int
	long  int
	short int
}

// New creates a Tracker. A cap below 1 is raised to 1.
func New(cap int) *Tracker {
	if cap < 1 {
		cap = 1
	}
	return &Tracker{cap: cap}
}

// Cap returns the maximum number of entries per side.
func (t *Tracker) Cap() int {
	return t.cap
}

// RecordOpen counts a successful open on side and clears the other side.
func (t *Tracker) RecordOpen(side domain.PositionSide) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch side {
	case domain.PositionSideLong:
		t.long = min(t.long+1, t.cap)
		t.short = 0
	case domain.PositionSideShort:
		t.short = min(t.short+1, t.cap)
		t.long = 0
	}
}

// Reset zeroes both counters.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.long = 0
	t.short = 0
}

// Entries returns the counter for side.
func (t *Tracker) Entries(side domain.PositionSide) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if side == domain.PositionSideShort {
		return t.short
	}
	return t.long
}

// Snapshot returns both counters at once.
func (t *Tracker) Snapshot() (long, short int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.long, t.short
}
