// Package tracker maintains the temporal context used by the risk pipeline:
// when the user last interacted with the device, and a rolling log of recent
// OTP arrivals for attack-window detection.
//
// The tracker is an explicitly-owned state object: the caller creates one,
// passes it to the pipeline, and may hydrate it from a Store at startup.
// There are no package-level singletons, so tests and multi-session setups
// stay isolated.
package tracker

import (
	"context"
	"sync"
	"time"
)

// Defaults for the context and frequency rules.
const (
	// DefaultContextThreshold is how long after the last interaction an OTP
	// arrival starts counting as out-of-context.
	DefaultContextThreshold = 2 * time.Minute

	// DefaultAttackWindow and DefaultMaxInWindow bound the OTP-flood check:
	// strictly more than DefaultMaxInWindow events inside the trailing
	// window flags a possible attack.
	DefaultAttackWindow = 5 * time.Minute
	DefaultMaxInWindow  = 3

	// retention bounds the event log; every insertion prunes older events.
	retention = 10 * time.Minute
)

// Store optionally persists tracker state across process restarts. The
// tracker works correctly with a nil store (pure in-memory).
type Store interface {
	SaveOTPEvent(ctx context.Context, at time.Time) error
	LoadOTPEvents(ctx context.Context, since time.Time) ([]time.Time, error)
	SaveInteraction(ctx context.Context, at time.Time) error
	LoadInteraction(ctx context.Context) (time.Time, bool, error)
	DeleteOTPEventsBefore(ctx context.Context, cutoff time.Time) error
}

// Tracker holds the mutable temporal state. Safe for concurrent use; a plain
// mutex is sufficient at message-arrival rates.
type Tracker struct {
	mu              sync.Mutex
	lastInteraction time.Time
	hasInteraction  bool
	otpEvents       []time.Time

	store Store // may be nil
}

// New creates an empty tracker with no persistence.
func New() *Tracker {
	return &Tracker{}
}

// NewWithStore creates a tracker backed by a persistent store. Call Hydrate
// to restore prior state.
func NewWithStore(store Store) *Tracker {
	return &Tracker{store: store}
}

// Hydrate restores state from the store: the last interaction time and any
// OTP events still inside the retention window.
func (t *Tracker) Hydrate(ctx context.Context, now time.Time) error {
	if t.store == nil {
		return nil
	}
	last, ok, err := t.store.LoadInteraction(ctx)
	if err != nil {
		return err
	}
	events, err := t.store.LoadOTPEvents(ctx, now.Add(-retention))
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if ok {
		t.lastInteraction = last
		t.hasInteraction = true
	}
	t.otpEvents = t.otpEvents[:0]
	for _, at := range events {
		if !at.After(now) {
			t.otpEvents = append(t.otpEvents, at)
		}
	}
	return nil
}

// RecordInteraction notes a significant user interaction at the given time.
func (t *Tracker) RecordInteraction(ctx context.Context, now time.Time) {
	t.mu.Lock()
	t.lastInteraction = now
	t.hasInteraction = true
	t.mu.Unlock()

	if t.store != nil {
		// Best-effort: persistence failures never block the pipeline.
		_ = t.store.SaveInteraction(ctx, now)
	}
}

// RecordOTPEvent appends an OTP arrival to the event log and prunes entries
// outside the retention window around now. Arrival times are caller-supplied
// and may land out of order, so pruning scans the whole log rather than
// assuming it is sorted. Events dated more than one retention interval ahead
// of now are dropped too; a single far-future timestamp must not stay in the
// log forever.
func (t *Tracker) RecordOTPEvent(ctx context.Context, now time.Time) {
	cutoff := now.Add(-retention)
	horizon := now.Add(retention)

	t.mu.Lock()
	t.otpEvents = append(t.otpEvents, now)
	kept := t.otpEvents[:0]
	for _, at := range t.otpEvents {
		if !at.Before(cutoff) && !at.After(horizon) {
			kept = append(kept, at)
		}
	}
	t.otpEvents = kept
	t.mu.Unlock()

	if t.store != nil {
		_ = t.store.SaveOTPEvent(ctx, now)
		_ = t.store.DeleteOTPEventsBefore(ctx, cutoff)
	}
}

// ContextSuspicious reports whether an OTP arriving at arrival is suspicious
// given the last interaction: true iff the elapsed time exceeds threshold.
// First use, with no interaction ever recorded, is never penalized.
func (t *Tracker) ContextSuspicious(arrival time.Time, threshold time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasInteraction {
		return false
	}
	return arrival.Sub(t.lastInteraction) > threshold
}

// PossibleAttack reports whether strictly more than maxInWindow OTP events
// fall inside the trailing window [windowStart, now]. Adding events never
// flips the result from true to false within a fixed window.
func (t *Tracker) PossibleAttack(now time.Time, window time.Duration, maxInWindow int) bool {
	windowStart := now.Add(-window)

	t.mu.Lock()
	defer t.mu.Unlock()
	count := 0
	for _, at := range t.otpEvents {
		if !at.Before(windowStart) && !at.After(now) {
			count++
		}
	}
	return count > maxInWindow
}

// EventCount returns the number of OTP events currently retained.
func (t *Tracker) EventCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.otpEvents)
}

// LastInteraction returns the recorded last interaction time, if any.
func (t *Tracker) LastInteraction() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastInteraction, t.hasInteraction
}
