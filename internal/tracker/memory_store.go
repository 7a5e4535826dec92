package tracker

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu          sync.Mutex
	events      []time.Time
	interaction time.Time
	hasInteract bool
}

// NewMemoryStore creates an in-memory tracker store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveOTPEvent(_ context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, at)
	return nil
}

func (s *MemoryStore) LoadOTPEvents(_ context.Context, since time.Time) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Time, 0, len(s.events))
	for _, at := range s.events {
		if !at.Before(since) {
			out = append(out, at)
		}
	}
	return out, nil
}

func (s *MemoryStore) SaveInteraction(_ context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interaction = at
	s.hasInteract = true
	return nil
}

func (s *MemoryStore) LoadInteraction(_ context.Context) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interaction, s.hasInteract, nil
}

func (s *MemoryStore) DeleteOTPEventsBefore(_ context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.events[:0]
	for _, at := range s.events {
		if !at.Before(cutoff) {
			kept = append(kept, at)
		}
	}
	s.events = kept
	return nil
}
