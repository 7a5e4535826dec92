package insight

import (
	"context"
	"sync"
)

// memoryStoreCap bounds the in-memory history. It matches the largest page
// ListRecent callers may request, so capped entries are never observable.
const memoryStoreCap = 500

// MemoryStore is an in-memory implementation of Store for demo/test use.
// It retains at most memoryStoreCap results, dropping the oldest first.
type MemoryStore struct {
	mu      sync.RWMutex
	results []*Result
}

// NewMemoryStore creates an in-memory assessment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(_ context.Context, result *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *result
	if len(s.results) >= memoryStoreCap {
		n := copy(s.results, s.results[len(s.results)-memoryStoreCap+1:])
		s.results = s.results[:n]
	}
	s.results = append(s.results, &r)
	return nil
}

func (s *MemoryStore) ListRecent(_ context.Context, limit int) ([]*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.results) == 0 {
		return nil, nil
	}

	start := len(s.results) - limit
	if start < 0 {
		start = 0
	}
	// Most recent first.
	out := make([]*Result, 0, len(s.results)-start)
	for i := len(s.results) - 1; i >= start; i-- {
		r := *s.results[i]
		out = append(out, &r)
	}
	return out, nil
}
