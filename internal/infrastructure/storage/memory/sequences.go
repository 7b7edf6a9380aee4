package memory

import (
	"context"
	"sync"

	"stockledger/pkg/numerator"
)

// SequenceStore keeps reference-number counters in memory.
type SequenceStore struct {
	mu     sync.Mutex
	values map[numerator.Key]int64
}

var _ numerator.Store = (*SequenceStore)(nil)

func NewSequenceStore() *SequenceStore {
	return &SequenceStore{values: make(map[numerator.Key]int64)}
}

func (s *SequenceStore) Increment(_ context.Context, key numerator.Key, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] += delta
	return s.values[key], nil
}

func (s *SequenceStore) Set(_ context.Context, key numerator.Key, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}
