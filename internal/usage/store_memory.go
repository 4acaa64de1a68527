package usage

import (
	"context"
	"fmt"
	"sync"
)

type memoryStore struct {
	mu   sync.RWMutex
	data map[string]int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]int64)}
}

func (s *memoryStore) Increment(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !validCounter(name) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCounter, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name]++
	return s.data[name], nil
}

func (s *memoryStore) Snapshot(ctx context.Context) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out, nil
}

func (s *memoryStore) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]int64)
	return nil
}
