package usage

import (
	"context"
	"fmt"
)

type store interface {
	Increment(ctx context.Context, name string) (int64, error)
	Snapshot(ctx context.Context) (map[string]int64, error)
	Reset(ctx context.Context) error
}

// Service manages the visit and usage counters via an underlying store.
type Service struct {
	store store
}

// NewService constructs a Service with in-memory store.
func NewService() *Service {
	return &Service{store: newMemoryStore()}
}

// NewPostgresService constructs a Service backed by Postgres.
func NewPostgresService(pgStore store) *Service {
	return &Service{store: pgStore}
}

// RecordVisit counts one landing-page hit.
func (s *Service) RecordVisit(ctx context.Context) (int64, error) {
	return s.store.Increment(ctx, CounterVisits)
}

// RecordUsage counts one accepted translation submission.
func (s *Service) RecordUsage(ctx context.Context) (int64, error) {
	return s.store.Increment(ctx, CounterUsage)
}

// Stats returns the current counter values.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	values, err := s.store.Snapshot(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("usage snapshot: %w", err)
	}
	return Stats{Visits: values[CounterVisits], Usage: values[CounterUsage]}, nil
}

// Reset zeroes every counter.
func (s *Service) Reset(ctx context.Context) error {
	return s.store.Reset(ctx)
}

func validCounter(name string) bool {
	return name == CounterVisits || name == CounterUsage
}
