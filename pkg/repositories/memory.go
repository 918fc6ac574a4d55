package repositories

import (
	"context"
	"sync"
)

// InMemoryRepository keeps the most recent events in a capped ring.
// It is the default backend and the one tests wire against.
type InMemoryRepository struct {
	mu     sync.RWMutex
	events []Event
	limit  int
}

// NewInMemoryRepository creates a repository retaining at most limit events.
func NewInMemoryRepository(limit int) *InMemoryRepository {
	return &InMemoryRepository{
		limit: limit,
	}
}

func (r *InMemoryRepository) RecordEvent(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	if len(r.events) > r.limit {
		r.events = r.events[len(r.events)-r.limit:]
	}
	return nil
}

func (r *InMemoryRepository) RecentEvents(_ context.Context, limit int) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit > len(r.events) {
		limit = len(r.events)
	}
	events := make([]Event, 0, limit)
	for i := len(r.events) - 1; i >= len(r.events)-limit; i-- {
		events = append(events, r.events[i])
	}
	return events, nil
}

func (r *InMemoryRepository) Close(_ context.Context) error {
	return nil
}
