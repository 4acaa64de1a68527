package tasks

import (
	"context"
	"sync"
)

// MemoryRepo stores tasks in memory and is safe for concurrent use. Task
// values are copied in and out; TranslationPairs is only ever replaced, never
// modified in place, so copies may share it.
type MemoryRepo struct {
	mu    sync.RWMutex
	byID  map[string]Task
	order []string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Task)}
}

// Create stores the task.
func (r *MemoryRepo) Create(ctx context.Context, task Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[task.ID]; !exists {
		r.order = append(r.order, task.ID)
	}
	r.byID[task.ID] = task
	return nil
}

// Get returns a task by its ID.
func (r *MemoryRepo) Get(ctx context.Context, taskID string) (Task, error) {
	if err := ctx.Err(); err != nil {
		return Task{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.byID[taskID]
	if !ok {
		return Task{}, ErrNotFound
	}
	return task, nil
}

// List returns all tasks in creation order.
func (r *MemoryRepo) List(ctx context.Context) ([]Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Task, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out, nil
}

// Delete removes a task. Unknown ids are ignored.
func (r *MemoryRepo) Delete(ctx context.Context, taskID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[taskID]; !ok {
		return nil
	}
	delete(r.byID, taskID)
	for i, id := range r.order {
		if id == taskID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Update applies fn to a working copy and stores it only if fn succeeds.
func (r *MemoryRepo) Update(ctx context.Context, taskID string, fn func(*Task) error) (Task, error) {
	if err := ctx.Err(); err != nil {
		return Task{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.byID[taskID]
	if !ok {
		return Task{}, ErrNotFound
	}
	if err := fn(&task); err != nil {
		return Task{}, err
	}
	r.byID[taskID] = task
	return task, nil
}

var _ Repo = (*MemoryRepo)(nil)
