package tasks

import "context"

// Repo is the task registry. It is written by the worker and the confirm
// path and read concurrently by status queries.
type Repo interface {
	Create(ctx context.Context, task Task) error
	Get(ctx context.Context, taskID string) (Task, error)
	// List returns every task ordered by creation.
	List(ctx context.Context) ([]Task, error)
	Delete(ctx context.Context, taskID string) error
	// Update applies fn to the stored task atomically and returns the result.
	// When fn returns an error the stored task is left unchanged.
	Update(ctx context.Context, taskID string, fn func(*Task) error) (Task, error)
}
