package tasks

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("task not found")

	// ErrValidation marks rejected submission input.
	ErrValidation = errors.New("invalid task input")

	// ErrState is matched by every error caused by the task being in the
	// wrong state for the requested operation.
	ErrState             = errors.New("task state error")
	ErrInvalidState      = fmt.Errorf("%w: task is not awaiting review", ErrState)
	ErrEmptySelection    = fmt.Errorf("%w: no translations selected", ErrState)
	ErrSourceMissing     = fmt.Errorf("%w: source archive is no longer available", ErrState)
	ErrNotCompleted      = fmt.Errorf("%w: task is not completed", ErrState)
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", ErrState)

	// ErrQueueFull is returned when the task queue cannot take another job.
	ErrQueueFull = errors.New("task queue is full")

	// ErrOutputMissing means a completed task's artifact was removed.
	ErrOutputMissing = errors.New("translated archive is no longer available")
)
