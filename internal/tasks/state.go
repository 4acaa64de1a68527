package tasks

import "fmt"

var allowedTransitions = map[Status][]Status{
	StatusQueued:     {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusReview, StatusCompleted, StatusFailed},
	StatusReview:     {StatusCompleted, StatusFailed},
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func transitionLabel(from, to Status) string {
	return string(from) + "->" + string(to)
}

// transition returns an update func that moves a task to the given status
// and then applies mutate. The update fails without touching the task when
// the step is not allowed.
func transition(to Status, mutate func(*Task)) func(*Task) error {
	return func(t *Task) error {
		if !CanTransition(t.Status, to) {
			return fmt.Errorf("%w: %s", ErrInvalidTransition, transitionLabel(t.Status, to))
		}
		t.Status = to
		if mutate != nil {
			mutate(t)
		}
		return nil
	}
}
