package scheduler

import (
	"errors"
	"fmt"
)

// ErrTranslation matches every BatchError via errors.Is.
var ErrTranslation = errors.New("translation batch failed")

// BatchError records a batch whose translate call failed. The batch's own
// texts were used in place of the missing translations.
type BatchError struct {
	Batch int
	Size  int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("translation batch %d (%d strings): %v", e.Batch, e.Size, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

func (e *BatchError) Is(target error) bool {
	return target == ErrTranslation
}
