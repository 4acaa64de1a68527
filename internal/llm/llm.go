package llm

import (
	"context"
	"errors"
	"fmt"
)

// Translator translates a batch of strings into a target language. The result
// has the same length and order as texts.
type Translator interface {
	TranslateBatch(ctx context.Context, texts []string, targetLang string) ([]string, error)
	// Close releases the translator's network resources.
	Close() error
}

// Prompt is a single chat turn sent to a completion backend.
type Prompt struct {
	System string
	User   string
}

// Completer is a vendor text-completion endpoint.
type Completer interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
	Close() error
}

// ErrEmptyResponse is returned when a backend answers without any text.
var ErrEmptyResponse = errors.New("llm response empty content")

// StatusError is a non-2xx answer from a backend.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("%s api error: http status %d: %s", e.Provider, e.StatusCode, body)
}
