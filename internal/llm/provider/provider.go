// Package provider maps a model id to a configured translator backend.
package provider

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"jar-translator/internal/llm"
	"jar-translator/internal/llm/anthropic"
	"jar-translator/internal/llm/gemini"
	"jar-translator/internal/llm/openai"
)

const (
	Deepseek = "Deepseek"
	OpenAI   = "OpenAI"
	Claude   = "Claude"
	Gemini   = "Gemini"
)

// ErrUnknownModel is returned for a model id with no backend.
var ErrUnknownModel = errors.New("unsupported ai model")

var canonical = map[string]string{
	"deepseek": Deepseek,
	"openai":   OpenAI,
	"claude":   Claude,
	"gemini":   Gemini,
}

// Options tune the backend client.
type Options struct {
	Timeout time.Duration
	// Retries is the number of extra attempts for transient failures.
	Retries int
	// URL overrides the vendor endpoint.
	URL       string
	Transport http.RoundTripper
	// Fields are attached to retry log lines.
	Fields map[string]any
}

// Normalize returns the canonical spelling of model, matched
// case-insensitively.
func Normalize(model string) (string, error) {
	name, ok := canonical[strings.ToLower(strings.TrimSpace(model))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	return name, nil
}

// Models lists the supported model ids.
func Models() []string {
	out := make([]string, 0, len(canonical))
	for _, name := range canonical {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// New builds the translator for model using apiKey.
func New(model, apiKey string, opts Options) (llm.Translator, error) {
	name, err := Normalize(model)
	if err != nil {
		return nil, err
	}
	completer, err := newCompleter(name, apiKey, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return llm.NewPromptTranslator(llm.WithRetry(completer, opts.Retries, opts.Fields)), nil
}

func newCompleter(name, apiKey string, opts Options) (llm.Completer, error) {
	switch name {
	case Deepseek:
		return openai.NewClient(openai.Config{
			Provider:  "deepseek",
			URL:       orDefault(opts.URL, openai.DeepSeekURL),
			Model:     openai.DeepSeekModel,
			APIKey:    apiKey,
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		})
	case OpenAI:
		return openai.NewClient(openai.Config{
			Provider:  "openai",
			URL:       orDefault(opts.URL, openai.OpenAIURL),
			Model:     openai.OpenAIModel,
			APIKey:    apiKey,
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		})
	case Claude:
		return anthropic.NewClient(anthropic.Config{
			URL:       opts.URL,
			APIKey:    apiKey,
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		})
	case Gemini:
		return gemini.NewClient(gemini.Config{
			URL:       opts.URL,
			APIKey:    apiKey,
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
