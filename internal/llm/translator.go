package llm

import (
	"context"

	"jar-translator/internal/classifier"
)

// PromptTranslator turns a Completer into a Translator: it keeps only the texts
// the classifier accepts, asks the backend for a JSON array and merges the
// answer back by position.
type PromptTranslator struct {
	Completer Completer
	// Keep selects the texts sent to the backend. Nil means
	// classifier.ShouldTranslate.
	Keep func(string) bool
}

// NewPromptTranslator wraps c.
func NewPromptTranslator(c Completer) *PromptTranslator {
	return &PromptTranslator{Completer: c}
}

// TranslateBatch implements Translator. Positions the backend leaves out, or
// answers with a non-string, keep their original text.
func (t *PromptTranslator) TranslateBatch(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}
	keep := t.Keep
	if keep == nil {
		keep = classifier.ShouldTranslate
	}

	var (
		selected []string
		indices  []int
	)
	for i, s := range texts {
		if keep(s) {
			selected = append(selected, s)
			indices = append(indices, i)
		}
	}
	out := append([]string(nil), texts...)
	if len(selected) == 0 {
		return out, nil
	}

	prompt, err := BuildPrompt(selected, targetLang)
	if err != nil {
		return nil, err
	}
	content, err := t.Completer.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	translated, err := ParseArray(content)
	if err != nil {
		return nil, err
	}
	for i, idx := range indices {
		if i < len(translated) && translated[i] != nil {
			out[idx] = *translated[i]
		}
	}
	return out, nil
}

// Close releases the backend.
func (t *PromptTranslator) Close() error {
	return t.Completer.Close()
}

var _ Translator = (*PromptTranslator)(nil)
