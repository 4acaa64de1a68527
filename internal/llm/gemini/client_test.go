package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"jar-translator/internal/llm"
)

func TestCompleteUsesHeaderKey(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "" {
			t.Errorf("key must not be sent in the query string")
		}
		if r.Header.Get("x-goog-api-key") != "g-key" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte("{\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"```json\\n[\\\"Hola\\\"]\\n```\"}]}}]}"))
	}))
	defer srv.Close()

	c, err := NewClient(Config{URL: srv.URL, APIKey: "g-key", Transport: http.DefaultTransport})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	out, err := c.Complete(context.Background(), llm.Prompt{System: "sys", User: "translate"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	parsed, err := llm.ParseArray(out)
	if err != nil || len(parsed) != 1 || *parsed[0] != "Hola" {
		t.Fatalf("unexpected reply %q (%v)", out, err)
	}
	if got.GenerationConfig.MaxOutputTokens != 8192 || got.SystemInstruction == nil || got.Contents[0].Parts[0].Text != "translate" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestCompleteEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c, _ := NewClient(Config{URL: srv.URL, APIKey: "k", Transport: http.DefaultTransport})
	if _, err := c.Complete(context.Background(), llm.Prompt{User: "x"}); !errors.Is(err, llm.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}
