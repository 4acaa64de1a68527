package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Deepseek", Deepseek},
		{"deepseek", Deepseek},
		{" OPENAI ", OpenAI},
		{"claude", Claude},
		{"Gemini", Gemini},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.in)
		if err != nil || got != tt.want {
			t.Fatalf("Normalize(%q) = %q, %v", tt.in, got, err)
		}
	}
	if _, err := Normalize("llama"); !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}
}

func TestNewTranslatorEndToEndWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk-x" {
			t.Errorf("missing bearer token")
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"[\"你好世界\"]"}}]}`))
	}))
	defer srv.Close()

	tr, err := New("deepseek", "sk-x", Options{URL: srv.URL, Retries: 1, Transport: http.DefaultTransport})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tr.Close()

	out, err := tr.TranslateBatch(context.Background(), []string{"Hello World", "my_mod_id"}, "zh_cn")
	if err != nil {
		t.Fatalf("TranslateBatch: %v", err)
	}
	if out[0] != "你好世界" || out[1] != "my_mod_id" {
		t.Fatalf("unexpected output %v", out)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected one retry, got %d calls", calls.Load())
	}
}

func TestNewRequiresKey(t *testing.T) {
	for _, m := range Models() {
		if _, err := New(m, "", Options{}); err == nil || !strings.Contains(err.Error(), "api key") {
			t.Fatalf("%s: expected api key error, got %v", m, err)
		}
	}
}
