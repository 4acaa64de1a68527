package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"jar-translator/internal/shared/telemetry"
)

type stubCompleter struct {
	replies []string
	errs    []error
	prompts []Prompt
	closed  bool
}

func (s *stubCompleter) Complete(ctx context.Context, p Prompt) (string, error) {
	i := len(s.prompts)
	s.prompts = append(s.prompts, p)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", ErrEmptyResponse
}

func (s *stubCompleter) Close() error {
	s.closed = true
	return nil
}

func TestLanguageName(t *testing.T) {
	tests := map[string]string{
		"zh_cn":  "Simplified Chinese",
		"ZH_TW":  "Traditional Chinese",
		"pt_br":  "Brazilian Portuguese",
		"nl_nl":  "Dutch",
		"":       "English",
		"??":     "English",
		"ko_kr ": "Korean",
	}
	for code, want := range tests {
		if got := LanguageName(code); got != want {
			t.Fatalf("LanguageName(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestBuildPromptEmbedsIndentedArray(t *testing.T) {
	p, err := BuildPrompt([]string{"Hello <b>", "§aWelcome, %s!"}, "ja_jp")
	if err != nil {
		t.Fatalf("BuildPrompt: %v", err)
	}
	if p.System != SystemPrompt {
		t.Fatalf("unexpected system prompt %q", p.System)
	}
	for _, want := range []string{"to Japanese.", "[\n  \"Hello <b>\",\n  \"§aWelcome, %s!\"\n]", "placeholders like %s, %d, {0}"} {
		if !strings.Contains(p.User, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p.User)
		}
	}
}

func TestParseArray(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{name: "plain", content: `["a","b"]`, want: []string{"a", "b"}},
		{name: "json fence", content: "```json\n[\"a\"]\n```", want: []string{"a"}},
		{name: "bare fence", content: "```\n[\"a\"]```", want: []string{"a"}},
		{name: "chatter around", content: "Here you go:\n[\"a\", \"b\"]\nEnjoy", want: []string{"a", "b"}},
		{name: "non string element", content: `["a", 3, null]`, want: []string{"a", "", ""}},
		{name: "no array", content: `{"a":1}`, wantErr: true},
		{name: "broken", content: `["a",`, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArray(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseArray: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				v := ""
				if got[i] != nil {
					v = *got[i]
				}
				if v != tt.want[i] {
					t.Fatalf("item %d = %q, want %q", i, v, tt.want[i])
				}
			}
		})
	}
}

func TestProxyURL(t *testing.T) {
	env := func(m map[string]string) func(string) string {
		return func(k string) string { return m[k] }
	}
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "none", env: map[string]string{}, want: ""},
		{name: "https preferred", env: map[string]string{"HTTPS_PROXY": "http://secure:3128", "HTTP_PROXY": "http://plain:3128"}, want: "http://secure:3128"},
		{name: "lowercase", env: map[string]string{"http_proxy": "http://lower:8080"}, want: "http://lower:8080"},
		{name: "socks ignored", env: map[string]string{"HTTPS_PROXY": "socks5://s:1080", "HTTP_PROXY": "http://plain:3128"}, want: "http://plain:3128"},
		{name: "only socks", env: map[string]string{"HTTPS_PROXY": "socks5://s:1080"}, want: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := ProxyURL(env(tt.env))
			if tt.want == "" {
				if got != nil {
					t.Fatalf("expected no proxy, got %s", got)
				}
				return
			}
			if got == nil || got.String() != tt.want {
				t.Fatalf("ProxyURL = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestPromptTranslatorFiltersAndMerges(t *testing.T) {
	stub := &stubCompleter{replies: []string{`["你好世界", "按 E 打开物品栏"]`}}
	tr := NewPromptTranslator(stub)

	in := []string{"Hello World", "my_mod_id", "Press E to open the inventory", "com.example.Mod"}
	out, err := tr.TranslateBatch(context.Background(), in, "zh_cn")
	if err != nil {
		t.Fatalf("TranslateBatch: %v", err)
	}
	want := []string{"你好世界", "my_mod_id", "按 E 打开物品栏", "com.example.Mod"}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out[%d] = %q, want %q", i, out[i], want[i])
		}
	}
	if len(stub.prompts) != 1 {
		t.Fatalf("expected one backend call")
	}
	var sent []string
	user := stub.prompts[0].User
	start := strings.Index(user, "[")
	end := strings.Index(user, "]")
	if err := json.Unmarshal([]byte(user[start:end+1]), &sent); err != nil {
		t.Fatalf("prompt array: %v", err)
	}
	if len(sent) != 2 || sent[0] != "Hello World" {
		t.Fatalf("unexpected texts sent: %v", sent)
	}

	if err := tr.Close(); err != nil || !stub.closed {
		t.Fatalf("expected Close to reach the completer")
	}
}

func TestPromptTranslatorSkipsBackendWhenNothingQualifies(t *testing.T) {
	stub := &stubCompleter{}
	out, err := NewPromptTranslator(stub).TranslateBatch(context.Background(), []string{"my_mod_id", "getValue"}, "zh_cn")
	if err != nil {
		t.Fatalf("TranslateBatch: %v", err)
	}
	if len(stub.prompts) != 0 || out[0] != "my_mod_id" {
		t.Fatalf("expected passthrough without backend call")
	}
}

func TestPromptTranslatorPropagatesErrors(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	stub := &stubCompleter{errs: []error{boom}}
	if _, err := NewPromptTranslator(stub).TranslateBatch(context.Background(), []string{"Hello World"}, "zh_cn"); !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestRetryBacksOffOnTransientErrors(t *testing.T) {
	t.Cleanup(telemetry.SetOutput(io.Discard))
	stub := &stubCompleter{
		errs:    []error{&StatusError{Provider: "x", StatusCode: http.StatusTooManyRequests}, errors.New("read: connection reset by peer"), nil},
		replies: []string{"", "", "ok"},
	}
	c := WithRetry(stub, 2, nil).(*retryingCompleter)
	c.baseDelay = time.Millisecond

	out, err := c.Complete(context.Background(), Prompt{User: "x"})
	if err != nil || out != "ok" {
		t.Fatalf("expected success after retries, got %q %v", out, err)
	}
	if len(stub.prompts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(stub.prompts))
	}
}

func TestRetryStopsOnPermanentErrors(t *testing.T) {
	stub := &stubCompleter{errs: []error{&StatusError{Provider: "x", StatusCode: http.StatusUnauthorized}}}
	c := WithRetry(stub, 3, nil)
	if _, err := c.Complete(context.Background(), Prompt{User: "x"}); err == nil {
		t.Fatalf("expected error")
	}
	if len(stub.prompts) != 1 {
		t.Fatalf("401 must not be retried, got %d attempts", len(stub.prompts))
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{context.DeadlineExceeded, true},
		{context.Canceled, false},
		{&StatusError{StatusCode: 500}, true},
		{&StatusError{StatusCode: 400}, false},
		{errors.New("unexpected EOF"), true},
		{errors.New("llm response parse: invalid character"), false},
	}
	for _, tt := range tests {
		if got := shouldRetry(tt.err); got != tt.want {
			t.Fatalf("shouldRetry(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
