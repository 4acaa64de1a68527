package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"jar-translator/internal/llm"
)

const (
	OpenAIURL      = "https://api.openai.com/v1/chat/completions"
	OpenAIModel    = "gpt-4o-mini"
	DeepSeekURL    = "https://api.deepseek.com/v1/chat/completions"
	DeepSeekModel  = "deepseek-chat"
	defaultTemp    = float32(0.3)
	providerOpenAI = "openai"
)

// Config selects the endpoint and credentials for a chat-completions backend.
type Config struct {
	// Provider names the backend in errors and logs.
	Provider string
	URL      string
	Model    string
	APIKey   string
	Timeout  time.Duration
	// Transport is the base round tripper; nil means llm.NewTransport().
	Transport http.RoundTripper
}

// Client implements llm.Completer against an OpenAI-compatible chat
// completions endpoint. DeepSeek speaks the same protocol.
type Client struct {
	provider   string
	apiURL     string
	model      string
	httpClient *http.Client
}

// NewClient constructs a chat-completions client. The API key is attached as a
// bearer token by an oauth2 transport.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("api url is required")
	}
	provider := cfg.Provider
	if provider == "" {
		provider = providerOpenAI
	}
	base := cfg.Transport
	if base == nil {
		base = llm.NewTransport()
	}
	rt := &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey, TokenType: "Bearer"}),
		Base:   base,
	}
	return &Client{
		provider:   provider,
		apiURL:     cfg.URL,
		model:      cfg.Model,
		httpClient: llm.NewHTTPClient(rt, cfg.Timeout),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends prompt as a system + user message pair.
func (c *Client) Complete(ctx context.Context, prompt llm.Prompt) (string, error) {
	temp := defaultTemp
	messages := make([]chatMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: prompt.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt.User})
	payload, err := json.Marshal(chatRequest{Model: c.model, Messages: messages, Temperature: &temp})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("%s request timeout: %w", c.provider, err)
		}
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &llm.StatusError{Provider: c.provider, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%s response parse: %w", c.provider, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%s error: %s (%s)", c.provider, parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s response missing choices", c.provider)
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", llm.ErrEmptyResponse
	}
	return content, nil
}

// Close drops idle connections.
func (c *Client) Close() error {
	llm.CloseIdle(c.httpClient)
	return nil
}

var _ llm.Completer = (*Client)(nil)
