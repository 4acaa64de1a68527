package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jar-translator/internal/llm"
)

const (
	APIURL     = "https://api.anthropic.com/v1/messages"
	Model      = "claude-3-haiku-20240307"
	apiVersion = "2023-06-01"
	maxTokens  = 4096
	provider   = "claude"
)

// Config configures the messages client.
type Config struct {
	URL       string
	Model     string
	APIKey    string
	Timeout   time.Duration
	Transport http.RoundTripper
}

// Client implements llm.Completer using the Anthropic Messages API.
type Client struct {
	apiURL     string
	model      string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a Messages API client. Empty URL and Model use the
// defaults.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.URL == "" {
		cfg.URL = APIURL
	}
	if cfg.Model == "" {
		cfg.Model = Model
	}
	return &Client{
		apiURL:     cfg.URL,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: llm.NewHTTPClient(cfg.Transport, cfg.Timeout),
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends prompt as a single user message with a system prompt.
func (c *Client) Complete(ctx context.Context, prompt llm.Prompt) (string, error) {
	payload, err := json.Marshal(messagesRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		System:      prompt.System,
		Messages:    []message{{Role: "user", Content: prompt.User}},
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request: %w", provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &llm.StatusError{Provider: provider, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%s response parse: %w", provider, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%s error: %s (%s)", provider, parsed.Error.Message, parsed.Error.Type)
	}
	var b strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(b.String())
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
