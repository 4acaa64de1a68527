package gemini

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
	APIURL          = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"
	maxOutputTokens = 8192
	provider        = "gemini"
)

// Config configures the generateContent client.
type Config struct {
	URL       string
	APIKey    string
	Timeout   time.Duration
	Transport http.RoundTripper
}

// Client implements llm.Completer using the Gemini generateContent endpoint.
// The key is sent in the x-goog-api-key header, never in the URL.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a Gemini client. An empty URL uses APIURL.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.URL == "" {
		cfg.URL = APIURL
	}
	return &Client{
		apiURL:     cfg.URL,
		apiKey:     cfg.APIKey,
		httpClient: llm.NewHTTPClient(cfg.Transport, cfg.Timeout),
	}, nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Complete sends prompt as a single user turn.
func (c *Client) Complete(ctx context.Context, prompt llm.Prompt) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt.User}}}},
		GenerationConfig: generationConfig{
			Temperature:     0.3,
			MaxOutputTokens: maxOutputTokens,
		},
	}
	if prompt.System != "" {
		reqBody.SystemInstruction = &content{Parts: []part{{Text: prompt.System}}}
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
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

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%s response parse: %w", provider, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%s error: %s (%s)", provider, parsed.Error.Message, parsed.Error.Status)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", llm.ErrEmptyResponse
	}
	text := strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

// Close drops idle connections.
func (c *Client) Close() error {
	llm.CloseIdle(c.httpClient)
	return nil
}

var _ llm.Completer = (*Client)(nil)
