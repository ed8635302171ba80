// Package llm provides the chat-completion client used to generate
// answers. The client speaks the OpenAI-compatible /chat/completions
// REST shape.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"docintel/internal/domain"
)

// Client is an OpenAI-compatible chat-completions client.
// Temperature is pinned to zero: answers should lean deterministic and
// stay grounded in the supplied context.
type Client struct {
	url        string
	apiKey     string
	model      string
	client     *http.Client
	maxRetries int
}

// Config configures the chat-completions client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// NewClient creates a chat client. A missing API key is a configuration
// error surfaced before any request is made.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrConfiguration, cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	return &Client{
		url:        strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		apiKey:     key,
		model:      cfg.Model,
		client:     &http.Client{Timeout: t},
		maxRetries: 3,
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the system and user prompts and returns the assistant text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	body := completionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: encoding completion request: %v", domain.ErrExternalService, err)
	}
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrExternalService, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if attempt < c.maxRetries {
				time.Sleep(retryDelay(attempt))
				continue
			}
			return "", fmt.Errorf("%w: chat completion request: %v", domain.ErrExternalService, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			delay := retryDelay(attempt)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					delay = time.Duration(secs) * time.Second
				}
			}
			_ = resp.Body.Close()
			if attempt < c.maxRetries {
				time.Sleep(delay)
				continue
			}
			return "", fmt.Errorf("%w: chat completion failed: %s", domain.ErrExternalService, resp.Status)
		}

		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return "", fmt.Errorf("%w: chat completion failed: %s", domain.ErrExternalService, resp.Status)
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("%w: reading completion response: %v", domain.ErrExternalService, err)
		}
		var out completionResponse
		if err := json.Unmarshal(payload, &out); err != nil || len(out.Choices) == 0 {
			return "", fmt.Errorf("%w: no completion returned", domain.ErrExternalService)
		}
		return strings.TrimSpace(out.Choices[0].Message.Content), nil
	}
	return "", fmt.Errorf("%w: no completion returned", domain.ErrExternalService)
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
