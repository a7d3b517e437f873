// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/rubricheck/pkg/types"
)

// defaultOpenAIURL is the chat completions endpoint. Package-level var for
// test substitution.
var defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIClient calls the OpenAI chat completions API.
type OpenAIClient struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

// NewOpenAIClient builds a client from inference config.
func NewOpenAIClient(cfg types.InferenceConfig) *OpenAIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete submits one chat completion. Quota and server-side failures come
// back as retryable ProviderErrors; everything else is terminal.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:       c.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: 0.1,
	}
	if req.ForceJSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := c.BaseURL
	if url == "" {
		url = defaultOpenAIURL
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// Network failures and client timeouts are worth retrying.
		return "", &types.ProviderError{Provider: "openai", Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &types.ProviderError{
			Provider:   "openai",
			StatusCode: resp.StatusCode,
			Retryable:  retryableStatus(resp.StatusCode),
			Err:        fmt.Errorf("%s", bytes.TrimSpace(raw)),
		}
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", &types.ProviderError{Provider: "openai", Retryable: false, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if cr.Error != nil {
		return "", &types.ProviderError{Provider: "openai", Retryable: false, Err: errors.New(cr.Error.Message)}
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return "", &types.ProviderError{Provider: "openai", Retryable: false, Err: errors.New("empty completion")}
	}

	return cr.Choices[0].Message.Content, nil
}

// retryableStatus marks quota (429) and server-side (5xx) statuses.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
