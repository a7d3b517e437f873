// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package inference wraps the language-model service behind a single
// capability: submit a prompt, receive a response. Transport failures
// surface as types.ProviderError; responses that cannot be coerced to the
// caller's schema surface as types.SchemaViolation. Callers own retry
// policy via CompleteWithRetry.
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/pdiddy/rubricheck/pkg/types"
)

// Request is one inference call.
type Request struct {
	// System is the system instruction, may be empty.
	System string

	// Prompt is the user message.
	Prompt string

	// MaxTokens caps the response length. Zero means the backend default.
	MaxTokens int

	// ForceJSON asks the provider for a JSON-object response when it
	// supports constrained output.
	ForceJSON bool
}

// Client abstracts the inference service so tests can supply a mock.
type Client interface {
	// Complete submits the request and returns the raw response text.
	Complete(ctx context.Context, req Request) (string, error)
}

// BackoffBase controls the base duration for exponential backoff on
// retryable provider errors. Tests override this to avoid real sleeps.
var BackoffBase = time.Second

// Retryable reports whether err is a transient provider failure worth
// retrying: quota, timeout, or a 5xx from the service.
func Retryable(err error) bool {
	var pe *types.ProviderError
	return errors.As(err, &pe) && pe.Retryable
}

// CompleteWithRetry calls the client with exponential backoff on retryable
// provider errors: base, 2*base, 4*base, ... Non-retryable errors and
// schema problems return immediately.
func CompleteWithRetry(ctx context.Context, c Client, req Request, maxRetries int) (string, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * BackoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, err := c.Complete(ctx, req)
		if err == nil {
			return text, nil
		}
		if !Retryable(err) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

// CompleteJSON submits the request and unmarshals the response into T.
// A response that is not valid JSON for T is a types.SchemaViolation.
func CompleteJSON[T any](ctx context.Context, c Client, req Request, maxRetries int) (T, error) {
	var out T

	text, err := CompleteWithRetry(ctx, c, req, maxRetries)
	if err != nil {
		return out, err
	}

	payload := ExtractJSON(text)
	if payload == "" {
		return out, &types.SchemaViolation{Reason: "no JSON object in response", Raw: truncate(text, 200)}
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return out, &types.SchemaViolation{Reason: "response is not valid JSON", Raw: truncate(text, 200), Err: err}
	}
	return out, nil
}

// ExtractJSON pulls the first JSON object out of model response text.
// Handles fenced ```json blocks and prose before or after the object by
// scanning for balanced braces. Returns "" when no object is found.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown fences when the whole response is a code block.
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
