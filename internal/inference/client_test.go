// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package inference

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/pdiddy/rubricheck/pkg/types"
)

func TestMain(m *testing.M) {
	BackoffBase = time.Millisecond
	os.Exit(m.Run())
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced no language", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose around", `Sure, here you go: {"a": 1} Hope that helps!`, `{"a": 1}`},
		{"nested braces", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`},
		{"brace in string", `{"a": "closing } inside"}`, `{"a": "closing } inside"}`},
		{"escaped quote in string", `{"a": "she said \"}\" loudly"}`, `{"a": "she said \"}\" loudly"}`},
		{"no object", "there is no JSON here", ""},
		{"unbalanced", `{"a": 1`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.in); got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// flakyClient fails with a retryable error n times, then succeeds.
type flakyClient struct {
	failures int
	calls    int
}

func (c *flakyClient) Complete(_ context.Context, _ Request) (string, error) {
	c.calls++
	if c.calls <= c.failures {
		return "", &types.ProviderError{Provider: "test", StatusCode: 429, Retryable: true, Err: errors.New("quota")}
	}
	return `{"ok": true}`, nil
}

func TestCompleteWithRetryRecovers(t *testing.T) {
	c := &flakyClient{failures: 2}
	got, err := CompleteWithRetry(context.Background(), c, Request{Prompt: "p"}, 3)
	if err != nil {
		t.Fatalf("CompleteWithRetry: %v", err)
	}
	if got != `{"ok": true}` {
		t.Errorf("response = %q", got)
	}
	if c.calls != 3 {
		t.Errorf("calls = %d, want 3", c.calls)
	}
}

func TestCompleteWithRetryExhausts(t *testing.T) {
	c := &flakyClient{failures: 100}
	_, err := CompleteWithRetry(context.Background(), c, Request{Prompt: "p"}, 2)
	var pe *types.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want ProviderError", err)
	}
	if c.calls != 3 {
		t.Errorf("calls = %d, want initial attempt plus 2 retries", c.calls)
	}
}

type fatalClient struct{ calls int }

func (c *fatalClient) Complete(context.Context, Request) (string, error) {
	c.calls++
	return "", &types.ProviderError{Provider: "test", StatusCode: 401, Retryable: false, Err: errors.New("bad key")}
}

func TestCompleteWithRetryStopsOnFatal(t *testing.T) {
	c := &fatalClient{}
	_, err := CompleteWithRetry(context.Background(), c, Request{Prompt: "p"}, 3)
	if err == nil {
		t.Fatal("want error")
	}
	if c.calls != 1 {
		t.Errorf("calls = %d, want no retries on a non-retryable error", c.calls)
	}
}

func TestCompleteWithRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &flakyClient{failures: 100}
	_, err := CompleteWithRetry(ctx, c, Request{Prompt: "p"}, 3)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if c.calls != 1 {
		t.Errorf("calls = %d, want 1 before the backoff noticed cancellation", c.calls)
	}
}

type staticClient struct{ text string }

func (c staticClient) Complete(context.Context, Request) (string, error) {
	return c.text, nil
}

func TestCompleteJSON(t *testing.T) {
	type out struct {
		Level string `json:"level"`
	}

	got, err := CompleteJSON[out](context.Background(), staticClient{`The grade: {"level": "Good"}`}, Request{}, 1)
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if got.Level != "Good" {
		t.Errorf("level = %q", got.Level)
	}

	_, err = CompleteJSON[out](context.Background(), staticClient{"no json at all"}, Request{}, 1)
	var sv *types.SchemaViolation
	if !errors.As(err, &sv) {
		t.Fatalf("error = %v, want SchemaViolation", err)
	}
}
