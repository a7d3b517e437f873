// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pdiddy/rubricheck/pkg/types"
)

func chatCompletion(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestOpenAIComplete(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write([]byte(chatCompletion("the response text")))
	}))
	defer srv.Close()

	c := NewOpenAIClient(types.InferenceConfig{Model: "gpt-4o-mini", APIKey: "test-key", BaseURL: srv.URL})
	got, err := c.Complete(context.Background(), Request{
		System:    "be brief",
		Prompt:    "grade this",
		ForceJSON: true,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "the response text" {
		t.Errorf("response = %q", got)
	}

	if captured.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", captured.Model)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Role != "user" {
		t.Errorf("messages = %+v", captured.Messages)
	}
	if captured.ResponseFormat == nil || captured.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %+v", captured.ResponseFormat)
	}
}

func TestOpenAIStatusErrors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantRetryable bool
	}{
		{"quota", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"bad key", http.StatusUnauthorized, false},
		{"bad request", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			c := NewOpenAIClient(types.InferenceConfig{BaseURL: srv.URL})
			_, err := c.Complete(context.Background(), Request{Prompt: "p"})

			var pe *types.ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("error = %v, want ProviderError", err)
			}
			if pe.StatusCode != tt.status || pe.Retryable != tt.wantRetryable {
				t.Errorf("ProviderError = %+v", pe)
			}
		})
	}
}

func TestOpenAIEmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(types.InferenceConfig{BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), Request{Prompt: "p"})

	var pe *types.ProviderError
	if !errors.As(err, &pe) || pe.Retryable {
		t.Errorf("error = %v, want non-retryable ProviderError", err)
	}
}

func TestOpenAIContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewOpenAIClient(types.InferenceConfig{BaseURL: srv.URL})
	_, err := c.Complete(ctx, Request{Prompt: "p"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
