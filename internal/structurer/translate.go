// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package structurer

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/rubricheck/internal/inference"
)

// Translator converts essay text to the target language. Implementations
// return the translated text and whether it differs from the input.
// Structuring always operates on exactly one text version, so the result
// replaces the original wholesale before any offsets are computed.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, bool, error)
}

// NoopTranslator leaves text untouched.
type NoopTranslator struct{}

func (NoopTranslator) Translate(_ context.Context, text, _ string) (string, bool, error) {
	return text, false, nil
}

// InferenceTranslator translates via the inference service.
type InferenceTranslator struct {
	Client     inference.Client
	MaxRetries int
}

const translateSystem = "You are a document translator. Translate the user's text faithfully, preserving paragraph breaks, quotation marks, and section headers. Return only the translation with no commentary."

func (t *InferenceTranslator) Translate(ctx context.Context, text, targetLanguage string) (string, bool, error) {
	out, err := inference.CompleteWithRetry(ctx, t.Client, inference.Request{
		System: translateSystem,
		Prompt: fmt.Sprintf("Translate the following essay to %s:\n\n%s", targetLanguage, text),
	}, t.MaxRetries)
	if err != nil {
		return "", false, fmt.Errorf("translating essay: %w", err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return text, false, nil
	}
	return out, out != strings.TrimSpace(text), nil
}
