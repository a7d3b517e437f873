// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// UnsupportedInputError rejects an essay before the pipeline runs: empty
// text or text exceeding the configured length ceiling. Fatal; the
// pipeline never truncates.
type UnsupportedInputError struct {
	// Reason is a short human-readable cause.
	Reason string

	// Length is the offending input length in characters, when relevant.
	Length int
}

func (e *UnsupportedInputError) Error() string {
	if e.Length > 0 {
		return fmt.Sprintf("unsupported input: %s (%d chars)", e.Reason, e.Length)
	}
	return "unsupported input: " + e.Reason
}

// RubricParseError means the rubric failed schema or semantic validation.
// Fatal; no partial rubric is ever used.
type RubricParseError struct {
	// Errors lists the hard validation failures, each naming the
	// offending criterion id or field.
	Errors []string

	// Warnings lists the soft issues seen before the hard failure.
	Warnings []string
}

func (e *RubricParseError) Error() string {
	return "rubric parse failed: " + strings.Join(e.Errors, "; ")
}

// ProviderError is a transport-level failure talking to the inference
// service: timeout, quota, or a malformed envelope. Retryable failures are
// retried with backoff; exhausting retries isolates the failure to the
// affected criterion.
type ProviderError struct {
	// Provider names the backend, e.g. "openai".
	Provider string

	// StatusCode is the HTTP status when one was received, else 0.
	StatusCode int

	// Retryable marks quota and transient server failures.
	Retryable bool

	Err error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s provider error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// SchemaViolation means the response arrived but could not be coerced to
// the expected schema. Retried once with a stricter prompt, then
// downgraded to a refusal.
type SchemaViolation struct {
	// Reason describes what failed to parse or which field was invalid.
	Reason string

	// Raw is the offending response text, truncated for logging.
	Raw string

	Err error
}

func (e *SchemaViolation) Error() string {
	return "schema violation: " + e.Reason
}

func (e *SchemaViolation) Unwrap() error { return e.Err }
