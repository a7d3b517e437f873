// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/pdiddy/rubricheck/internal/inference"
	"github.com/pdiddy/rubricheck/pkg/types"
)

func TestMain(m *testing.M) {
	inference.BackoffBase = time.Millisecond
	os.Exit(m.Run())
}

func testEssay() *types.StructuredEssay {
	text := "The moon landing changed politics.\n\nIt also changed science forever."
	return &types.StructuredEssay{
		Language: "en",
		Text:     text,
		Paragraphs: []types.Paragraph{
			{Index: 0, Text: "The moon landing changed politics.", Start: 0, End: 34, SectionIndex: -1},
			{Index: 1, Text: "It also changed science forever.", Start: 36, End: 68, SectionIndex: -1},
		},
	}
}

func testCriterion() types.Criterion {
	return types.Criterion{
		ID:     "argument",
		Name:   "Argument",
		Weight: 1,
		Levels: []string{"Excellent", "Good", "Fair", "Poor"},
		Descriptors: map[string]string{
			"Excellent": "e", "Good": "g", "Fair": "f", "Poor": "p",
		},
	}
}

// judgmentJSON renders a wire judgment citing the given verbatim quote.
func judgmentJSON(level, quote string) string {
	spans := "[]"
	if quote != "" {
		spans = fmt.Sprintf(`[{"paragraph_index": 0, "quoted_text": %q}]`, quote)
	}
	return fmt.Sprintf(`{
		"criterion_id": "argument",
		"level": %q,
		"justification": "because",
		"evidence_spans": %s,
		"suggestion": "tighten the thesis",
		"refuse": false,
		"reason": ""
	}`, level, spans)
}

type scriptedClient struct {
	responses []string
	errs      []error
	calls     int
}

func (c *scriptedClient) Complete(_ context.Context, _ inference.Request) (string, error) {
	i := c.calls
	c.calls++
	if i >= len(c.responses) {
		return "", errors.New("scripted client exhausted")
	}
	if c.errs != nil && c.errs[i] != nil {
		return "", c.errs[i]
	}
	return c.responses[i], nil
}

func TestEvaluatePassesAgree(t *testing.T) {
	quote := "The moon landing changed politics."
	client := &scriptedClient{responses: []string{
		judgmentJSON("Good", quote),
		judgmentJSON("Good", quote),
	}}
	e := New(client, types.EvaluationConfig{})

	got := e.Evaluate(context.Background(), testCriterion(), testEssay())
	if got.Refused {
		t.Fatalf("unexpected refusal: %s", got.RefusalReason)
	}
	if got.Level != "Good" {
		t.Errorf("level = %q, want Good", got.Level)
	}
	if got.Agreement != types.AgreementOK || got.TieBreakUsed {
		t.Errorf("agreement = %q tieBreak = %v, want ok without tie-break", got.Agreement, got.TieBreakUsed)
	}
	if len(got.Evidence) != 1 || got.Evidence[0].ParagraphIndex != 0 {
		t.Errorf("evidence = %+v", got.Evidence)
	}
	if got.LowConfidence {
		t.Error("verified evidence flagged low confidence")
	}
	if client.calls != 2 {
		t.Errorf("calls = %d, want 2", client.calls)
	}
}

func TestEvaluateTieBreakResolved(t *testing.T) {
	quote := "It also changed science forever."
	client := &scriptedClient{responses: []string{
		judgmentJSON("Excellent", quote),
		judgmentJSON("Good", quote),
		`{"decision": "second", "rationale": "the evidence is thinner than pass one claims"}`,
	}}
	e := New(client, types.EvaluationConfig{})

	got := e.Evaluate(context.Background(), testCriterion(), testEssay())
	if got.Level != "Good" {
		t.Errorf("level = %q, want tie-break winner Good", got.Level)
	}
	if got.Agreement != types.AgreementOK || !got.TieBreakUsed {
		t.Errorf("agreement = %q tieBreak = %v, want resolved tie-break", got.Agreement, got.TieBreakUsed)
	}
}

func TestEvaluateTieBreakMidpoint(t *testing.T) {
	quote := "It also changed science forever."
	client := &scriptedClient{responses: []string{
		judgmentJSON("Excellent", quote),
		judgmentJSON("Fair", quote),
		`{"decision": "midpoint", "rationale": "both overshoot"}`,
	}}
	e := New(client, types.EvaluationConfig{})

	got := e.Evaluate(context.Background(), testCriterion(), testEssay())
	if got.Level != "Good" {
		t.Errorf("level = %q, want midpoint Good between Excellent and Fair", got.Level)
	}
	if got.Agreement != types.AgreementOK || !got.TieBreakUsed {
		t.Errorf("agreement = %q tieBreak = %v", got.Agreement, got.TieBreakUsed)
	}
}

func TestEvaluateTieBreakMidpointInvalidWhenAdjacent(t *testing.T) {
	quote := "It also changed science forever."
	client := &scriptedClient{responses: []string{
		judgmentJSON("Excellent", quote),
		judgmentJSON("Good", quote),
		`{"decision": "midpoint", "rationale": "split the difference"}`,
	}}
	e := New(client, types.EvaluationConfig{})

	// Adjacent levels have no midpoint; the disagreement stands.
	got := e.Evaluate(context.Background(), testCriterion(), testEssay())
	if got.Agreement != types.AgreementNeedsReview {
		t.Errorf("agreement = %q, want needs_review", got.Agreement)
	}
	if got.Level != "Excellent" {
		t.Errorf("level = %q, want the more favorable Excellent", got.Level)
	}
}

func TestEvaluateTieBreakUnresolved(t *testing.T) {
	quote := "The moon landing changed politics."
	client := &scriptedClient{responses: []string{
		judgmentJSON("Fair", quote),
		judgmentJSON("Good", quote),
		`{"decision": "unresolved", "rationale": "both readings hold"}`,
	}}
	e := New(client, types.EvaluationConfig{})

	got := e.Evaluate(context.Background(), testCriterion(), testEssay())
	if got.Agreement != types.AgreementNeedsReview {
		t.Errorf("agreement = %q, want needs_review", got.Agreement)
	}
	if got.Level != "Good" {
		t.Errorf("level = %q, want the more favorable Good", got.Level)
	}
	if !got.TieBreakUsed {
		t.Error("TieBreakUsed not set after arbitration")
	}
}

func TestEvaluateModelRefusal(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"criterion_id": "argument", "level": "", "justification": "", "evidence_spans": [],
		  "suggestion": "", "refuse": true, "reason": "essay is off topic for this criterion"}`,
	}}
	e := New(client, types.EvaluationConfig{})

	got := e.Evaluate(context.Background(), testCriterion(), testEssay())
	if !got.Refused {
		t.Fatal("want refusal")
	}
	if got.RefusalReason != "essay is off topic for this criterion" {
		t.Errorf("reason = %q", got.RefusalReason)
	}
	if client.calls != 1 {
		t.Errorf("calls = %d, want 1 (no second pass after refusal)", client.calls)
	}
}

func TestEvaluateMalformedThenValid(t *testing.T) {
	quote := "The moon landing changed politics."
	client := &scriptedClient{responses: []string{
		"I think this essay deserves a Good.",
		judgmentJSON("Good", quote),
	}}
	e := New(client, types.EvaluationConfig{SinglePass: true})

	got := e.Evaluate(context.Background(), testCriterion(), testEssay())
	if got.Refused {
		t.Fatalf("unexpected refusal: %s", got.RefusalReason)
	}
	if got.Level != "Good" {
		t.Errorf("level = %q", got.Level)
	}
	if client.calls != 2 {
		t.Errorf("calls = %d, want stricter retry", client.calls)
	}
}

func TestEvaluateMalformedTwice(t *testing.T) {
	client := &scriptedClient{responses: []string{"not json", "still not json"}}
	e := New(client, types.EvaluationConfig{SinglePass: true})

	got := e.Evaluate(context.Background(), testCriterion(), testEssay())
	if !got.Refused || got.RefusalReason != "invalid response format" {
		t.Errorf("result = %+v, want format refusal", got)
	}
}

func TestEvaluateProviderExhausted(t *testing.T) {
	transient := &types.ProviderError{Provider: "openai", StatusCode: 429, Retryable: true, Err: errors.New("rate limited")}
	client := &scriptedClient{
		responses: make([]string, 4),
		errs:      []error{transient, transient, transient, transient},
	}
	e := New(client, types.EvaluationConfig{SinglePass: true})

	got := e.Evaluate(context.Background(), testCriterion(), testEssay())
	if !got.Refused || got.RefusalReason != "evaluation unavailable" {
		t.Errorf("result = %+v, want unavailable refusal", got)
	}
	if client.calls != 4 {
		t.Errorf("calls = %d, want initial attempt plus 3 retries", client.calls)
	}
}

func TestEvaluateUnverifiableEvidenceDropped(t *testing.T) {
	fabricated := "Humanity reached for the stars and found itself."
	client := &scriptedClient{responses: []string{
		judgmentJSON("Good", fabricated),
		judgmentJSON("Good", fabricated),
	}}
	e := New(client, types.EvaluationConfig{SinglePass: true})

	got := e.Evaluate(context.Background(), testCriterion(), testEssay())
	if got.Refused {
		t.Fatalf("unexpected refusal: %s", got.RefusalReason)
	}
	if len(got.Evidence) != 0 {
		t.Errorf("fabricated evidence kept: %+v", got.Evidence)
	}
	if !got.LowConfidence {
		t.Error("dropped evidence not flagged low confidence")
	}
	if client.calls != 2 {
		t.Errorf("calls = %d, want stricter retry before dropping", client.calls)
	}
}

func TestEvaluateInvalidLevelRefused(t *testing.T) {
	client := &scriptedClient{responses: []string{
		judgmentJSON("Stellar", "The moon landing changed politics."),
		judgmentJSON("Stellar", "The moon landing changed politics."),
	}}
	e := New(client, types.EvaluationConfig{SinglePass: true})

	got := e.Evaluate(context.Background(), testCriterion(), testEssay())
	if !got.Refused {
		t.Fatalf("level outside the rubric accepted: %+v", got)
	}
}

func TestEvaluateTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &ctxErrClient{}
	e := New(client, types.EvaluationConfig{})

	got := e.Evaluate(ctx, testCriterion(), testEssay())
	if !got.Refused || got.RefusalReason != "timeout" {
		t.Errorf("result = %+v, want timeout refusal", got)
	}
}

type ctxErrClient struct{}

func (c *ctxErrClient) Complete(ctx context.Context, _ inference.Request) (string, error) {
	return "", ctx.Err()
}

func TestEvaluateEvidenceOverLengthDropped(t *testing.T) {
	quote := "The moon landing changed politics."
	client := &scriptedClient{responses: []string{
		judgmentJSON("Good", quote),
		judgmentJSON("Good", quote),
	}}
	e := New(client, types.EvaluationConfig{SinglePass: true, MaxSpanChars: 10})

	got := e.Evaluate(context.Background(), testCriterion(), testEssay())
	if got.Refused {
		t.Fatalf("unexpected refusal: %s", got.RefusalReason)
	}
	if len(got.Evidence) != 0 || !got.LowConfidence {
		t.Errorf("over-length span kept: %+v", got)
	}
}
