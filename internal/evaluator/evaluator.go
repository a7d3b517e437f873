// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evaluator judges one rubric criterion against one structured
// essay. Each criterion runs two independent passes; disagreements go to a
// tie-break arbitration. Every cited evidence span is verified verbatim
// against the essay text before it is accepted.
package evaluator

import (
	"context"
	"errors"
	"strings"

	"github.com/pdiddy/rubricheck/internal/inference"
	"github.com/pdiddy/rubricheck/pkg/types"
)

const (
	defaultMaxSpanChars     = 240
	defaultMaxEvidenceSpans = 5
)

// Refusal reasons the evaluator assigns itself, as opposed to reasons
// reported by the model.
const (
	reasonTimeout       = "timeout"
	reasonBadFormat     = "invalid response format"
	reasonUnavailable   = "evaluation unavailable"
	reasonInvalidLevel  = "model returned a level outside the rubric"
	reasonNoCriterionID = "model judged the wrong criterion"
)

// judgment is the wire shape one evaluation pass must return.
type judgment struct {
	CriterionID   string               `json:"criterion_id"`
	Level         string               `json:"level"`
	Justification string               `json:"justification"`
	Evidence      []types.EvidenceSpan `json:"evidence_spans"`
	Suggestion    string               `json:"suggestion"`
	Refuse        bool                 `json:"refuse"`
	Reason        string               `json:"reason"`
}

// tieBreakDecision is the wire shape of a tie-break arbitration.
type tieBreakDecision struct {
	Decision  string `json:"decision"`
	Rationale string `json:"rationale"`
}

// Evaluator runs the per-criterion judgment protocol.
type Evaluator struct {
	Client     inference.Client
	Config     types.EvaluationConfig
	MaxRetries int
}

// New returns an evaluator with config defaults applied.
func New(client inference.Client, cfg types.EvaluationConfig) *Evaluator {
	if cfg.MaxSpanChars <= 0 {
		cfg.MaxSpanChars = defaultMaxSpanChars
	}
	if cfg.MaxEvidenceSpans <= 0 {
		cfg.MaxEvidenceSpans = defaultMaxEvidenceSpans
	}
	return &Evaluator{Client: client, Config: cfg}
}

// Evaluate judges one criterion. Refusals come back as results, never
// errors: a failed provider, a malformed response, or a model refusal all
// produce a CriterionResult with Refused set and the reason recorded.
func (e *Evaluator) Evaluate(ctx context.Context, c types.Criterion, essay *types.StructuredEssay) types.CriterionResult {
	if e.Config.CriterionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Config.CriterionTimeout)
		defer cancel()
	}

	first, res := e.runPass(ctx, c, essay, passFirst)
	if res != nil {
		return *res
	}
	if first.Refuse {
		return refusal(c.ID, modelReason(first.Reason))
	}

	if e.Config.SinglePass {
		out := e.accept(c, essay, first)
		out.Agreement = types.AgreementOK
		return out
	}

	second, res := e.runPass(ctx, c, essay, passSecond)
	if res != nil {
		return *res
	}
	if second.Refuse {
		// One pass judged, one refused: keep the judgment but flag it.
		out := e.accept(c, essay, first)
		out.Agreement = types.AgreementNeedsReview
		return out
	}

	if first.Level == second.Level {
		out := e.accept(c, essay, first)
		out.Agreement = types.AgreementOK
		return out
	}

	return e.tieBreak(ctx, c, essay, first, second)
}

// passKind distinguishes the two independent passes so their prompts can
// differ enough to decorrelate them.
type passKind int

const (
	passFirst passKind = iota
	passSecond
)

// runPass executes one judgment pass, including the stricter retry on a
// schema violation and the verbatim evidence check. A non-nil result means
// the pass terminated the whole evaluation (timeout, provider exhausted,
// or irrecoverably malformed output).
func (e *Evaluator) runPass(ctx context.Context, c types.Criterion, essay *types.StructuredEssay, kind passKind) (*judgment, *types.CriterionResult) {
	req, err := buildJudgmentRequest(e.Config, c, essay, kind, false)
	if err != nil {
		r := refusal(c.ID, reasonBadFormat)
		return nil, &r
	}

	j, err := inference.CompleteJSON[judgment](ctx, e.Client, req, e.MaxRetries)
	if err != nil {
		var sv *types.SchemaViolation
		if errors.As(err, &sv) {
			req, _ = buildJudgmentRequest(e.Config, c, essay, kind, true)
			j, err = inference.CompleteJSON[judgment](ctx, e.Client, req, e.MaxRetries)
		}
	}
	if err != nil {
		r := refusal(c.ID, classifyFailure(ctx, err))
		return nil, &r
	}

	if !j.Refuse {
		if bad := e.checkJudgment(&j, c, essay); bad != "" {
			// One stricter retry, then give up on this criterion.
			req, _ = buildJudgmentRequest(e.Config, c, essay, kind, true)
			retry, err := inference.CompleteJSON[judgment](ctx, e.Client, req, e.MaxRetries)
			if err != nil {
				r := refusal(c.ID, classifyFailure(ctx, err))
				return nil, &r
			}
			if retry.Refuse {
				return &retry, nil
			}
			if bad := e.checkJudgment(&retry, c, essay); bad != "" {
				if bad == badEvidence {
					// Level and justification are usable; the unverified
					// spans get dropped in accept, flagging low confidence.
					return &retry, nil
				}
				r := refusal(c.ID, bad)
				return nil, &r
			}
			j = retry
		}
	}
	return &j, nil
}

const badEvidence = "evidence"

// checkJudgment validates a pass against the rubric and the essay. Returns
// "" when clean, badEvidence when only evidence verification failed, or a
// refusal reason for structural problems.
func (e *Evaluator) checkJudgment(j *judgment, c types.Criterion, essay *types.StructuredEssay) string {
	if j.CriterionID != "" && j.CriterionID != c.ID {
		return reasonNoCriterionID
	}
	if c.LevelRank(j.Level) < 0 {
		return reasonInvalidLevel
	}
	if len(e.verifiedSpans(j.Evidence, essay)) < len(capSpans(j.Evidence, e.Config.MaxEvidenceSpans)) {
		return badEvidence
	}
	return ""
}

// verifiedSpans keeps only spans whose quote is a verbatim substring of
// the essay text, caps their count and length, and repairs paragraph
// indices from the quote's actual position.
func (e *Evaluator) verifiedSpans(spans []types.EvidenceSpan, essay *types.StructuredEssay) []types.EvidenceSpan {
	spans = capSpans(spans, e.Config.MaxEvidenceSpans)
	out := make([]types.EvidenceSpan, 0, len(spans))
	for _, s := range spans {
		s.Quote = strings.TrimSpace(s.Quote)
		if s.Quote == "" || len(s.Quote) > e.Config.MaxSpanChars {
			continue
		}
		pos := strings.Index(essay.Text, s.Quote)
		if pos < 0 {
			continue
		}
		if s.ParagraphIndex < 0 || s.ParagraphIndex >= len(essay.Paragraphs) ||
			!strings.Contains(essay.ParagraphText(s.ParagraphIndex), s.Quote) {
			s.ParagraphIndex = paragraphAt(essay, pos)
		}
		out = append(out, s)
	}
	return out
}

func capSpans(spans []types.EvidenceSpan, max int) []types.EvidenceSpan {
	if len(spans) > max {
		return spans[:max]
	}
	return spans
}

// paragraphAt returns the index of the paragraph containing the text
// offset, or -1.
func paragraphAt(essay *types.StructuredEssay, offset int) int {
	for _, p := range essay.Paragraphs {
		if offset >= p.Start && offset < p.End {
			return p.Index
		}
	}
	return -1
}

// accept converts a verified judgment into a result.
func (e *Evaluator) accept(c types.Criterion, essay *types.StructuredEssay, j *judgment) types.CriterionResult {
	verified := e.verifiedSpans(j.Evidence, essay)
	return types.CriterionResult{
		CriterionID:   c.ID,
		Level:         j.Level,
		Justification: j.Justification,
		Evidence:      verified,
		Suggestion:    j.Suggestion,
		LowConfidence: len(verified) < len(capSpans(j.Evidence, e.Config.MaxEvidenceSpans)),
	}
}

// tieBreak arbitrates two disagreeing passes. A resolved decision counts
// as agreement; an unresolved one keeps the more favorable level and flags
// the criterion for review.
func (e *Evaluator) tieBreak(ctx context.Context, c types.Criterion, essay *types.StructuredEssay, first, second *judgment) types.CriterionResult {
	req, err := buildTieBreakRequest(c, essay, first, second)
	if err != nil {
		return e.unresolved(c, essay, first, second)
	}

	decision, err := inference.CompleteJSON[tieBreakDecision](ctx, e.Client, req, e.MaxRetries)
	if err != nil {
		if ctx.Err() != nil {
			return refusal(c.ID, reasonTimeout)
		}
		return e.unresolved(c, essay, first, second)
	}

	switch strings.ToLower(strings.TrimSpace(decision.Decision)) {
	case "first":
		out := e.accept(c, essay, first)
		out.Agreement = types.AgreementOK
		out.TieBreakUsed = true
		return out
	case "second":
		out := e.accept(c, essay, second)
		out.Agreement = types.AgreementOK
		out.TieBreakUsed = true
		return out
	case "midpoint":
		if mid, ok := midpointLevel(c, first.Level, second.Level); ok {
			out := e.accept(c, essay, first)
			out.Level = mid
			out.Justification = decision.Rationale
			out.Agreement = types.AgreementOK
			out.TieBreakUsed = true
			return out
		}
		return e.unresolved(c, essay, first, second)
	default:
		return e.unresolved(c, essay, first, second)
	}
}

// unresolved keeps the higher-ranked (more favorable) of two disagreeing
// levels and marks the criterion for human review.
func (e *Evaluator) unresolved(c types.Criterion, essay *types.StructuredEssay, first, second *judgment) types.CriterionResult {
	chosen := first
	if c.LevelRank(second.Level) < c.LevelRank(first.Level) {
		chosen = second
	}
	out := e.accept(c, essay, chosen)
	out.Agreement = types.AgreementNeedsReview
	out.TieBreakUsed = true
	return out
}

// midpointLevel returns the level halfway between two judged levels, valid
// only when they sit exactly two ranks apart.
func midpointLevel(c types.Criterion, a, b string) (string, bool) {
	ra, rb := c.LevelRank(a), c.LevelRank(b)
	if ra < 0 || rb < 0 {
		return "", false
	}
	if ra > rb {
		ra, rb = rb, ra
	}
	if rb-ra != 2 {
		return "", false
	}
	return c.Levels[ra+1], true
}

func refusal(criterionID, reason string) types.CriterionResult {
	return types.CriterionResult{
		CriterionID:   criterionID,
		Refused:       true,
		RefusalReason: reason,
		Agreement:     types.AgreementNeedsReview,
	}
}

func modelReason(reason string) string {
	if reason = strings.TrimSpace(reason); reason != "" {
		return reason
	}
	return "model declined to judge this criterion"
}

// classifyFailure maps a terminal pass error to a refusal reason.
func classifyFailure(ctx context.Context, err error) string {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return reasonTimeout
	}
	var sv *types.SchemaViolation
	if errors.As(err, &sv) {
		return reasonBadFormat
	}
	return reasonUnavailable
}
