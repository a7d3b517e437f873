// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// AgreementFlag records how the consistency protocol settled a criterion.
type AgreementFlag string

const (
	// AgreementOK means the two independent passes agreed, or a tie-break
	// resolved their disagreement.
	AgreementOK AgreementFlag = "ok"

	// AgreementNeedsReview means the disagreement could not be resolved
	// and a human should look at this criterion.
	AgreementNeedsReview AgreementFlag = "needs_review"

	// AgreementTieBreak marks results whose level came straight out of a
	// tie-break arbitration rather than either original pass.
	AgreementTieBreak AgreementFlag = "tie_break"
)

// EvidenceSpan is a verbatim quotation from the essay cited as support for
// a judged level.
type EvidenceSpan struct {
	// Quote is an exact substring of the essay text supplied to the
	// evaluation.
	Quote string `json:"quoted_text" yaml:"quoted_text"`

	// ParagraphIndex locates the paragraph the quote was taken from.
	ParagraphIndex int `json:"paragraph_index" yaml:"paragraph_index"`
}

// CriterionResult is the outcome of evaluating one criterion against one
// essay. When Refused is true, Level is empty and Justification and
// Suggestion may be absent.
type CriterionResult struct {
	CriterionID string `json:"criterion_id" yaml:"criterion_id"`

	// Level is one of the criterion's valid levels, or "" when refused.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	Justification string         `json:"justification,omitempty" yaml:"justification,omitempty"`
	Evidence      []EvidenceSpan `json:"evidence_spans,omitempty" yaml:"evidence_spans,omitempty"`
	Suggestion    string         `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`

	// Refused means no level could be assigned; RefusalReason says why.
	// A refusal is a result, not an error.
	Refused       bool   `json:"refused" yaml:"refused"`
	RefusalReason string `json:"refusal_reason,omitempty" yaml:"refusal_reason,omitempty"`

	// LowConfidence is set when evidence had to be dropped or the
	// judgment otherwise looked shaky.
	LowConfidence bool `json:"low_confidence" yaml:"low_confidence"`

	Agreement    AgreementFlag `json:"agreement_flag" yaml:"agreement_flag"`
	TieBreakUsed bool          `json:"tie_break_used" yaml:"tie_break_used"`
}

// ReportFlags surfaces the reliability context of an aggregate score. The
// front end renders these distinctly; the pipeline only guarantees they
// are present and accurate.
type ReportFlags struct {
	AnyRefusals      bool `json:"any_refusals" yaml:"any_refusals"`
	AnyLowConfidence bool `json:"any_low_confidence" yaml:"any_low_confidence"`
	AnyNeedsReview   bool `json:"any_needs_review" yaml:"any_needs_review"`

	// Notes carries essay-level insights (length, readability, structure,
	// quote usage) derived from the structured essay's metadata.
	Notes []string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// GradeReport is the terminal output of the pipeline.
type GradeReport struct {
	// PerCriterion holds one result per rubric criterion, in rubric order.
	PerCriterion []CriterionResult `json:"per_criterion" yaml:"per_criterion"`

	// NumericScore is the weighted average on the 0-100 scale. Nil when
	// the rubric is categorical-only or every criterion was refused.
	NumericScore *float64 `json:"numeric_score,omitempty" yaml:"numeric_score,omitempty"`

	// LetterGrade is the band label for NumericScore, when bands exist.
	LetterGrade string `json:"letter_grade,omitempty" yaml:"letter_grade,omitempty"`

	// CategoricalPoints is the weighted level-points average for
	// categorical rubrics. Nil otherwise.
	CategoricalPoints *float64 `json:"categorical_points,omitempty" yaml:"categorical_points,omitempty"`

	Flags ReportFlags `json:"flags" yaml:"flags"`
}
