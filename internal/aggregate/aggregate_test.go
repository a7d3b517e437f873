// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"math"
	"testing"

	"github.com/pdiddy/rubricheck/pkg/types"
)

func fourLevelRubric() *types.CanonicalRubric {
	levels := []string{"Excellent", "Good", "Fair", "Poor"}
	descriptors := map[string]string{"Excellent": "e", "Good": "g", "Fair": "f", "Poor": "p"}
	return &types.CanonicalRubric{
		Criteria: []types.Criterion{
			{ID: "thesis", Name: "Thesis", Weight: 0.5, Levels: levels, Descriptors: descriptors},
			{ID: "evidence", Name: "Evidence", Weight: 0.5, Levels: levels, Descriptors: descriptors},
		},
		Scoring: types.ScoringConfig{
			Mode: types.ScoringNumeric,
			Bands: []types.LetterBand{
				{Min: 90, Letter: "A"},
				{Min: 75, Letter: "B"},
				{Min: 60, Letter: "C"},
				{Min: 0, Letter: "F"},
			},
		},
		Confidence: 1,
	}
}

func result(id, level string) types.CriterionResult {
	return types.CriterionResult{CriterionID: id, Level: level, Agreement: types.AgreementOK}
}

func TestAggregateWeightedAverage(t *testing.T) {
	// Four levels anchor at 100/75/50/25. Excellent + Fair at equal
	// weights averages to 75, exactly on the B boundary.
	rubric := fourLevelRubric()
	report := Aggregate(rubric, []types.CriterionResult{
		result("thesis", "Excellent"),
		result("evidence", "Fair"),
	}, nil)

	if report.NumericScore == nil {
		t.Fatal("no numeric score")
	}
	if math.Abs(*report.NumericScore-75.0) > 1e-9 {
		t.Errorf("score = %v, want 75.0", *report.NumericScore)
	}
	if report.LetterGrade != "B" {
		t.Errorf("letter = %q, want boundary score to take the higher band", report.LetterGrade)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	rubric := fourLevelRubric()
	results := []types.CriterionResult{result("thesis", "Good"), result("evidence", "Good")}

	a := Aggregate(rubric, results, nil)
	b := Aggregate(rubric, results, nil)
	if *a.NumericScore != *b.NumericScore || a.LetterGrade != b.LetterGrade {
		t.Errorf("aggregation not deterministic: %v/%s vs %v/%s",
			*a.NumericScore, a.LetterGrade, *b.NumericScore, b.LetterGrade)
	}
}

func TestAggregateRefusedExcludedFromDenominator(t *testing.T) {
	rubric := fourLevelRubric()
	report := Aggregate(rubric, []types.CriterionResult{
		result("thesis", "Excellent"),
		{CriterionID: "evidence", Refused: true, RefusalReason: "timeout"},
	}, nil)

	if report.NumericScore == nil {
		t.Fatal("no numeric score")
	}
	// Only the judged criterion counts: 100, not dragged toward 50.
	if math.Abs(*report.NumericScore-100.0) > 1e-9 {
		t.Errorf("score = %v, want 100.0", *report.NumericScore)
	}
	if !report.Flags.AnyRefusals {
		t.Error("refusal not flagged")
	}
}

func TestAggregateAllRefused(t *testing.T) {
	rubric := fourLevelRubric()
	report := Aggregate(rubric, []types.CriterionResult{
		{CriterionID: "thesis", Refused: true},
		{CriterionID: "evidence", Refused: true},
	}, nil)

	if report.NumericScore != nil {
		t.Errorf("score = %v, want nil when every criterion refused", *report.NumericScore)
	}
	if report.LetterGrade != "" {
		t.Errorf("letter = %q, want none", report.LetterGrade)
	}
}

func TestAggregateExplicitLevelPoints(t *testing.T) {
	rubric := fourLevelRubric()
	rubric.Scoring.LevelPoints = map[string]float64{
		"Excellent": 95, "Good": 80, "Fair": 65, "Poor": 40,
	}
	report := Aggregate(rubric, []types.CriterionResult{
		result("thesis", "Good"),
		result("evidence", "Good"),
	}, nil)

	if math.Abs(*report.NumericScore-80.0) > 1e-9 {
		t.Errorf("score = %v, want explicit level points 80.0", *report.NumericScore)
	}
}

func TestAggregateCategorical(t *testing.T) {
	rubric := fourLevelRubric()
	rubric.Scoring = types.ScoringConfig{
		Mode:        types.ScoringCategorical,
		LevelPoints: map[string]float64{"Excellent": 4, "Good": 3, "Fair": 2, "Poor": 1},
	}
	report := Aggregate(rubric, []types.CriterionResult{
		result("thesis", "Excellent"),
		result("evidence", "Good"),
	}, nil)

	if report.CategoricalPoints == nil {
		t.Fatal("no categorical points")
	}
	if math.Abs(*report.CategoricalPoints-3.5) > 1e-9 {
		t.Errorf("points = %v, want 3.5", *report.CategoricalPoints)
	}
	if report.NumericScore != nil || report.LetterGrade != "" {
		t.Error("categorical rubric produced numeric fields")
	}
}

func TestAggregateFlags(t *testing.T) {
	rubric := fourLevelRubric()
	results := []types.CriterionResult{
		{CriterionID: "thesis", Level: "Good", Agreement: types.AgreementNeedsReview, TieBreakUsed: true},
		{CriterionID: "evidence", Level: "Good", Agreement: types.AgreementOK, LowConfidence: true},
	}
	report := Aggregate(rubric, results, nil)

	if !report.Flags.AnyNeedsReview {
		t.Error("needs_review not flagged")
	}
	if !report.Flags.AnyLowConfidence {
		t.Error("low confidence not flagged")
	}
	if report.Flags.AnyRefusals {
		t.Error("spurious refusal flag")
	}
}

func TestEssayNotes(t *testing.T) {
	essay := &types.StructuredEssay{
		Translated:       true,
		OriginalLanguage: "es",
		Paragraphs:       []types.Paragraph{{Index: 0}},
		Metadata: types.EssayMetadata{
			WordCount:   180,
			QuoteRatio:  0.4,
			Readability: types.Readability{FleschKincaidGrade: 18},
		},
		Redactions: []types.Redaction{{Kind: types.RedactEmail}},
	}
	report := Aggregate(fourLevelRubric(), []types.CriterionResult{result("thesis", "Good")}, essay)

	// short, single paragraph, dense sentences, heavy quoting,
	// translated, redacted.
	if len(report.Flags.Notes) != 6 {
		t.Errorf("notes = %v, want 6 entries", report.Flags.Notes)
	}
}
