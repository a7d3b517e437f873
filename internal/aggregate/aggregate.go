// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate folds per-criterion results into a grade report:
// weighted numeric scoring with letter bands, or categorical points, plus
// the reliability flags and essay-level notes the front end renders.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/pdiddy/rubricheck/pkg/types"
)

// Aggregate computes the grade report for one essay. Refused criteria are
// excluded from both numerator and denominator, so a refusal never drags
// the score down; it surfaces through Flags instead. Aggregation is pure:
// the same inputs always produce the same report.
func Aggregate(rubric *types.CanonicalRubric, results []types.CriterionResult, essay *types.StructuredEssay) *types.GradeReport {
	report := &types.GradeReport{PerCriterion: results}

	var weightedSum, weightTotal float64
	for _, r := range results {
		if r.Refused {
			report.Flags.AnyRefusals = true
			continue
		}
		if r.LowConfidence {
			report.Flags.AnyLowConfidence = true
		}
		if r.Agreement == types.AgreementNeedsReview {
			report.Flags.AnyNeedsReview = true
		}

		c := rubric.CriterionByID(r.CriterionID)
		if c == nil {
			continue
		}
		points, ok := levelPoints(*c, rubric.Scoring, r.Level)
		if !ok {
			continue
		}
		weightedSum += c.Weight * points
		weightTotal += c.Weight
	}

	if weightTotal > 0 {
		score := weightedSum / weightTotal
		switch rubric.Scoring.Mode {
		case types.ScoringCategorical:
			report.CategoricalPoints = &score
		default:
			report.NumericScore = &score
			report.LetterGrade = letterFor(rubric.Scoring.Bands, score)
		}
	}

	if essay != nil {
		report.Flags.Notes = essayNotes(essay)
	}
	return report
}

// levelPoints maps a judged level to its point value. Explicit
// level_points win; otherwise levels are anchored ordinally: with n levels
// the best is worth 100 and each step down subtracts 100/n.
func levelPoints(c types.Criterion, scoring types.ScoringConfig, level string) (float64, bool) {
	if pts, ok := scoring.LevelPoints[level]; ok {
		return pts, true
	}
	rank := c.LevelRank(level)
	if rank < 0 || len(c.Levels) == 0 {
		return 0, false
	}
	step := 100.0 / float64(len(c.Levels))
	return 100.0 - step*float64(rank), true
}

// letterFor maps a score to the highest band whose threshold it reaches.
// A score exactly on a boundary takes the higher band.
func letterFor(bands []types.LetterBand, score float64) string {
	if len(bands) == 0 {
		return ""
	}
	sorted := make([]types.LetterBand, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min > sorted[j].Min })

	for _, b := range sorted {
		if score >= b.Min {
			return b.Letter
		}
	}
	return sorted[len(sorted)-1].Letter
}

// essayNotes derives writing-quality observations from the structured
// essay's metadata. These are advisory, never part of the score.
func essayNotes(essay *types.StructuredEssay) []string {
	var notes []string
	m := essay.Metadata

	switch {
	case m.WordCount > 0 && m.WordCount < 250:
		notes = append(notes, fmt.Sprintf("Essay is short (%d words); most criteria reward fuller development.", m.WordCount))
	case m.WordCount > 2000:
		notes = append(notes, fmt.Sprintf("Essay is long (%d words); consider tightening.", m.WordCount))
	}

	if len(essay.Paragraphs) == 1 && m.WordCount > 150 {
		notes = append(notes, "Essay is a single paragraph; breaking it up would improve structure.")
	}

	fk := m.Readability.FleschKincaidGrade
	switch {
	case fk > 16:
		notes = append(notes, fmt.Sprintf("Sentences are dense (grade level %.1f); shorter sentences would improve clarity.", fk))
	case fk > 0 && fk < 5:
		notes = append(notes, fmt.Sprintf("Sentence structure is simple (grade level %.1f); varied sentence length could add sophistication.", fk))
	}

	if m.QuoteRatio > 0.3 {
		notes = append(notes, fmt.Sprintf("Quoted material makes up %.0f%% of the essay; more original analysis would strengthen it.", m.QuoteRatio*100))
	}

	if essay.Translated {
		notes = append(notes, fmt.Sprintf("Essay was translated from %s before grading.", essay.OriginalLanguage))
	}
	if len(essay.Redactions) > 0 {
		notes = append(notes, fmt.Sprintf("%d personally identifying span(s) were redacted before grading.", len(essay.Redactions)))
	}

	return notes
}
