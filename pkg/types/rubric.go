// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ScoringMode selects how per-criterion levels aggregate into a grade.
type ScoringMode string

const (
	// ScoringNumeric maps levels to point values, computes a weighted
	// average, and maps the result to a letter via Bands.
	ScoringNumeric ScoringMode = "numeric"

	// ScoringCategorical averages a level→points mapping without letter
	// mapping.
	ScoringCategorical ScoringMode = "categorical"
)

// LetterBand maps a score threshold to a letter grade. Bands are
// closed-open: a score belongs to the highest band whose Min it reaches,
// so a value exactly on a boundary goes to the higher band.
type LetterBand struct {
	// Min is the lowest score (inclusive) that earns Letter.
	Min float64 `json:"min" yaml:"min"`

	// Letter is the grade label, e.g. "A-".
	Letter string `json:"letter" yaml:"letter"`
}

// ScoringConfig is the rubric's aggregation policy.
type ScoringConfig struct {
	Mode ScoringMode `json:"mode" yaml:"mode"`

	// Bands maps numeric scores to letters. Used in numeric mode only.
	Bands []LetterBand `json:"bands,omitempty" yaml:"bands,omitempty"`

	// LevelPoints maps level names to point values. When empty, levels
	// are anchored ordinally: with n levels the best is worth 100 and
	// each step down subtracts 100/n.
	LevelPoints map[string]float64 `json:"level_points,omitempty" yaml:"level_points,omitempty"`
}

// Criterion is one named dimension of a rubric with ordered performance
// levels.
type Criterion struct {
	// ID is unique within the rubric; derived from Name when the source
	// does not supply one.
	ID string `json:"id" yaml:"id"`

	// Name is the criterion's display name.
	Name string `json:"name" yaml:"name"`

	// Weight is this criterion's share of the aggregate score. Weights
	// need not sum to 1; they are normalized at aggregation time. Zero
	// means the source gave no weight and an equal share was assigned.
	Weight float64 `json:"weight" yaml:"weight"`

	// Levels is the ordered list of valid performance levels, best first.
	Levels []string `json:"valid_levels" yaml:"valid_levels"`

	// Descriptors maps each level name to its descriptor text. Keys are
	// exactly Levels.
	Descriptors map[string]string `json:"descriptors" yaml:"descriptors"`

	// EvidenceHint optionally tells the evaluator what kind of evidence
	// the rubric author expects for this criterion.
	EvidenceHint string `json:"evidence_hint,omitempty" yaml:"evidence_hint,omitempty"`
}

// LevelRank returns the rank of level in the best-first order, or -1 when
// the level is not one of the criterion's valid levels.
func (c Criterion) LevelRank(level string) int {
	for i, l := range c.Levels {
		if l == level {
			return i
		}
	}
	return -1
}

// CanonicalRubric is the normalized form every rubric source resolves to.
// Built once per rubric submission and immutable thereafter.
type CanonicalRubric struct {
	Title    string      `json:"title,omitempty" yaml:"title,omitempty"`
	Criteria []Criterion `json:"criteria" yaml:"criteria"`
	Scoring  ScoringConfig `json:"scoring" yaml:"scoring"`

	// Descending records whether the source declared levels worst→best
	// before canonicalization reversed them.
	Descending bool `json:"descending,omitempty" yaml:"descending,omitempty"`

	// Confidence is the parse confidence in [0,1]. A clean parse of
	// already-canonical input is 1.0; each soft correction lowers it.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Warnings lists the soft corrections applied during normalization.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// CriterionByID returns the criterion with the given id, or nil.
func (r *CanonicalRubric) CriterionByID(id string) *Criterion {
	for i := range r.Criteria {
		if r.Criteria[i].ID == id {
			return &r.Criteria[i]
		}
	}
	return nil
}
