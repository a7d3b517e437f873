// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rubric converts rubric input — structured JSON/YAML or free
// prose — into a validated CanonicalRubric. Downstream stages only ever
// see the canonical form.
package rubric

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/rubricheck/internal/inference"
	"github.com/pdiddy/rubricheck/pkg/types"
)

// SourceKind tags the two accepted rubric input forms.
type SourceKind string

const (
	// SourceStructured is JSON or YAML already shaped like a canonical
	// rubric. Validated directly, no inference call.
	SourceStructured SourceKind = "structured"

	// SourceRawText is prose or a pasted table requiring model-assisted
	// extraction.
	SourceRawText SourceKind = "raw_text"
)

// Source is the tagged union of rubric inputs, resolved by Normalize.
type Source struct {
	Kind SourceKind
	Data []byte
}

// StructuredSource wraps already-structured rubric data.
func StructuredSource(data []byte) Source {
	return Source{Kind: SourceStructured, Data: data}
}

// TextSource wraps free-form rubric text.
func TextSource(text string) Source {
	return Source{Kind: SourceRawText, Data: []byte(text)}
}

// DetectSource classifies raw input: anything that decodes to a mapping
// with a "criteria" key counts as structured, everything else as prose.
func DetectSource(input []byte) Source {
	var probe map[string]any
	if err := json.Unmarshal(input, &probe); err != nil {
		if err := yaml.Unmarshal(input, &probe); err != nil {
			return TextSource(string(input))
		}
	}
	if _, ok := probe["criteria"]; ok {
		return StructuredSource(input)
	}
	return TextSource(string(input))
}

// wireRubric is the on-the-wire rubric shape: the canonical schema plus a
// level_order hint for sources that list levels worst-first.
type wireRubric struct {
	types.CanonicalRubric `yaml:",inline"`
	LevelOrder            string `json:"level_order,omitempty" yaml:"level_order,omitempty"`
}

// Normalizer resolves rubric sources into canonical rubrics.
type Normalizer struct {
	Client     inference.Client
	MaxRetries int
}

// Normalize converts src into a CanonicalRubric or fails with
// RubricParseError. Structured input is validated directly; raw text goes
// through the inference service first. Hard validation failures abort; no
// partial rubric is ever returned.
func (n *Normalizer) Normalize(ctx context.Context, src Source) (*types.CanonicalRubric, error) {
	var wire wireRubric
	baseConfidence := 1.0

	switch src.Kind {
	case SourceStructured:
		if err := decodeStructured(src.Data, &wire); err != nil {
			return nil, &types.RubricParseError{Errors: []string{err.Error()}}
		}
	case SourceRawText:
		extracted, err := n.extract(ctx, string(src.Data))
		if err != nil {
			return nil, err
		}
		wire = *extracted
		baseConfidence = 0.9
		if wire.Confidence > 0 && wire.Confidence <= 1 {
			baseConfidence = wire.Confidence
		}
	default:
		return nil, &types.RubricParseError{Errors: []string{fmt.Sprintf("unknown rubric source kind %q", src.Kind)}}
	}

	return canonicalize(&wire, baseConfidence)
}

func decodeStructured(data []byte, wire *wireRubric) error {
	jsonErr := json.Unmarshal(data, wire)
	if jsonErr == nil {
		return nil
	}
	if yamlErr := yaml.Unmarshal(data, wire); yamlErr != nil {
		return fmt.Errorf("rubric is neither valid JSON (%v) nor valid YAML (%v)", jsonErr, yamlErr)
	}
	return nil
}

var idSanitizeRe = regexp.MustCompile(`[^a-z0-9_]+`)

// slugID derives a criterion id from its display name.
func slugID(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "&", "and")
	s = strings.ReplaceAll(s, " ", "_")
	return strings.Trim(idSanitizeRe.ReplaceAllString(s, ""), "_")
}

// canonicalize applies soft corrections (recorded as warnings), then runs
// hard validation. Confidence starts at base and drops 0.1 per soft
// correction, floored at 0.3; a clean parse of canonical input stays 1.0.
func canonicalize(wire *wireRubric, baseConfidence float64) (*types.CanonicalRubric, error) {
	r := wire.CanonicalRubric
	r.Warnings = nil
	var warnings []string

	if strings.EqualFold(wire.LevelOrder, "worst_first") {
		for i := range r.Criteria {
			reverse(r.Criteria[i].Levels)
		}
		r.Descending = true
		warnings = append(warnings, "levels reversed to best-first order")
	}

	for i := range r.Criteria {
		c := &r.Criteria[i]
		if c.ID == "" {
			c.ID = slugID(c.Name)
			warnings = append(warnings, fmt.Sprintf("criterion %q: id derived from name", c.Name))
		}
		if len(c.Levels) == 0 && len(c.Descriptors) > 0 {
			warnings = append(warnings, fmt.Sprintf("criterion %q: level order inferred from descriptors", c.ID))
			for level := range c.Descriptors {
				c.Levels = append(c.Levels, level)
			}
			sortLevelsByConvention(c.Levels)
		}
	}

	if allZeroWeights(r.Criteria) && len(r.Criteria) > 0 {
		share := 1.0 / float64(len(r.Criteria))
		for i := range r.Criteria {
			r.Criteria[i].Weight = share
		}
		warnings = append(warnings, "missing weights default to equal distribution")
	}

	if r.Scoring.Mode == "" {
		r.Scoring.Mode = types.ScoringNumeric
		warnings = append(warnings, "scoring mode missing, defaulting to numeric")
	}
	if r.Scoring.Mode == types.ScoringNumeric && len(r.Scoring.Bands) == 0 {
		r.Scoring.Bands = DefaultLetterBands()
		warnings = append(warnings, "letter bands missing, defaulting to standard bands")
	}

	if errs := validate(&r); len(errs) > 0 {
		return nil, &types.RubricParseError{Errors: errs, Warnings: warnings}
	}

	r.Warnings = warnings
	r.Confidence = baseConfidence - 0.1*float64(len(warnings))
	if r.Confidence < 0.3 {
		r.Confidence = 0.3
	}
	return &r, nil
}

// DefaultLetterBands is the standard grade scale used when a numeric
// rubric declares none. Bands are closed-open with ties to the higher
// band.
func DefaultLetterBands() []types.LetterBand {
	return []types.LetterBand{
		{Min: 90, Letter: "A+"},
		{Min: 85, Letter: "A"},
		{Min: 80, Letter: "A-"},
		{Min: 70, Letter: "B"},
		{Min: 60, Letter: "C"},
		{Min: 0, Letter: "D or below"},
	}
}

func allZeroWeights(criteria []types.Criterion) bool {
	for _, c := range criteria {
		if c.Weight != 0 {
			return false
		}
	}
	return true
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// conventionalOrder ranks the level names that show up in most rubrics so
// inferred level lists still come out best-first.
var conventionalOrder = []string{
	"exemplary", "excellent", "outstanding", "advanced", "proficient",
	"good", "satisfactory", "adequate", "developing", "fair",
	"needs improvement", "limited", "poor", "inadequate", "beginning",
}

func sortLevelsByConvention(levels []string) {
	rank := func(level string) int {
		l := strings.ToLower(level)
		for i, name := range conventionalOrder {
			if l == name {
				return i
			}
		}
		return len(conventionalOrder)
	}
	sort.SliceStable(levels, func(i, j int) bool {
		ri, rj := rank(levels[i]), rank(levels[j])
		if ri != rj {
			return ri < rj
		}
		return levels[i] < levels[j]
	})
}
