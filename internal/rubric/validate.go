// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rubric

import (
	"fmt"
	"strings"

	"github.com/pdiddy/rubricheck/pkg/types"
)

// validate runs the hard semantic checks on a canonicalized rubric. Every
// returned message names the offending criterion id or field; a non-empty
// result aborts normalization.
func validate(r *types.CanonicalRubric) []string {
	var errs []string

	if len(r.Criteria) == 0 {
		return []string{"rubric has no criteria"}
	}

	seen := make(map[string]bool, len(r.Criteria))
	for i := range r.Criteria {
		c := &r.Criteria[i]
		if c.ID == "" {
			errs = append(errs, fmt.Sprintf("criterion %d has no id and no name to derive one from", i))
			continue
		}
		key := strings.ToLower(c.ID)
		if seen[key] {
			errs = append(errs, fmt.Sprintf("criterion %q: duplicate id", c.ID))
		}
		seen[key] = true

		if len(c.Levels) < 2 {
			errs = append(errs, fmt.Sprintf("criterion %q: needs at least 2 levels, has %d", c.ID, len(c.Levels)))
		}
		if c.Weight < 0 {
			errs = append(errs, fmt.Sprintf("criterion %q: negative weight %v", c.ID, c.Weight))
		}

		levelSet := make(map[string]bool, len(c.Levels))
		for _, level := range c.Levels {
			if levelSet[level] {
				errs = append(errs, fmt.Sprintf("criterion %q: duplicate level %q", c.ID, level))
			}
			levelSet[level] = true
			if _, ok := c.Descriptors[level]; !ok {
				errs = append(errs, fmt.Sprintf("criterion %q: missing descriptor for level %q", c.ID, level))
			}
		}
		for level := range c.Descriptors {
			if !levelSet[level] {
				errs = append(errs, fmt.Sprintf("criterion %q: descriptor for unknown level %q", c.ID, level))
			}
		}
	}

	errs = append(errs, validateScoring(&r.Scoring, r.Criteria)...)
	return errs
}

func validateScoring(s *types.ScoringConfig, criteria []types.Criterion) []string {
	var errs []string

	switch s.Mode {
	case types.ScoringNumeric:
		errs = append(errs, validateBands(s.Bands)...)
	case types.ScoringCategorical:
		// Categorical scoring carries no bands; ignore any present.
	default:
		errs = append(errs, fmt.Sprintf("scoring: unknown mode %q", s.Mode))
	}

	if len(s.LevelPoints) > 0 {
		known := make(map[string]bool)
		for _, c := range criteria {
			for _, level := range c.Levels {
				known[level] = true
			}
		}
		for level := range s.LevelPoints {
			if !known[level] {
				errs = append(errs, fmt.Sprintf("scoring: level_points names unknown level %q", level))
			}
		}
	}
	return errs
}

func validateBands(bands []types.LetterBand) []string {
	var errs []string
	mins := make(map[float64]string, len(bands))
	for _, b := range bands {
		if b.Letter == "" {
			errs = append(errs, fmt.Sprintf("scoring: band at min %v has no letter", b.Min))
		}
		if prev, ok := mins[b.Min]; ok {
			errs = append(errs, fmt.Sprintf("scoring: bands %q and %q overlap at min %v", prev, b.Letter, b.Min))
		}
		mins[b.Min] = b.Letter
		if b.Min < 0 || b.Min > 100 {
			errs = append(errs, fmt.Sprintf("scoring: band %q min %v outside [0,100]", b.Letter, b.Min))
		}
	}
	return errs
}
