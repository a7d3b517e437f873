// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package privacy detects and redacts personally identifiable spans before
// essay text reaches the inference service. Each detected span becomes a
// category-tagged placeholder; the returned redaction map is reversible so
// evidence quotes can be resolved back to the original text for audit.
package privacy

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/rubricheck/pkg/types"
)

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phoneRe = regexp.MustCompile(`(?:\+?\d{1,3}[\s.-]?)?(?:\(?\d{3}\)?[\s.-]?)?\d{3}[\s.-]?\d{4}`)
	urlRe   = regexp.MustCompile(`(?i)https?://\S+|www\.\S+`)

	// personRe catches honorific-prefixed names. Full NER is a
	// model-assisted concern outside this pass.
	personRe = regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Dr|Prof)\.?[ \t]+[A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)?`)
)

// Filter redacts PII categories from text. The zero value redacts all
// supported categories.
type Filter struct{}

type rule struct {
	kind types.RedactionKind
	re   *regexp.Regexp
}

// Rules run in this order; URL before phone would misfire on ports, so
// email and URL go first, then phone, then names.
var rules = []rule{
	{types.RedactEmail, emailRe},
	{types.RedactURL, urlRe},
	{types.RedactPhone, phoneRe},
	{types.RedactPerson, personRe},
}

// Redact returns a copy of text with every detected PII span replaced by a
// placeholder like [REDACTED_EMAIL_1], plus the ordered redaction map.
// Offsets in the map refer to the redacted text. The input is not
// modified.
func (Filter) Redact(text string) (string, []types.Redaction) {
	var items []types.Redaction
	for _, r := range rules {
		text, items = applyRule(text, r, items)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Start < items[j].Start })
	return text, items
}

// applyRule replaces every match of one rule and re-anchors the offsets of
// items recorded by earlier rules, which may shift when a replacement
// lands before them.
func applyRule(text string, r rule, items []types.Redaction) (string, []types.Redaction) {
	matches := r.re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text, items
	}

	var b strings.Builder
	var added []types.Redaction
	shifts := make([][2]int, 0, len(matches)) // {offset in old text, length delta}
	last := 0

	for i, m := range matches {
		b.WriteString(text[last:m[0]])
		placeholder := fmt.Sprintf("[REDACTED_%s_%d]", strings.ToUpper(string(r.kind)), i+1)
		start := b.Len()
		b.WriteString(placeholder)
		added = append(added, types.Redaction{
			Kind:        r.kind,
			Original:    text[m[0]:m[1]],
			Replacement: placeholder,
			Start:       start,
			End:         start + len(placeholder),
		})
		shifts = append(shifts, [2]int{m[0], len(placeholder) - (m[1] - m[0])})
		last = m[1]
	}
	b.WriteString(text[last:])

	for i := range items {
		delta := 0
		for _, s := range shifts {
			if s[0] < items[i].Start {
				delta += s[1]
			}
		}
		items[i].Start += delta
		items[i].End += delta
	}

	return b.String(), append(items, added...)
}

// Resolve substitutes original text back for any placeholder tokens in s.
// Used to show auditors what a redacted evidence quote actually said.
func Resolve(s string, items []types.Redaction) string {
	for _, it := range items {
		s = strings.ReplaceAll(s, it.Replacement, it.Original)
	}
	return s
}
