// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package privacy

import (
	"strings"
	"testing"

	"github.com/pdiddy/rubricheck/pkg/types"
)

func TestRedactCategories(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind types.RedactionKind
		gone string
	}{
		{"email", "Contact me at jane.doe@example.edu for the draft.", types.RedactEmail, "jane.doe@example.edu"},
		{"url", "See https://example.com/essay for the source.", types.RedactURL, "https://example.com/essay"},
		{"phone", "Call 555-867-5309 with questions.", types.RedactPhone, "555-867-5309"},
		{"person", "As Dr. Smith argued in lecture.", types.RedactPerson, "Dr. Smith"},
	}

	var f Filter
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			redacted, items := f.Redact(tt.text)
			if strings.Contains(redacted, tt.gone) {
				t.Errorf("PII survived redaction: %q", redacted)
			}
			if len(items) != 1 {
				t.Fatalf("items = %+v, want 1", items)
			}
			it := items[0]
			if it.Kind != tt.kind || it.Original != tt.gone {
				t.Errorf("item = %+v", it)
			}
			if got := redacted[it.Start:it.End]; got != it.Replacement {
				t.Errorf("offsets select %q, want placeholder %q", got, it.Replacement)
			}
		})
	}
}

func TestRedactNothingToDo(t *testing.T) {
	var f Filter
	text := "An essay with no personal details in it at all."
	redacted, items := f.Redact(text)
	if redacted != text {
		t.Errorf("text changed: %q", redacted)
	}
	if len(items) != 0 {
		t.Errorf("items = %+v", items)
	}
}

func TestRedactOffsetsAcrossRules(t *testing.T) {
	var f Filter
	text := "Email jane@example.com or call Ms. Jones at 555-867-5309."
	redacted, items := f.Redact(text)

	if len(items) != 3 {
		t.Fatalf("items = %+v, want email, person, phone", items)
	}
	// Items come back in text order with offsets valid after every pass.
	prev := -1
	for _, it := range items {
		if it.Start <= prev {
			t.Errorf("items out of order: %+v", items)
		}
		prev = it.Start
		if got := redacted[it.Start:it.End]; got != it.Replacement {
			t.Errorf("offsets select %q, want %q", got, it.Replacement)
		}
	}
}

func TestResolveReversesRedaction(t *testing.T) {
	var f Filter
	text := "Email jane@example.com or visit https://example.com."
	redacted, items := f.Redact(text)

	if got := Resolve(redacted, items); got != text {
		t.Errorf("Resolve = %q, want original %q", got, text)
	}

	// A quoted fragment containing a placeholder resolves too.
	quote := "Email " + items[0].Replacement
	if got := Resolve(quote, items); got != "Email jane@example.com" {
		t.Errorf("fragment Resolve = %q", got)
	}
}

func TestPlaceholdersNumberedPerCategory(t *testing.T) {
	var f Filter
	_, items := f.Redact("Write a@b.com and c@d.org today.")
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
	if items[0].Replacement != "[REDACTED_EMAIL_1]" || items[1].Replacement != "[REDACTED_EMAIL_2]" {
		t.Errorf("placeholders = %q, %q", items[0].Replacement, items[1].Replacement)
	}
}
