// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data model shared across the grading pipeline:
// structured essays, canonical rubrics, per-criterion results, and the
// aggregate grade report. All structs here are plain values; once a stage
// hands one off, downstream stages treat it as read-only.
package types

// Section marks a detected section header within the essay text.
type Section struct {
	// Title is the header text with markup stripped.
	Title string `json:"title" yaml:"title"`

	// Start and End are character offsets of the header line in the
	// working text.
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Paragraph is one blank-line-delimited block of the essay.
type Paragraph struct {
	// Index is the paragraph's position in document order, starting at 0.
	Index int `json:"index" yaml:"index"`

	// Text is the paragraph content with surrounding newlines trimmed.
	Text string `json:"text" yaml:"text"`

	// Start and End are character offsets into the working text. Offsets
	// across paragraphs are non-overlapping and monotonically increasing.
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`

	// SectionIndex is the index into Metadata.Sections of the section this
	// paragraph falls under, or -1 when no section header precedes it.
	SectionIndex int `json:"section_index" yaml:"section_index"`
}

// QuoteSpan marks a run of quoted material in the essay.
type QuoteSpan struct {
	// Start and End are character offsets into the working text.
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`

	// Text is the quoted run. Empty when adjacent spans were merged.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// IsBlockQuote is true for indented/"> " block quotes, false for
	// inline paired-character quotes.
	IsBlockQuote bool `json:"is_block_quote" yaml:"is_block_quote"`
}

// Chunk is a window of consecutive paragraphs sized for model context.
type Chunk struct {
	// Index is the chunk's position, starting at 0.
	Index int `json:"index" yaml:"index"`

	// Paragraphs lists the paragraph indices covered by this chunk.
	Paragraphs []int `json:"paragraphs" yaml:"paragraphs"`

	// Start and End span from the first covered paragraph's start to the
	// last covered paragraph's end.
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`

	// Text is the chunk's paragraphs joined by blank lines.
	Text string `json:"text" yaml:"text"`
}

// Readability holds the computed readability indices for the essay.
type Readability struct {
	FleschReadingEase         float64 `json:"flesch_reading_ease" yaml:"flesch_reading_ease"`
	FleschKincaidGrade        float64 `json:"flesch_kincaid_grade" yaml:"flesch_kincaid_grade"`
	GunningFog                float64 `json:"gunning_fog" yaml:"gunning_fog"`
	AutomatedReadabilityIndex float64 `json:"automated_readability_index" yaml:"automated_readability_index"`
	ColemanLiauIndex          float64 `json:"coleman_liau_index" yaml:"coleman_liau_index"`
}

// EssayMetadata summarizes the essay for prompts and report notes.
type EssayMetadata struct {
	WordCount     int         `json:"word_count" yaml:"word_count"`
	SentenceCount int         `json:"sentence_count" yaml:"sentence_count"`
	CharCount     int         `json:"char_count" yaml:"char_count"`
	QuoteRatio    float64     `json:"quote_char_ratio" yaml:"quote_char_ratio"`
	Readability   Readability `json:"readability" yaml:"readability"`
	Sections      []Section   `json:"sections" yaml:"sections"`
}

// RedactionKind categorizes a redacted span.
type RedactionKind string

const (
	RedactEmail  RedactionKind = "email"
	RedactPhone  RedactionKind = "phone"
	RedactURL    RedactionKind = "url"
	RedactPerson RedactionKind = "person"
)

// Redaction records one personally identifiable span that was replaced
// with a placeholder token. Offsets refer to the redacted working text so
// evidence spans can be resolved back to the original for audit.
type Redaction struct {
	Kind        RedactionKind `json:"kind" yaml:"kind"`
	Original    string        `json:"original_text" yaml:"original_text"`
	Replacement string        `json:"replacement_token" yaml:"replacement_token"`
	Start       int           `json:"start" yaml:"start"`
	End         int           `json:"end" yaml:"end"`
}

// StructuredEssay is the output of essay structuring. It is built once per
// submission and never mutated; every paragraph, quote, and chunk offset
// refers to Text, which is the single working version of the essay (the
// translated and/or redacted copy when those passes ran).
type StructuredEssay struct {
	// Language is the detected ISO 639-1 code, or "unknown".
	Language string `json:"language" yaml:"language"`

	// OriginalLanguage is the language detected before translation.
	OriginalLanguage string `json:"original_language" yaml:"original_language"`

	// Translated is true when a translation pass ran and changed the text.
	Translated bool `json:"translated" yaml:"translated"`

	// Text is the working text all offsets refer to.
	Text string `json:"text" yaml:"text"`

	Paragraphs []Paragraph   `json:"paragraphs" yaml:"paragraphs"`
	Quotes     []QuoteSpan   `json:"quotes" yaml:"quotes"`
	Chunks     []Chunk       `json:"chunks" yaml:"chunks"`
	Metadata   EssayMetadata `json:"metadata" yaml:"metadata"`

	// Redactions is empty when privacy filtering was disabled.
	Redactions []Redaction `json:"redactions,omitempty" yaml:"redactions,omitempty"`

	// Warnings records non-fatal issues from structuring (e.g. a failed
	// translation pass that fell back to the original text).
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ParagraphText returns the text of paragraph i, or "" when out of range.
func (e *StructuredEssay) ParagraphText(i int) string {
	if i < 0 || i >= len(e.Paragraphs) {
		return ""
	}
	return e.Paragraphs[i].Text
}
