// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package structurer turns raw essay text into a StructuredEssay:
// paragraphs with stable offsets, detected sections and quoted spans,
// overlapping chunk windows, and summary metadata. Translation and PII
// redaction are pluggable passes; whichever passes run, all offsets refer
// to one single working text.
package structurer

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/rubricheck/pkg/types"
)

// DefaultMaxChars is the essay length ceiling when config gives none.
// Oversized essays are rejected outright: truncating would corrupt
// evidence-span offsets downstream.
const DefaultMaxChars = 20000

// Redactor is the privacy filter seam. Implementations return a redacted
// copy of the text and the reversible redaction map; the input is never
// modified.
type Redactor interface {
	Redact(text string) (string, []types.Redaction)
}

// Structurer builds StructuredEssays. Zero-value passes (nil Translator,
// nil Redactor) are skipped.
type Structurer struct {
	Config     types.StructuringConfig
	Translator Translator
	Redactor   Redactor
}

// New returns a Structurer with config defaults applied.
func New(cfg types.StructuringConfig) *Structurer {
	if cfg.TargetLanguage == "" {
		cfg.TargetLanguage = "en"
	}
	if cfg.ChunkMaxParagraphs <= 0 {
		cfg.ChunkMaxParagraphs = 6
	}
	if cfg.ChunkOverlapParagraphs <= 0 {
		cfg.ChunkOverlapParagraphs = 1
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	return &Structurer{Config: cfg}
}

// Structure processes one essay submission. It fails with
// UnsupportedInputError on empty or oversized input; translation and
// redaction failures degrade to warnings.
func (s *Structurer) Structure(ctx context.Context, text string) (*types.StructuredEssay, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &types.UnsupportedInputError{Reason: "empty essay"}
	}
	if len(text) > s.Config.MaxChars {
		return nil, &types.UnsupportedInputError{
			Reason: fmt.Sprintf("essay exceeds %d character limit", s.Config.MaxChars),
			Length: len(text),
		}
	}

	essay := &types.StructuredEssay{}
	var warnings []string

	detected := DetectLanguage(text)
	essay.OriginalLanguage = detected
	essay.Language = detected

	working := text
	if s.Config.TranslateNonEnglish && s.Translator != nil &&
		detected != "unknown" && detected != s.Config.TargetLanguage {
		translated, changed, err := s.Translator.Translate(ctx, working, s.Config.TargetLanguage)
		switch {
		case err != nil:
			warnings = append(warnings, fmt.Sprintf("translation failed: %v", err))
		case changed:
			working = translated
			essay.Translated = true
			essay.Language = s.Config.TargetLanguage
		}
	}

	if s.Config.RedactPII && s.Redactor != nil {
		redacted, items := s.Redactor.Redact(working)
		working = redacted
		essay.Redactions = items
	}

	essay.Text = working
	essay.Warnings = warnings

	sections := findSections(working)
	essay.Paragraphs = splitParagraphs(working, sections)
	essay.Quotes = detectQuotes(working)
	essay.Chunks = buildChunks(essay.Paragraphs, s.Config.ChunkMaxParagraphs, s.Config.ChunkOverlapParagraphs)

	essay.Metadata = types.EssayMetadata{
		WordCount:     countWords(working),
		SentenceCount: countSentences(working),
		CharCount:     len(working),
		QuoteRatio:    quoteRatio(working, essay.Quotes),
		Readability:   computeReadability(working),
		Sections:      sections,
	}

	return essay, nil
}

// paragraphSepRe matches blank-line paragraph boundaries.
var paragraphSepRe = regexp.MustCompile(`\n[ \t\r]*\n+`)

// splitParagraphs splits on blank-line boundaries, preserving offsets into
// the working text. Offsets cover the trimmed paragraph exactly, so they
// never overlap and increase monotonically.
func splitParagraphs(text string, sections []types.Section) []types.Paragraph {
	seps := paragraphSepRe.FindAllStringIndex(text, -1)

	var paras []types.Paragraph
	start := 0
	appendSegment := func(segStart, segEnd int) {
		seg := text[segStart:segEnd]
		lead := len(seg) - len(strings.TrimLeft(seg, " \t\r\n"))
		trimmed := strings.TrimSpace(seg)
		if trimmed == "" {
			return
		}
		pStart := segStart + lead
		paras = append(paras, types.Paragraph{
			Index:        len(paras),
			Text:         trimmed,
			Start:        pStart,
			End:          pStart + len(trimmed),
			SectionIndex: sectionFor(sections, pStart),
		})
	}

	for _, sep := range seps {
		appendSegment(start, sep[0])
		start = sep[1]
	}
	appendSegment(start, len(text))

	return paras
}

// sectionFor returns the index of the last section starting at or before
// offset, or -1 when none precedes it.
func sectionFor(sections []types.Section, offset int) int {
	idx := -1
	for i, sec := range sections {
		if sec.Start <= offset {
			idx = i
		}
	}
	return idx
}

// Header detection: markdown headings, numbered headings ("2.1 Methods"),
// ALL-CAPS lines, and a vocabulary of common essay section names.
var headerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]*(.+)$`),
	regexp.MustCompile(`(?m)^[ \t]*\d+(?:\.\d+)*[ \t]+(.{2,80})$`),
	regexp.MustCompile(`(?m)^[ \t]*([A-Z][A-Z ]{3,})$`),
}

var knownHeaders = map[string]bool{
	"abstract": true, "introduction": true, "background": true,
	"literature review": true, "methods": true, "methodology": true,
	"results": true, "analysis": true, "discussion": true,
	"conclusion": true, "limitations": true, "future work": true,
	"references": true, "works cited": true, "acknowledgments": true,
}

// findSections scans for header lines and returns them sorted by offset,
// deduplicated by span.
func findSections(text string) []types.Section {
	seen := map[[2]int]types.Section{}

	for _, pat := range headerPatterns {
		for _, m := range pat.FindAllStringSubmatchIndex(text, -1) {
			title := strings.TrimSpace(text[m[2]:m[3]])
			if title == "" {
				continue
			}
			seen[[2]int{m[0], m[1]}] = types.Section{Title: title, Start: m[0], End: m[1]}
		}
	}

	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		if knownHeaders[strings.ToLower(strings.TrimSpace(line))] {
			key := [2]int{offset, offset + len(line)}
			seen[key] = types.Section{Title: strings.TrimSpace(line), Start: key[0], End: key[1]}
		}
		offset += len(line)
	}

	sections := make([]types.Section, 0, len(seen))
	for _, s := range seen {
		sections = append(sections, s)
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i].Start < sections[j].Start })
	return sections
}

// Quote detection: paired straight or curly double quotes inline, and
// markdown-style "> " or indented lines as block quotes.
var (
	inlineQuoteRe = regexp.MustCompile(`"[^"\n]{3,}?"|\x{201C}[^\x{201C}\x{201D}\n]{3,}?\x{201D}`)
	blockQuoteRe  = regexp.MustCompile(`(?m)^[ \t]{0,3}>[ \t]?.+$|^(?:[ \t]{4,}|\t).+$`)
)

func detectQuotes(text string) []types.QuoteSpan {
	var quotes []types.QuoteSpan
	for _, m := range inlineQuoteRe.FindAllStringIndex(text, -1) {
		quotes = append(quotes, types.QuoteSpan{Start: m[0], End: m[1], Text: text[m[0]:m[1]]})
	}
	for _, m := range blockQuoteRe.FindAllStringIndex(text, -1) {
		quotes = append(quotes, types.QuoteSpan{Start: m[0], End: m[1], Text: text[m[0]:m[1]], IsBlockQuote: true})
	}
	return mergeQuoteOverlaps(quotes)
}

// mergeQuoteOverlaps collapses overlapping or touching spans; a merge of
// mixed kinds counts as a block quote, and merged spans drop their text.
func mergeQuoteOverlaps(spans []types.QuoteSpan) []types.QuoteSpan {
	if len(spans) == 0 {
		return spans
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })

	merged := []types.QuoteSpan{spans[0]}
	for _, s := range spans[1:] {
		cur := &merged[len(merged)-1]
		// Block quote lines on consecutive lines count as one quote.
		gap := cur.End
		if cur.IsBlockQuote && s.IsBlockQuote {
			gap++
		}
		if s.Start <= gap {
			if s.End > cur.End {
				cur.End = s.End
			}
			cur.Text = ""
			cur.IsBlockQuote = cur.IsBlockQuote || s.IsBlockQuote
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// buildChunks windows paragraphs into overlapping chunks: chunk i covers
// paragraph indices [i*step, i*step+max) with step = max - overlap,
// continuing until every paragraph is covered. The last chunk truncates to
// the remaining paragraphs.
func buildChunks(paras []types.Paragraph, max, overlap int) []types.Chunk {
	if len(paras) == 0 {
		return nil
	}
	step := max - overlap
	if step <= 0 {
		step = max
	}

	var chunks []types.Chunk
	for start := 0; ; start += step {
		end := start + max
		if end > len(paras) {
			end = len(paras)
		}

		window := paras[start:end]
		ids := make([]int, len(window))
		texts := make([]string, len(window))
		for i, p := range window {
			ids[i] = p.Index
			texts[i] = p.Text
		}
		chunks = append(chunks, types.Chunk{
			Index:      len(chunks),
			Paragraphs: ids,
			Start:      window[0].Start,
			End:        window[len(window)-1].End,
			Text:       strings.Join(texts, "\n\n"),
		})

		if end >= len(paras) {
			break
		}
	}
	return chunks
}

var (
	wordRe     = regexp.MustCompile(`[A-Za-zÀ-ÖØ-öø-ÿ']+`)
	sentenceRe = regexp.MustCompile(`[^.!?\n]+[.!?]?\n?`)
)

func countWords(text string) int {
	return len(wordRe.FindAllString(text, -1))
}

func countSentences(text string) int {
	n := 0
	for _, s := range sentenceRe.FindAllString(text, -1) {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return n
}

func quoteRatio(text string, quotes []types.QuoteSpan) float64 {
	if len(text) == 0 {
		return 0
	}
	quoted := 0
	for _, q := range quotes {
		quoted += q.End - q.Start
	}
	return float64(quoted) / float64(len(text))
}
