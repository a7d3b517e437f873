// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluator

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/rubricheck/internal/inference"
	"github.com/pdiddy/rubricheck/pkg/types"
)

const judgmentSystem = `You are a careful, consistent essay grader. You judge exactly one rubric criterion at a time. You ground every judgment in verbatim quotations from the essay, and you refuse rather than guess when the essay gives you nothing to judge the criterion on.`

const judgmentPromptTemplate = `Judge the essay below against ONE criterion.

Criterion: {{.Criterion.Name}} (id: {{.Criterion.ID}})
{{- if .Criterion.EvidenceHint}}
Look for: {{.Criterion.EvidenceHint}}
{{- end}}

Levels, best to worst:
{{- range .Criterion.Levels}}
- {{.}}: {{index $.Criterion.Descriptors .}}
{{- end}}

Respond with a JSON object:
{
  "criterion_id": "{{.Criterion.ID}}",
  "level": "one of the levels above, exactly as written",
  "justification": "2-4 sentences explaining the level",
  "evidence_spans": [{"paragraph_index": 0, "quoted_text": "EXACT substring copied from the essay"}],
  "suggestion": "one concrete improvement the writer could make",
  "refuse": false,
  "reason": ""
}

Rules:
- Every quoted_text must be copied character-for-character from the essay. Do not paraphrase, do not fix typos, do not add ellipses.
- Keep each quote under {{.MaxSpanChars}} characters and cite at most {{.MaxEvidenceSpans}} spans.
- paragraph_index refers to the bracketed paragraph numbers below.
- If the essay gives you no basis to judge this criterion, set "refuse" to true and explain in "reason". Do not invent a level.
{{- if .Variation}}
- Judge independently and skeptically. Re-derive your conclusion from the essay text alone; do not anchor on a typical or expected grade.
{{- end}}
{{- if .Strict}}
- Respond with ONLY the JSON object. No markdown fences, no commentary, double-quoted keys and strings.
{{- end}}

Essay:
{{.Essay}}`

const tieBreakSystem = `You arbitrate between two independent gradings of the same essay criterion. You decide which judgment the evidence supports better. You never produce a new grade of your own beyond the midpoint option.`

const tieBreakPromptTemplate = `Two independent passes judged the criterion "{{.Criterion.Name}}" and disagreed.

Levels, best to worst: {{.Levels}}

First judgment:
{{.First}}

Second judgment:
{{.Second}}

Essay:
{{.Essay}}

Decide which judgment the essay better supports. Respond with a JSON object:
{"decision": "first" | "second" | "midpoint" | "unresolved", "rationale": "1-2 sentences"}

Rules:
- "midpoint" is only valid when the two levels are exactly two steps apart; it means the level between them.
- "unresolved" means the evidence genuinely supports both readings; a human should review.
- Respond with the JSON object only.`

var (
	judgmentPrompt = template.Must(template.New("judgment").Parse(judgmentPromptTemplate))
	tieBreakPrompt = template.Must(template.New("tiebreak").Parse(tieBreakPromptTemplate))
)

// renderEssay lays the essay out with bracketed paragraph indices so the
// model can cite paragraph_index values the verifier understands.
func renderEssay(essay *types.StructuredEssay) string {
	var sb strings.Builder
	for _, p := range essay.Paragraphs {
		fmt.Fprintf(&sb, "[%d] %s\n\n", p.Index, p.Text)
	}
	if sb.Len() == 0 {
		return essay.Text
	}
	return strings.TrimRight(sb.String(), "\n")
}

func buildJudgmentRequest(cfg types.EvaluationConfig, c types.Criterion, essay *types.StructuredEssay, kind passKind, strict bool) (inference.Request, error) {
	var sb strings.Builder
	err := judgmentPrompt.Execute(&sb, struct {
		Criterion        types.Criterion
		Essay            string
		MaxSpanChars     int
		MaxEvidenceSpans int
		Variation        bool
		Strict           bool
	}{
		Criterion:        c,
		Essay:            renderEssay(essay),
		MaxSpanChars:     cfg.MaxSpanChars,
		MaxEvidenceSpans: cfg.MaxEvidenceSpans,
		Variation:        kind == passSecond,
		Strict:           strict,
	})
	if err != nil {
		return inference.Request{}, err
	}
	return inference.Request{System: judgmentSystem, Prompt: sb.String(), ForceJSON: true}, nil
}

func buildTieBreakRequest(c types.Criterion, essay *types.StructuredEssay, first, second *judgment) (inference.Request, error) {
	firstJSON, err := json.MarshalIndent(judgmentSummary(first), "", "  ")
	if err != nil {
		return inference.Request{}, err
	}
	secondJSON, err := json.MarshalIndent(judgmentSummary(second), "", "  ")
	if err != nil {
		return inference.Request{}, err
	}

	var sb strings.Builder
	err = tieBreakPrompt.Execute(&sb, struct {
		Criterion     types.Criterion
		Levels        string
		First, Second string
		Essay         string
	}{
		Criterion: c,
		Levels:    strings.Join(c.Levels, ", "),
		First:     string(firstJSON),
		Second:    string(secondJSON),
		Essay:     renderEssay(essay),
	})
	if err != nil {
		return inference.Request{}, err
	}
	return inference.Request{System: tieBreakSystem, Prompt: sb.String(), ForceJSON: true}, nil
}

// judgmentSummary strips a judgment down to what the arbiter needs.
func judgmentSummary(j *judgment) map[string]any {
	return map[string]any{
		"level":          j.Level,
		"justification":  j.Justification,
		"evidence_spans": j.Evidence,
	}
}
