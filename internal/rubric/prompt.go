// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rubric

import (
	"context"
	"errors"
	"strings"
	"text/template"

	"github.com/pdiddy/rubricheck/internal/inference"
	"github.com/pdiddy/rubricheck/pkg/types"
)

const extractSystem = `You are a precise rubric parser. You convert grading rubrics written as prose, bullet lists, or pasted tables into structured JSON. You never invent criteria that are not in the source text, and you never omit criteria that are.`

const extractPromptTemplate = `Convert the following grading rubric into a JSON object with this exact shape:

{
  "title": "rubric title, or empty string",
  "criteria": [
    {
      "id": "snake_case identifier derived from the name",
      "name": "criterion display name",
      "weight": 0.25,
      "valid_levels": ["best level", "...", "worst level"],
      "descriptors": {"level name": "what performance at this level looks like"},
      "evidence_hint": "what evidence the grader should look for, or empty string"
    }
  ],
  "scoring": {
    "mode": "numeric",
    "bands": [{"min": 90, "letter": "A"}],
    "level_points": {}
  },
  "confidence": 0.9
}

Rules:
- List valid_levels from BEST to WORST. If the source lists them the other way, reverse them.
- Every level in valid_levels must have a descriptor, quoted or closely paraphrased from the source.
- Weights: use the source's weights or percentages, converted to fractions that sum to 1. If the source gives no weights at all, set every weight to 0.
- Only include "bands" if the source defines a grade scale; otherwise use an empty list.
- Only include "level_points" if the source assigns explicit point values to levels; otherwise use an empty object.
- Use "categorical" mode only when the source scores levels directly without any letter-grade scale.
- Set "confidence" between 0 and 1: how certain you are that the structure faithfully reflects the source.
- Respond with the JSON object only. No commentary.

Rubric text:
---
{{.Text}}
---`

const extractStrictSuffix = `

Your previous response did not parse. Respond with ONLY the JSON object described above: no markdown fences, no explanations, double-quoted keys and strings.`

var extractPrompt = template.Must(template.New("extract").Parse(extractPromptTemplate))

// extract asks the inference service to structure raw rubric text. A
// response that fails the schema gets one stricter retry before the whole
// parse fails.
func (n *Normalizer) extract(ctx context.Context, text string) (*wireRubric, error) {
	if n.Client == nil {
		return nil, &types.RubricParseError{Errors: []string{"raw text rubric requires an inference client"}}
	}

	var sb strings.Builder
	if err := extractPrompt.Execute(&sb, struct{ Text string }{Text: text}); err != nil {
		return nil, err
	}
	req := inference.Request{
		System:    extractSystem,
		Prompt:    sb.String(),
		ForceJSON: true,
	}

	wire, err := inference.CompleteJSON[wireRubric](ctx, n.Client, req, n.MaxRetries)
	if err != nil {
		var sv *types.SchemaViolation
		if !errors.As(err, &sv) {
			return nil, err
		}
		req.Prompt += extractStrictSuffix
		wire, err = inference.CompleteJSON[wireRubric](ctx, n.Client, req, n.MaxRetries)
		if err != nil {
			if errors.As(err, &sv) {
				return nil, &types.RubricParseError{Errors: []string{"inference response did not match the rubric schema: " + sv.Reason}}
			}
			return nil, err
		}
	}
	return &wire, nil
}
