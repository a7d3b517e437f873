// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline wires the grading stages together: rubric
// normalization, essay structuring, concurrent per-criterion evaluation,
// and aggregation. A single criterion failing never aborts a run; failures
// surface as refusals in the report.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pdiddy/rubricheck/internal/aggregate"
	"github.com/pdiddy/rubricheck/internal/cache"
	"github.com/pdiddy/rubricheck/internal/evaluator"
	"github.com/pdiddy/rubricheck/internal/inference"
	"github.com/pdiddy/rubricheck/internal/privacy"
	"github.com/pdiddy/rubricheck/internal/rubric"
	"github.com/pdiddy/rubricheck/internal/structurer"
	"github.com/pdiddy/rubricheck/pkg/types"
)

const (
	defaultConcurrency = 4
	defaultTimeout     = 10 * time.Minute
)

// Pipeline runs the grading stages against one inference client. Safe for
// concurrent use; each call carries its own state.
type Pipeline struct {
	Client inference.Client
	Config types.PipelineConfig

	// Cache is optional. When set, rubric and essay artifacts are reused
	// across runs by content fingerprint.
	Cache *cache.Store
}

// New builds a pipeline backed by the configured inference provider and,
// when a cache path is configured, the artifact cache.
func New(cfg types.PipelineConfig) (*Pipeline, error) {
	p := &Pipeline{Client: inference.NewOpenAIClient(cfg.Inference), Config: cfg}

	if cfg.Cache.Path != "" {
		store, err := cache.Open(cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		p.Cache = store
	}
	return p, nil
}

// Close releases the cache, when one is open.
func (p *Pipeline) Close() error {
	if p.Cache != nil {
		return p.Cache.Close()
	}
	return nil
}

// ParseRubric normalizes a rubric source, consulting the cache first.
func (p *Pipeline) ParseRubric(ctx context.Context, src rubric.Source) (*types.CanonicalRubric, error) {
	fp := cache.Fingerprint(src.Data, string(src.Kind))
	if p.Cache != nil {
		if cached, ok, err := p.Cache.GetRubric(fp); err == nil && ok {
			return cached, nil
		}
	}

	n := &rubric.Normalizer{Client: p.Client, MaxRetries: p.Config.Inference.MaxRetries}
	r, err := n.Normalize(ctx, src)
	if err != nil {
		return nil, err
	}

	if p.Cache != nil {
		if err := p.Cache.PutRubric(fp, r); err != nil {
			return nil, fmt.Errorf("caching rubric: %w", err)
		}
	}
	return r, nil
}

// StructureEssay structures raw essay text, consulting the cache first.
// The cache key covers the structuring settings, so the same essay under
// different settings structures fresh.
func (p *Pipeline) StructureEssay(ctx context.Context, text string) (*types.StructuredEssay, error) {
	cfg := p.Config.Structuring
	fp := cache.Fingerprint([]byte(text),
		cfg.TargetLanguage,
		fmt.Sprintf("translate=%t", cfg.TranslateNonEnglish),
		fmt.Sprintf("redact=%t", cfg.RedactPII),
		fmt.Sprintf("chunk=%d/%d", cfg.ChunkMaxParagraphs, cfg.ChunkOverlapParagraphs),
	)
	if p.Cache != nil {
		if cached, ok, err := p.Cache.GetEssay(fp); err == nil && ok {
			return cached, nil
		}
	}

	s := structurer.New(cfg)
	if cfg.TranslateNonEnglish {
		s.Translator = &structurer.InferenceTranslator{
			Client:     p.Client,
			MaxRetries: p.Config.Inference.MaxRetries,
		}
	}
	if cfg.RedactPII {
		s.Redactor = &privacy.Filter{}
	}

	essay, err := s.Structure(ctx, text)
	if err != nil {
		return nil, err
	}

	if p.Cache != nil {
		if err := p.Cache.PutEssay(fp, essay); err != nil {
			return nil, fmt.Errorf("caching essay: %w", err)
		}
	}
	return essay, nil
}

// Grade evaluates every rubric criterion against the structured essay and
// aggregates the results. Criteria run concurrently under the configured
// limit; results come back in rubric order regardless of completion order.
// Progress lines go to w.
func (p *Pipeline) Grade(ctx context.Context, r *types.CanonicalRubric, essay *types.StructuredEssay, w io.Writer) (*types.GradeReport, error) {
	timeout := p.Config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	concurrency := p.Config.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	ev := evaluator.New(p.Client, p.Config.Evaluation)
	ev.MaxRetries = p.Config.Inference.MaxRetries

	results := make([]types.CriterionResult, len(r.Criteria))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i, c := range r.Criteria {
		wg.Add(1)
		go func(i int, c types.Criterion) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res := ev.Evaluate(ctx, c, essay)
			results[i] = res

			mu.Lock()
			defer mu.Unlock()
			if res.Refused {
				fmt.Fprintf(w, "criterion %s: refused (%s)\n", c.ID, res.RefusalReason)
			} else {
				fmt.Fprintf(w, "criterion %s: %s (%s)\n", c.ID, res.Level, res.Agreement)
			}
		}(i, c)
	}
	wg.Wait()

	return aggregate.Aggregate(r, results, essay), nil
}

// Evaluate runs the full pipeline: rubric, essay, grading, report.
func (p *Pipeline) Evaluate(ctx context.Context, src rubric.Source, essayText string, w io.Writer) (*types.GradeReport, error) {
	r, err := p.ParseRubric(ctx, src)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "rubric: %d criteria (confidence %.1f)\n", len(r.Criteria), r.Confidence)

	essay, err := p.StructureEssay(ctx, essayText)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "essay: %d paragraphs, %d words\n", len(essay.Paragraphs), essay.Metadata.WordCount)

	return p.Grade(ctx, r, essay, w)
}
