// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/viper"

	"github.com/pdiddy/rubricheck/pkg/types"
)

func init() {
	viper.SetDefault("inference.max_retries", 3)
	viper.SetDefault("structuring.target_language", "en")
	viper.SetDefault("structuring.redact_pii", true)
	viper.SetDefault("concurrency", 4)
}

// pipelineConfig assembles the pipeline configuration from the config
// file, environment, flags, and loaded secrets. Flags win over the config
// file; the api-key flag wins over the secrets directory.
func pipelineConfig() types.PipelineConfig {
	flags := rootCmd.PersistentFlags()
	model, _ := flags.GetString("model")
	apiKey, _ := flags.GetString("api-key")
	baseURL, _ := flags.GetString("base-url")
	cachePath, _ := flags.GetString("cache")

	if viper.IsSet("inference.model") && !flags.Changed("model") {
		model = viper.GetString("inference.model")
	}
	if apiKey == "" {
		apiKey = viper.GetString("api_key")
	}
	if baseURL == "" {
		baseURL = viper.GetString("inference.base_url")
	}
	if cachePath == "" {
		cachePath = viper.GetString("cache.path")
	}

	return types.PipelineConfig{
		Inference: types.InferenceConfig{
			Model:      model,
			APIKey:     secretDefault("openai-api-key", apiKey),
			BaseURL:    baseURL,
			MaxRetries: viper.GetInt("inference.max_retries"),
			Timeout:    viper.GetDuration("inference.timeout"),
		},
		Structuring: types.StructuringConfig{
			TargetLanguage:         viper.GetString("structuring.target_language"),
			TranslateNonEnglish:    viper.GetBool("structuring.translate_non_english"),
			RedactPII:              viper.GetBool("structuring.redact_pii"),
			ChunkMaxParagraphs:     viper.GetInt("structuring.chunk_max_paragraphs"),
			ChunkOverlapParagraphs: viper.GetInt("structuring.chunk_overlap_paragraphs"),
			MaxChars:               viper.GetInt("structuring.max_chars"),
		},
		Evaluation: types.EvaluationConfig{
			MaxSpanChars:     viper.GetInt("evaluation.max_span_chars"),
			MaxEvidenceSpans: viper.GetInt("evaluation.max_evidence_spans"),
			SinglePass:       viper.GetBool("evaluation.single_pass"),
			CriterionTimeout: viper.GetDuration("evaluation.criterion_timeout"),
		},
		Cache: types.CacheConfig{
			Path: cachePath,
			TTL:  viper.GetDuration("cache.ttl"),
		},
		Concurrency: viper.GetInt("concurrency"),
		Timeout:     viper.GetDuration("timeout"),
	}
}
