package types

import "time"

// InferenceConfig holds shared settings for stages that call the inference
// service.
type InferenceConfig struct {
	// Model is the model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the inference API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint. Empty means the provider
	// default.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxRetries is the number of retry attempts for transient provider
	// failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Timeout is the per-request timeout (default 60s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// StructuringConfig holds settings for the essay structuring stage.
type StructuringConfig struct {
	// TargetLanguage is the language grading prompts assume (default "en").
	TargetLanguage string `json:"target_language" yaml:"target_language"`

	// TranslateNonEnglish enables a translation pass when the detected
	// language differs from TargetLanguage.
	TranslateNonEnglish bool `json:"translate_non_english" yaml:"translate_non_english"`

	// RedactPII enables the privacy filter pass.
	RedactPII bool `json:"redact_pii" yaml:"redact_pii"`

	// ChunkMaxParagraphs is the window size for chunking (default 6).
	ChunkMaxParagraphs int `json:"chunk_max_paragraphs" yaml:"chunk_max_paragraphs"`

	// ChunkOverlapParagraphs is the overlap between consecutive chunks
	// (default 1).
	ChunkOverlapParagraphs int `json:"chunk_overlap_paragraphs" yaml:"chunk_overlap_paragraphs"`

	// MaxChars is the hard essay length ceiling. Longer essays are
	// rejected, never truncated, because truncation would corrupt
	// evidence-span offsets downstream (default 20000).
	MaxChars int `json:"max_chars" yaml:"max_chars"`
}

// EvaluationConfig holds settings for per-criterion evaluation.
type EvaluationConfig struct {
	// MaxSpanChars caps the length of a single evidence quote (default 240).
	MaxSpanChars int `json:"max_span_chars" yaml:"max_span_chars"`

	// MaxEvidenceSpans caps the evidence spans kept per criterion
	// (default 5).
	MaxEvidenceSpans int `json:"max_evidence_spans" yaml:"max_evidence_spans"`

	// SinglePass skips the second consistency pass. Faster and cheaper,
	// at the cost of agreement checking.
	SinglePass bool `json:"single_pass" yaml:"single_pass"`

	// CriterionTimeout bounds one criterion's evaluation including
	// retries (default 2m).
	CriterionTimeout time.Duration `json:"criterion_timeout" yaml:"criterion_timeout"`
}

// CacheConfig holds settings for the optional content-addressed cache.
type CacheConfig struct {
	// Path is the SQLite database file. Empty disables caching.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// TTL is how long cached entries stay valid (default 24h).
	TTL time.Duration `json:"ttl" yaml:"ttl"`
}

// PipelineConfig groups all stage configurations for one pipeline instance.
type PipelineConfig struct {
	Inference   InferenceConfig   `json:"inference" yaml:"inference"`
	Structuring StructuringConfig `json:"structuring" yaml:"structuring"`
	Evaluation  EvaluationConfig  `json:"evaluation" yaml:"evaluation"`
	Cache       CacheConfig       `json:"cache" yaml:"cache"`

	// Concurrency bounds how many criteria are evaluated in parallel,
	// sized to respect the inference service's rate limits (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// Timeout is the overall pipeline deadline. Criteria still pending
	// when it expires are marked refused with reason "timeout"
	// (default 10m).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}
