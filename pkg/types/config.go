// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "evidence-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// RetrievalConfig holds settings for the retrieval fan-out stage.
// Per prd010-retrieval R1.3, R2.1-R2.4.
type RetrievalConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxPerSource caps results requested from each source (default 20).
	MaxPerSource int `json:"max_per_source" yaml:"max_per_source"`

	// SourceTimeout is the wall-clock bound on each adapter call
	// (default 15s). A source that exceeds it contributes nothing.
	SourceTimeout time.Duration `json:"source_timeout" yaml:"source_timeout"`

	// NCBIAPIKey raises the E-utilities rate limit from 3 to 10 rps.
	NCBIAPIKey string `json:"ncbi_api_key,omitempty" yaml:"ncbi_api_key,omitempty"`

	// ContactEmail is sent to polite-pool APIs that ask for one.
	ContactEmail string `json:"contact_email,omitempty" yaml:"contact_email,omitempty"`

	// SerpAPIKey enables the web-search fallback source.
	SerpAPIKey string `json:"serp_api_key,omitempty" yaml:"serp_api_key,omitempty"`
}

// FilterConfig holds settings for the cheap lexical relevance gate.
// Per prd011-relevance R1.1-R1.3.
type FilterConfig struct {
	// MinScore is the 0-100 floor below which non-anchor items are
	// removed before reranking (default 15). The gate only bounds volume;
	// it is never the sole relevance check.
	MinScore int `json:"min_score" yaml:"min_score"`
}

// CategoryRerankConfig holds the per-category rerank cuts.
type CategoryRerankConfig struct {
	// TopK caps how many items survive reranking for the category.
	TopK int `json:"top_k" yaml:"top_k"`

	// MinScore is the 0-1 semantic floor for the category.
	MinScore float64 `json:"min_score" yaml:"min_score"`
}

// RerankConfig holds settings for the cross-encoder reranker adapter.
// Per prd012-rerank R1-R3.
type RerankConfig struct {
	HTTPConfig `yaml:",inline"`

	// Endpoint is the cross-encoder scoring service URL.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// APIKey authenticates against the scoring service.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Categories carries the per-category cuts. High-volume categories
	// (article) get strict cuts; scarce ones (drug_info) get loose cuts.
	Categories map[Category]CategoryRerankConfig `json:"categories,omitempty" yaml:"categories,omitempty"`

	// ChunkTokenLimit truncates chunk candidates before scoring.
	ChunkTokenLimit int `json:"chunk_token_limit" yaml:"chunk_token_limit"`
}

// CategoryCuts returns the configured cuts for a category, falling back to
// a permissive default.
func (c RerankConfig) CategoryCuts(cat Category) CategoryRerankConfig {
	if cc, ok := c.Categories[cat]; ok {
		return cc
	}
	return CategoryRerankConfig{TopK: 10, MinScore: 0}
}

// CurationConfig holds settings for the ranking selector.
// Per prd013-curation R1-R5.
type CurationConfig struct {
	// MaxItems is the hard ceiling on the curated set (default 10).
	MaxItems int `json:"max_items" yaml:"max_items"`

	// MinItems is the floor curation tries to reach by relaxing the
	// relevance cut (default 3).
	MinItems int `json:"min_items" yaml:"min_items"`

	// TrialReserve is the number of slots reserved for trial-category
	// items when any are available (default 2).
	TrialReserve int `json:"trial_reserve" yaml:"trial_reserve"`

	// ScoreBand is the relevance delta below which two scores are treated
	// as indistinguishable, so tier and quality break the tie (default 20).
	ScoreBand int `json:"score_band" yaml:"score_band"`

	// RelaxedFloor is the relevance score re-admitted during MinItems
	// relaxation (default 5).
	RelaxedFloor int `json:"relaxed_floor" yaml:"relaxed_floor"`
}

// SufficiencyConfig holds the tunable weights of the sufficiency scorer.
// Per prd013-curation R6; the two trigger conditions are independent by
// design and both are kept configurable.
type SufficiencyConfig struct {
	// FallbackCut triggers fallback retrieval when the score is below it
	// (default 50).
	FallbackCut int `json:"fallback_cut" yaml:"fallback_cut"`

	// MinItemFloor triggers fallback when the curated count is below it
	// regardless of score (default 5).
	MinItemFloor int `json:"min_item_floor" yaml:"min_item_floor"`

	// MinEvidenceThreshold is the target item count for full volume credit
	// (default 8).
	MinEvidenceThreshold int `json:"min_evidence_threshold" yaml:"min_evidence_threshold"`

	// AnchorWeight is the per-anchor score contribution (default 25).
	AnchorWeight int `json:"anchor_weight" yaml:"anchor_weight"`

	// TierMatchWeight is the per-item contribution for tier-1/2 items
	// matching both primary tags (default 15).
	TierMatchWeight int `json:"tier_match_weight" yaml:"tier_match_weight"`
}

// ChunkingConfig holds settings for full-text fetching and chunk selection.
// Per prd014-chunking R1-R5.
type ChunkingConfig struct {
	HTTPConfig `yaml:",inline"`

	// TopItems is how many curated items get full-text treatment (default 6).
	TopItems int `json:"top_items" yaml:"top_items"`

	// FetchConcurrency bounds parallel full-text fetches (default 5).
	FetchConcurrency int `json:"fetch_concurrency" yaml:"fetch_concurrency"`

	// MaxChunks caps the final selected chunk count (default 14).
	MaxChunks int `json:"max_chunks" yaml:"max_chunks"`

	// MinChunkScore is the semantic floor for selected chunks (default 0.2).
	MinChunkScore float64 `json:"min_chunk_score" yaml:"min_chunk_score"`
}

// CacheConfig holds settings for the local evidence cache.
// Per prd016-cache R1.2, R2.3.
type CacheConfig struct {
	// CacheDir is the base directory for the cache database (contains index/).
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// PipelineConfig groups all stage configurations for a pipeline run.
type PipelineConfig struct {
	Retrieval   RetrievalConfig   `json:"retrieval" yaml:"retrieval"`
	Filter      FilterConfig      `json:"filter" yaml:"filter"`
	Rerank      RerankConfig      `json:"rerank" yaml:"rerank"`
	Curation    CurationConfig    `json:"curation" yaml:"curation"`
	Sufficiency SufficiencyConfig `json:"sufficiency" yaml:"sufficiency"`
	Chunking    ChunkingConfig    `json:"chunking" yaml:"chunking"`
	Cache       CacheConfig       `json:"cache" yaml:"cache"`
}

// DefaultPipelineConfig returns the documented defaults for every stage.
func DefaultPipelineConfig() PipelineConfig {
	hc := HTTPConfig{Timeout: 20 * time.Second, UserAgent: "evidence-engine/0.1"}
	return PipelineConfig{
		Retrieval: RetrievalConfig{
			HTTPConfig:    hc,
			MaxPerSource:  20,
			SourceTimeout: 15 * time.Second,
		},
		Filter: FilterConfig{MinScore: 15},
		Rerank: RerankConfig{
			HTTPConfig: hc,
			Categories: map[Category]CategoryRerankConfig{
				CategoryArticle:   {TopK: 8, MinScore: 0.35},
				CategoryReview:    {TopK: 8, MinScore: 0.30},
				CategoryTrial:     {TopK: 10, MinScore: 0.25},
				CategoryGuideline: {TopK: 10, MinScore: 0.20},
				CategoryDrugInfo:  {TopK: 6, MinScore: 0.10},
			},
			ChunkTokenLimit: 512,
		},
		Curation: CurationConfig{
			MaxItems:     10,
			MinItems:     3,
			TrialReserve: 2,
			ScoreBand:    20,
			RelaxedFloor: 5,
		},
		Sufficiency: SufficiencyConfig{
			FallbackCut:          50,
			MinItemFloor:         5,
			MinEvidenceThreshold: 8,
			AnchorWeight:         25,
			TierMatchWeight:      15,
		},
		Chunking: ChunkingConfig{
			HTTPConfig:       hc,
			TopItems:         6,
			FetchConcurrency: 5,
			MaxChunks:        14,
			MinChunkScore:    0.2,
		},
		Cache: CacheConfig{CacheDir: "cache", MaxResults: 20},
	}
}
