// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CoordinatorConfig holds settings for the parallel execution coordinator.
// Per prd010-coordinator R1.1, R5.1.
type CoordinatorConfig struct {
	// MaxConcurrency is the ceiling on task bodies executing at once
	// (default 5).
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency"`
}

// RateLimitConfig holds token-bucket settings for the shared limiter.
type RateLimitConfig struct {
	// TokensPerSecond is the bucket refill rate (default 10).
	TokensPerSecond float64 `json:"tokens_per_second" yaml:"tokens_per_second"`

	// Burst is the bucket capacity. Zero means TokensPerSecond.
	Burst int64 `json:"burst" yaml:"burst"`
}

// SynthesisConfig holds settings for the synthesis engine.
// Per prd011-synthesis R2.2, R3.1, R5.1.
type SynthesisConfig struct {
	// ExpectedSourceCount is the number of sources the orchestration
	// round queries; the completeness denominator (default 3).
	ExpectedSourceCount int `json:"expected_source_count" yaml:"expected_source_count"`

	// SourcePriority fixes the order sources are walked for
	// classification, dedup, and citation numbering. Sources absent
	// from this list are ignored.
	SourcePriority []string `json:"source_priority" yaml:"source_priority"`

	// HighImpactVenues lists journal names that earn a literature
	// citation a venue boost (case-insensitive substring match).
	HighImpactVenues []string `json:"high_impact_venues" yaml:"high_impact_venues"`
}

// EngineConfig groups all component configurations.
type EngineConfig struct {
	Coordinator CoordinatorConfig `json:"coordinator" yaml:"coordinator"`
	RateLimit   RateLimitConfig   `json:"rate_limit" yaml:"rate_limit"`
	Synthesis   SynthesisConfig   `json:"synthesis" yaml:"synthesis"`

	// BatchTimeout bounds each coordinator batch call. Zero disables.
	BatchTimeout time.Duration `json:"batch_timeout" yaml:"batch_timeout"`
}
