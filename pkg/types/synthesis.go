// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// AnswerType is a coarse classification of how complete a synthesized
// answer is. Derived from the bundles, never stored independently.
// Per prd011-synthesis R2.
type AnswerType string

const (
	AnswerEmpty         AnswerType = "EMPTY"
	AnswerMinimal       AnswerType = "MINIMAL"
	AnswerPartial       AnswerType = "PARTIAL"
	AnswerComprehensive AnswerType = "COMPREHENSIVE"
)

// Citation is a normalized, scored reference to one source record.
// Generated once per record per synthesis pass; immutable.
type Citation struct {
	// ID is the 1-based citation number in assignment order. IDs are
	// not renumbered when the citation list is sorted by relevance.
	ID int `json:"id" yaml:"id"`

	// Source is the bundle the record came from.
	Source string `json:"source" yaml:"source"`

	// Title is the cited record's title.
	Title string `json:"title" yaml:"title"`

	// Authors lists at most three authors.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Journal is the publication venue for literature citations.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	// Registry names the trial registry for trial citations.
	Registry string `json:"registry,omitempty" yaml:"registry,omitempty"`

	// Year is the publication or registration year, zero if unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// NaturalID is the record's source-specific identifier.
	NaturalID string `json:"natural_id,omitempty" yaml:"natural_id,omitempty"`

	// URL links to the record at its source.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// RelevanceScore is a value in [0,1] from the source-specific
	// scoring formula.
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`
}

// QualityMetrics scores a synthesized answer. All score fields lie in
// [0,1]. Authority, Diversity, and Relevance are fixed at 0.5 pending
// future refinement; OverallScore weighs completeness and recency only.
type QualityMetrics struct {
	// Completeness is sources-with-data over the configured expected
	// source count.
	Completeness float64 `json:"completeness" yaml:"completeness"`

	// Recency is the fraction of citations published within two years
	// of now, zero when there are no citations.
	Recency float64 `json:"recency" yaml:"recency"`

	Authority float64 `json:"authority" yaml:"authority"`
	Diversity float64 `json:"diversity" yaml:"diversity"`
	Relevance float64 `json:"relevance" yaml:"relevance"`

	// OverallScore is 0.6*Completeness + 0.4*Recency.
	OverallScore float64 `json:"overall_score" yaml:"overall_score"`

	// HasRecentTrials reports whether the trial-registry bundle
	// contributed at least one record.
	HasRecentTrials bool `json:"has_recent_trials" yaml:"has_recent_trials"`

	// HasMultiplePerspectives reports whether more than one source
	// contributed results.
	HasMultiplePerspectives bool `json:"has_multiple_perspectives" yaml:"has_multiple_perspectives"`
}

// SynthesisMetrics summarizes one synthesis pass for tracing.
type SynthesisMetrics struct {
	TotalSources      int        `json:"total_sources" yaml:"total_sources"`
	SuccessfulSources int        `json:"successful_sources" yaml:"successful_sources"`
	TotalResults      int        `json:"total_results" yaml:"total_results"`
	UniqueResults     int        `json:"unique_results" yaml:"unique_results"`
	CitationCount     int        `json:"citation_count" yaml:"citation_count"`
	QualityScore      float64    `json:"quality_score" yaml:"quality_score"`
	SynthesisTimeMS   int64      `json:"synthesis_time_ms" yaml:"synthesis_time_ms"`
	AnswerType        AnswerType `json:"answer_type" yaml:"answer_type"`
}

// SynthesisPackage is the engine's complete output for one round.
type SynthesisPackage struct {
	// Answer is the rendered, template-based answer text.
	Answer string `json:"answer" yaml:"answer"`

	// CheckpointID is a timestamp-plus-hash identifier for
	// traceability and replay: ckpt_YYYYMMDD_HHMMSS_<12 hex>.
	CheckpointID string `json:"checkpoint_id" yaml:"checkpoint_id"`

	// Citations is sorted by descending relevance score.
	Citations []Citation `json:"citations" yaml:"citations"`

	QualityMetrics   QualityMetrics   `json:"quality_metrics" yaml:"quality_metrics"`
	SynthesisMetrics SynthesisMetrics `json:"synthesis_metrics" yaml:"synthesis_metrics"`
}
