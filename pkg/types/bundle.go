// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Record is one result returned by a data source. The shape is
// heterogeneous: literature records carry journal metadata, trial
// records carry registry fields, knowledge-base chunks carry content and
// a similarity score. Unused fields stay zero. A record is identified by
// its source-specific ID when present; dedup falls back to a title hash,
// then a hash of the full serialized record.
type Record struct {
	// ID is the source-specific natural key (e.g. a PubMed ID or an
	// NCT registry number).
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Title is the record's display title.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Authors lists the record's authors in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Journal is the publication venue for literature records.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	// Registry names the trial registry for trial records.
	Registry string `json:"registry,omitempty" yaml:"registry,omitempty"`

	// Year is the publication or registration year.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// PublishedDate is the full publication date when the source
	// provides one. Used for recency scoring; Year alone is not.
	PublishedDate time.Time `json:"published_date,omitempty" yaml:"published_date,omitempty"`

	// URL links to the record at its source.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Phase is the trial phase text (e.g. "Phase 3").
	Phase string `json:"phase,omitempty" yaml:"phase,omitempty"`

	// Status is the trial recruitment status text.
	Status string `json:"status,omitempty" yaml:"status,omitempty"`

	// Enrollment is the trial participant count.
	Enrollment int `json:"enrollment,omitempty" yaml:"enrollment,omitempty"`

	// Similarity is the knowledge-base retrieval score in [0,1].
	Similarity float64 `json:"similarity,omitempty" yaml:"similarity,omitempty"`

	// Content is the chunk text for knowledge-base records.
	Content string `json:"content,omitempty" yaml:"content,omitempty"`

	// Extra carries source fields the core does not interpret.
	Extra map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// SourceBundle is the raw result set one data source produced for one
// orchestration round. Read-only from the synthesis engine's perspective.
type SourceBundle struct {
	// SourceName identifies the producing source.
	SourceName string `json:"source_name" yaml:"source_name"`

	// Results holds the source's records in source order.
	Results []Record `json:"results" yaml:"results"`

	// Metadata carries source-level annotations (query echoes, paging
	// state). The engine passes it through untouched.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}
