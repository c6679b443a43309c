// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synthesis merges per-source result bundles into one
// deduplicated, cited, quality-scored answer package.
// Implements: prd011-synthesis (R1-R7);
//
//	docs/ARCHITECTURE § Synthesis.
package synthesis

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Well-known source names. Sources outside the configured priority list
// are ignored by the engine.
const (
	SourceLiterature    = "literature"
	SourceTrials        = "trials"
	SourceKnowledgeBase = "knowledge_base"
)

// Scoring windows and boosts for literature citations (R4.1).
const (
	recentWindow = 365 * 24 * time.Hour
	olderWindow  = 5 * 365 * 24 * time.Hour
)

// recencyYears is the window for the quality recency metric (R5.2).
const recencyYears = 2

// defaultHighImpactVenues earn a literature citation a venue boost when
// the journal name contains one of them, case-insensitively.
var defaultHighImpactVenues = []string{
	"new england journal of medicine",
	"nejm",
	"lancet",
	"jama",
	"bmj",
	"nature",
	"science",
	"cell",
	"annals of internal medicine",
}

// DefaultConfig returns the synthesis settings used when a field is
// left zero: three expected sources walked literature-first.
func DefaultConfig() types.SynthesisConfig {
	return types.SynthesisConfig{
		ExpectedSourceCount: 3,
		SourcePriority:      []string{SourceLiterature, SourceTrials, SourceKnowledgeBase},
		HighImpactVenues:    defaultHighImpactVenues,
	}
}

// Engine synthesizes source bundles. It is purely sequential, performs
// no I/O, and holds no state between calls; one Engine may serve many
// rounds. The clock is injectable so checkpoint ids and recency scoring
// are testable.
type Engine struct {
	cfg    types.SynthesisConfig
	now    func() time.Time
	logger *zap.Logger
}

// NewEngine returns an Engine with zero config fields filled from
// DefaultConfig. A nil logger disables logging.
func NewEngine(cfg types.SynthesisConfig, logger *zap.Logger) *Engine {
	def := DefaultConfig()
	if cfg.ExpectedSourceCount <= 0 {
		cfg.ExpectedSourceCount = def.ExpectedSourceCount
	}
	if len(cfg.SourcePriority) == 0 {
		cfg.SourcePriority = def.SourcePriority
	}
	if len(cfg.HighImpactVenues) == 0 {
		cfg.HighImpactVenues = def.HighImpactVenues
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, now: time.Now, logger: logger}
}

// dedupEntry is a retained record tagged with its originating source.
type dedupEntry struct {
	source string
	record types.Record
}

// Synthesize runs the full pipeline over the bundles: classification,
// deduplication, citation extraction, quality scoring, checkpoint id,
// and answer rendering. Missing or empty bundles are the default empty
// case, never an error; Synthesize fails only on caller-contract
// violations, such as a bundle filed under a different source name
// than it carries.
func (e *Engine) Synthesize(query, frameIntent string, bundles map[string]types.SourceBundle) (types.SynthesisPackage, error) {
	start := time.Now()

	for name, b := range bundles {
		if b.SourceName != "" && b.SourceName != name {
			return types.SynthesisPackage{}, fmt.Errorf(
				"bundle filed under %q carries source name %q", name, b.SourceName)
		}
	}

	// Walk sources in the fixed priority order throughout (R2-R4);
	// map iteration order must never leak into the output, and bundles
	// outside the priority list do not count anywhere.
	totalSources := 0
	totalResults := 0
	sourcesWithData := 0
	for _, src := range e.cfg.SourcePriority {
		b, ok := bundles[src]
		if ok {
			totalSources++
		}
		totalResults += len(b.Results)
		if len(b.Results) > 0 {
			sourcesWithData++
		}
	}

	answerType := e.classify(sourcesWithData, totalResults)
	unique := e.deduplicate(bundles)
	citations := e.extractCitations(bundles)
	quality := e.scoreQuality(bundles, citations, sourcesWithData)
	checkpointID := e.checkpointID(query, frameIntent, bundles)
	answer := e.renderAnswer(query, answerType, totalResults, len(citations), bundles)

	pkg := types.SynthesisPackage{
		Answer:         answer,
		CheckpointID:   checkpointID,
		Citations:      citations,
		QualityMetrics: quality,
		SynthesisMetrics: types.SynthesisMetrics{
			TotalSources:      totalSources,
			SuccessfulSources: sourcesWithData,
			TotalResults:      totalResults,
			UniqueResults:     len(unique),
			CitationCount:     len(citations),
			QualityScore:      quality.OverallScore,
			SynthesisTimeMS:   time.Since(start).Milliseconds(),
			AnswerType:        answerType,
		},
	}

	e.logger.Info("synthesis complete",
		zap.String("method", "Synthesize"),
		zap.String("checkpoint_id", checkpointID),
		zap.String("answer_type", string(answerType)),
		zap.Int("total_results", totalResults),
		zap.Int("unique_results", len(unique)),
		zap.Int("citations", len(citations)),
		zap.Duration("duration", time.Since(start)),
	)
	return pkg, nil
}

// classify derives the answer type with fixed precedence (R2).
func (e *Engine) classify(sourcesWithData, totalResults int) types.AnswerType {
	switch {
	case sourcesWithData == 0 || totalResults == 0:
		return types.AnswerEmpty
	case sourcesWithData == 1 && totalResults < 5:
		return types.AnswerMinimal
	case sourcesWithData < e.cfg.ExpectedSourceCount || totalResults < 10:
		return types.AnswerPartial
	default:
		return types.AnswerComprehensive
	}
}

// deduplicate walks sources in priority order and keeps the first
// occurrence of each natural key, tagged with its originating source
// (R3). Subsequent records with the same key are dropped.
func (e *Engine) deduplicate(bundles map[string]types.SourceBundle) []dedupEntry {
	seen := make(map[string]bool)
	var unique []dedupEntry

	for _, src := range e.cfg.SourcePriority {
		for _, r := range bundles[src].Results {
			key := naturalKey(r)
			if seen[key] {
				continue
			}
			seen[key] = true
			unique = append(unique, dedupEntry{source: src, record: r})
		}
	}
	return unique
}

// naturalKey returns the record's dedup key: source-specific ID, else a
// hash of its title, else a hash of its full serialized form.
func naturalKey(r types.Record) string {
	if r.ID != "" {
		return "id:" + r.ID
	}
	if r.Title != "" {
		return "title:" + hashHex([]byte(strings.ToLower(strings.TrimSpace(r.Title))))
	}
	serialized, _ := json.Marshal(r)
	return "record:" + hashHex(serialized)
}

// extractCitations builds one citation per original (non-deduplicated)
// record, numbered sequentially in priority order, then sorts the list
// by descending relevance. IDs keep their assignment order after the
// sort (R4).
func (e *Engine) extractCitations(bundles map[string]types.SourceBundle) []types.Citation {
	var citations []types.Citation
	next := 1

	for _, src := range e.cfg.SourcePriority {
		for _, r := range bundles[src].Results {
			c := types.Citation{
				ID:        next,
				Source:    src,
				Title:     r.Title,
				Journal:   r.Journal,
				Registry:  r.Registry,
				Year:      recordYear(r),
				NaturalID: r.ID,
				URL:       r.URL,
			}
			switch src {
			case SourceTrials:
				c.Authors = capAuthors(r.Authors)
				c.RelevanceScore = e.scoreTrial(r)
			case SourceLiterature:
				c.Authors = capAuthors(r.Authors)
				c.RelevanceScore = e.scoreLiterature(r)
			default:
				// Knowledge-base and other sources carry their own
				// similarity score and cite no authors.
				c.RelevanceScore = clamp01(r.Similarity)
			}
			citations = append(citations, c)
			next++
		}
	}

	sort.SliceStable(citations, func(i, j int) bool {
		return citations[i].RelevanceScore > citations[j].RelevanceScore
	})
	return citations
}

// scoreLiterature rates a literature record: base 0.5, a recency boost
// (+0.3 within a year, else +0.1 within five), and +0.2 for a
// high-impact venue (R4.1). A record carrying only a year cannot be
// placed inside the one-year window, but a recent year still earns the
// five-year boost.
func (e *Engine) scoreLiterature(r types.Record) float64 {
	score := 0.5
	if !r.PublishedDate.IsZero() {
		age := e.now().Sub(r.PublishedDate)
		if age <= recentWindow {
			score += 0.3
		} else if age <= olderWindow {
			score += 0.1
		}
	} else if r.Year != 0 {
		diff := e.now().UTC().Year() - r.Year
		if diff >= 0 && diff < 5 {
			score += 0.1
		}
	}
	journal := strings.ToLower(r.Journal)
	for _, venue := range e.cfg.HighImpactVenues {
		if strings.Contains(journal, strings.ToLower(venue)) {
			score += 0.2
			break
		}
	}
	return clamp01(score)
}

// scoreTrial rates a trial record: base 0.5 plus mutually exclusive
// boosts for phase, recruitment status, and enrollment size (R4.2).
func (e *Engine) scoreTrial(r types.Record) float64 {
	score := 0.5
	switch {
	case strings.Contains(r.Phase, "3"):
		score += 0.3
	case strings.Contains(r.Phase, "2"):
		score += 0.2
	}
	status := strings.ToLower(r.Status)
	switch {
	case strings.Contains(status, "recruiting"):
		score += 0.2
	case strings.Contains(status, "active"):
		score += 0.1
	}
	switch {
	case r.Enrollment > 1000:
		score += 0.2
	case r.Enrollment > 100:
		score += 0.1
	}
	return clamp01(score)
}

// scoreQuality computes the quality metrics (R5). Authority, diversity,
// and relevance are fixed placeholders pending future refinement.
func (e *Engine) scoreQuality(bundles map[string]types.SourceBundle, citations []types.Citation, sourcesWithData int) types.QualityMetrics {
	completeness := clamp01(float64(sourcesWithData) / float64(e.cfg.ExpectedSourceCount))

	recency := 0.0
	if len(citations) > 0 {
		currentYear := e.now().UTC().Year()
		recent := 0
		for _, c := range citations {
			if c.Year != 0 && currentYear-c.Year <= recencyYears {
				recent++
			}
		}
		recency = float64(recent) / float64(len(citations))
	}

	return types.QualityMetrics{
		Completeness:            completeness,
		Recency:                 recency,
		Authority:               0.5,
		Diversity:               0.5,
		Relevance:               0.5,
		OverallScore:            0.6*completeness + 0.4*recency,
		HasRecentTrials:         len(bundles[SourceTrials].Results) > 0,
		HasMultiplePerspectives: sourcesWithData > 1,
	}
}

// checkpointID builds ckpt_<UTC timestamp>_<12 hex> where the hash
// covers the query, the frame intent, and a per-source result-shape
// signature, never full record content (R6). The id is reproducible for
// identical inputs at the same instant.
func (e *Engine) checkpointID(query, frameIntent string, bundles map[string]types.SourceBundle) string {
	var sig strings.Builder
	for _, src := range e.cfg.SourcePriority {
		n := len(bundles[src].Results)
		fmt.Fprintf(&sig, "%s=%d,%t;", src, n, n > 0)
	}

	sum := sha256.Sum256([]byte(query + ":" + frameIntent + ":" + sig.String()))
	suffix := hex.EncodeToString(sum[:])[:12]
	return "ckpt_" + e.now().UTC().Format("20060102_150405") + "_" + suffix
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// recordYear returns the record's year, falling back to the published
// date when the source only supplied the latter.
func recordYear(r types.Record) int {
	if r.Year != 0 {
		return r.Year
	}
	if !r.PublishedDate.IsZero() {
		return r.PublishedDate.Year()
	}
	return 0
}

// capAuthors truncates an author list to three entries.
func capAuthors(authors []string) []string {
	if len(authors) > 3 {
		return authors[:3]
	}
	return authors
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
