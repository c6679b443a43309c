package synthesis

import (
	"math"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// fixedNow pins the engine clock so checkpoint ids and recency scoring
// are deterministic.
var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	e := NewEngine(types.SynthesisConfig{}, nil)
	e.now = func() time.Time { return fixedNow }
	return e
}

func litRecord(id, title string) types.Record {
	return types.Record{ID: id, Title: title, Journal: "Some Journal", Year: 2024}
}

func bundleOf(source string, records ...types.Record) types.SourceBundle {
	return types.SourceBundle{SourceName: source, Results: records}
}

// --- classification ---

func TestClassifyPartialExample(t *testing.T) {
	bundles := map[string]types.SourceBundle{
		SourceLiterature:    bundleOf(SourceLiterature, litRecord("p1", "A"), litRecord("p2", "B")),
		SourceTrials:        bundleOf(SourceTrials),
		SourceKnowledgeBase: bundleOf(SourceKnowledgeBase, types.Record{Title: "Chunk", Similarity: 0.7}),
	}

	pkg, err := testEngine().Synthesize("q", "treatment", bundles)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	m := pkg.SynthesisMetrics
	if m.TotalSources != 3 {
		t.Errorf("TotalSources = %d, want 3", m.TotalSources)
	}
	if m.SuccessfulSources != 2 {
		t.Errorf("SuccessfulSources = %d, want 2", m.SuccessfulSources)
	}
	if m.TotalResults != 3 {
		t.Errorf("TotalResults = %d, want 3", m.TotalResults)
	}
	if m.AnswerType != types.AnswerPartial {
		t.Errorf("AnswerType = %s, want PARTIAL", m.AnswerType)
	}
}

func TestClassifyEmpty(t *testing.T) {
	bundles := map[string]types.SourceBundle{
		SourceLiterature:    bundleOf(SourceLiterature),
		SourceTrials:        bundleOf(SourceTrials),
		SourceKnowledgeBase: bundleOf(SourceKnowledgeBase),
	}

	pkg, err := testEngine().Synthesize("q", "", bundles)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if pkg.SynthesisMetrics.AnswerType != types.AnswerEmpty {
		t.Errorf("AnswerType = %s, want EMPTY", pkg.SynthesisMetrics.AnswerType)
	}
}

func TestClassifyMissingBundlesAreEmpty(t *testing.T) {
	pkg, err := testEngine().Synthesize("q", "", nil)
	if err != nil {
		t.Fatalf("missing bundles must not be an error: %v", err)
	}
	if pkg.SynthesisMetrics.AnswerType != types.AnswerEmpty {
		t.Errorf("AnswerType = %s, want EMPTY", pkg.SynthesisMetrics.AnswerType)
	}
	if !strings.Contains(pkg.Answer, "No results") {
		t.Errorf("empty answer should use the no-results template, got %q", pkg.Answer)
	}
}

func TestClassifyMinimal(t *testing.T) {
	bundles := map[string]types.SourceBundle{
		SourceLiterature: bundleOf(SourceLiterature, litRecord("p1", "A"), litRecord("p2", "B"), litRecord("p3", "C")),
	}

	pkg, err := testEngine().Synthesize("q", "", bundles)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if pkg.SynthesisMetrics.AnswerType != types.AnswerMinimal {
		t.Errorf("AnswerType = %s, want MINIMAL", pkg.SynthesisMetrics.AnswerType)
	}
}

func TestClassifyComprehensive(t *testing.T) {
	lit := bundleOf(SourceLiterature)
	for i := 0; i < 6; i++ {
		lit.Results = append(lit.Results, litRecord(string(rune('a'+i)), "Paper"))
	}
	bundles := map[string]types.SourceBundle{
		SourceLiterature: lit,
		SourceTrials: bundleOf(SourceTrials,
			types.Record{ID: "NCT1", Title: "T1", Phase: "Phase 3"},
			types.Record{ID: "NCT2", Title: "T2", Phase: "Phase 2"},
			types.Record{ID: "NCT3", Title: "T3"}),
		SourceKnowledgeBase: bundleOf(SourceKnowledgeBase,
			types.Record{Title: "K1", Similarity: 0.9},
			types.Record{Title: "K2", Similarity: 0.8}),
	}

	pkg, err := testEngine().Synthesize("q", "", bundles)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if pkg.SynthesisMetrics.AnswerType != types.AnswerComprehensive {
		t.Errorf("AnswerType = %s, want COMPREHENSIVE (11 results, 3 sources)", pkg.SynthesisMetrics.AnswerType)
	}
}

// --- deduplication ---

func TestDeduplicateFirstSeenWins(t *testing.T) {
	bundles := map[string]types.SourceBundle{
		SourceLiterature:    bundleOf(SourceLiterature, litRecord("shared-id", "From literature")),
		SourceKnowledgeBase: bundleOf(SourceKnowledgeBase, types.Record{ID: "shared-id", Title: "From KB", Similarity: 0.9}),
	}

	e := testEngine()
	unique := e.deduplicate(bundles)
	if len(unique) != 1 {
		t.Fatalf("len(unique) = %d, want 1", len(unique))
	}
	// Literature precedes knowledge_base in the priority order.
	if unique[0].source != SourceLiterature {
		t.Errorf("retained source = %q, want the first-priority source", unique[0].source)
	}
	if unique[0].record.Title != "From literature" {
		t.Errorf("retained record = %q, want the first occurrence", unique[0].record.Title)
	}
}

func TestDeduplicateCountsInMetrics(t *testing.T) {
	bundles := map[string]types.SourceBundle{
		SourceLiterature: bundleOf(SourceLiterature, litRecord("p1", "A"), litRecord("p1", "A dup")),
		SourceTrials:     bundleOf(SourceTrials, types.Record{ID: "NCT1", Title: "Trial"}),
	}

	pkg, err := testEngine().Synthesize("q", "", bundles)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if pkg.SynthesisMetrics.TotalResults != 3 {
		t.Errorf("TotalResults = %d, want 3", pkg.SynthesisMetrics.TotalResults)
	}
	if pkg.SynthesisMetrics.UniqueResults != 2 {
		t.Errorf("UniqueResults = %d, want 2", pkg.SynthesisMetrics.UniqueResults)
	}
	// Citations cover originals, not the deduplicated set.
	if pkg.SynthesisMetrics.CitationCount != 3 {
		t.Errorf("CitationCount = %d, want 3", pkg.SynthesisMetrics.CitationCount)
	}
}

func TestNaturalKeyFallbacks(t *testing.T) {
	withID := types.Record{ID: "pmid-1", Title: "Title"}
	if got := naturalKey(withID); got != "id:pmid-1" {
		t.Errorf("naturalKey = %q, want the source ID", got)
	}

	a := types.Record{Title: "Attention Is All You Need"}
	b := types.Record{Title: "attention is all you need"}
	if naturalKey(a) != naturalKey(b) {
		t.Error("title keys should be case-insensitive")
	}

	c := types.Record{Content: "chunk one"}
	d := types.Record{Content: "chunk two"}
	if naturalKey(c) == naturalKey(d) {
		t.Error("distinct untitled records should hash to distinct keys")
	}
}

// --- citation scoring ---

func TestScoreLiteratureRecencyAndVenue(t *testing.T) {
	e := testEngine()

	recent := types.Record{
		Title:         "Recent NEJM paper",
		Journal:       "New England Journal of Medicine",
		PublishedDate: fixedNow.AddDate(0, -2, 0),
	}
	old := types.Record{
		Title:         "Old obscure paper",
		Journal:       "Regional Bulletin",
		PublishedDate: fixedNow.AddDate(-6, 0, 0),
	}

	rs, os := e.scoreLiterature(recent), e.scoreLiterature(old)
	if rs < os {
		t.Errorf("recent high-impact (%f) should score no lower than old unlisted (%f)", rs, os)
	}
	if rs != 1.0 {
		t.Errorf("0.5 + 0.3 + 0.2 = 1.0, got %f", rs)
	}
	if os != 0.5 {
		t.Errorf("old paper outside both windows keeps the base 0.5, got %f", os)
	}

	middling := types.Record{Title: "Three-year-old paper", PublishedDate: fixedNow.AddDate(-3, 0, 0)}
	if got := e.scoreLiterature(middling); math.Abs(got-0.6) > 1e-9 {
		t.Errorf("five-year window boost: want 0.6, got %f", got)
	}
}

func TestScoreLiteratureYearOnlyFallback(t *testing.T) {
	e := testEngine()

	recentYear := types.Record{Title: "Year-only recent", Year: fixedNow.Year() - 2}
	if got := e.scoreLiterature(recentYear); math.Abs(got-0.6) > 1e-9 {
		t.Errorf("a recent year without a full date earns the five-year boost: want 0.6, got %f", got)
	}

	oldYear := types.Record{Title: "Year-only old", Year: fixedNow.Year() - 8}
	if got := e.scoreLiterature(oldYear); got != 0.5 {
		t.Errorf("an old year earns no boost: want 0.5, got %f", got)
	}

	undated := types.Record{Title: "No date at all"}
	if got := e.scoreLiterature(undated); got != 0.5 {
		t.Errorf("an undated record earns no boost: want 0.5, got %f", got)
	}
}

func TestScoreTrialBoosts(t *testing.T) {
	e := testEngine()
	tests := []struct {
		name   string
		record types.Record
		want   float64
	}{
		{"phase3 recruiting large", types.Record{Phase: "Phase 3", Status: "Recruiting", Enrollment: 2000}, 1.0},
		{"phase2 active medium", types.Record{Phase: "Phase 2", Status: "Active", Enrollment: 150}, 0.9},
		{"phase2/3 takes the higher boost", types.Record{Phase: "Phase 2/3"}, 0.8},
		// "recruiting" wins over "active" when the status text carries both.
		{"active not recruiting", types.Record{Status: "Active, not recruiting"}, 0.7},
		{"no signals", types.Record{}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.scoreTrial(tt.record); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("scoreTrial = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestKnowledgeBaseScorePassThrough(t *testing.T) {
	bundles := map[string]types.SourceBundle{
		SourceKnowledgeBase: bundleOf(SourceKnowledgeBase, types.Record{
			Title:      "Chunk",
			Authors:    []string{"Should", "Not", "Appear"},
			Similarity: 0.73,
		}),
	}

	pkg, err := testEngine().Synthesize("q", "", bundles)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	c := pkg.Citations[0]
	if c.RelevanceScore != 0.73 {
		t.Errorf("RelevanceScore = %f, want the record's own similarity", c.RelevanceScore)
	}
	if len(c.Authors) != 0 {
		t.Errorf("knowledge-base citations carry no authors, got %v", c.Authors)
	}
}

func TestCitationScoresInRange(t *testing.T) {
	bundles := map[string]types.SourceBundle{
		SourceLiterature: bundleOf(SourceLiterature,
			types.Record{Title: "A", Journal: "Nature", PublishedDate: fixedNow.AddDate(0, -1, 0)},
			types.Record{Title: "B"}),
		SourceTrials: bundleOf(SourceTrials,
			types.Record{ID: "NCT1", Title: "T", Phase: "Phase 3", Status: "Recruiting", Enrollment: 5000}),
		SourceKnowledgeBase: bundleOf(SourceKnowledgeBase,
			types.Record{Title: "K", Similarity: 1.7}),
	}

	pkg, err := testEngine().Synthesize("q", "", bundles)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	for _, c := range pkg.Citations {
		if c.RelevanceScore < 0 || c.RelevanceScore > 1 {
			t.Errorf("citation %d score %f out of [0,1]", c.ID, c.RelevanceScore)
		}
	}
}

func TestCitationIDsKeepAssignmentOrder(t *testing.T) {
	bundles := map[string]types.SourceBundle{
		SourceLiterature: bundleOf(SourceLiterature,
			types.Record{ID: "p1", Title: "Low relevance"}, // 0.5
		),
		SourceTrials: bundleOf(SourceTrials,
			types.Record{ID: "NCT1", Title: "High relevance", Phase: "Phase 3", Status: "Recruiting", Enrollment: 2000}, // 1.0
		),
	}

	pkg, err := testEngine().Synthesize("q", "", bundles)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(pkg.Citations) != 2 {
		t.Fatalf("len(Citations) = %d, want 2", len(pkg.Citations))
	}
	// Sorted by relevance: the trial leads, but keeps id 2 from its
	// assignment order (literature walks first).
	if pkg.Citations[0].Source != SourceTrials || pkg.Citations[0].ID != 2 {
		t.Errorf("Citations[0] = {source %s, id %d}, want the trial with id 2",
			pkg.Citations[0].Source, pkg.Citations[0].ID)
	}
	if pkg.Citations[1].ID != 1 {
		t.Errorf("Citations[1].ID = %d, want 1", pkg.Citations[1].ID)
	}
}

func TestCitationAuthorsCapped(t *testing.T) {
	bundles := map[string]types.SourceBundle{
		SourceLiterature: bundleOf(SourceLiterature, types.Record{
			ID:      "p1",
			Title:   "Crowded paper",
			Authors: []string{"One", "Two", "Three", "Four", "Five"},
		}),
	}

	pkg, err := testEngine().Synthesize("q", "", bundles)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got := len(pkg.Citations[0].Authors); got != 3 {
		t.Errorf("len(Authors) = %d, want at most 3", got)
	}
}

// --- quality metrics ---

func TestQualityOverallScoreIdentity(t *testing.T) {
	bundles := map[string]types.SourceBundle{
		SourceLiterature: bundleOf(SourceLiterature,
			types.Record{ID: "p1", Title: "New", Year: fixedNow.Year()},
			types.Record{ID: "p2", Title: "Old", Year: fixedNow.Year() - 10}),
		SourceTrials: bundleOf(SourceTrials, types.Record{ID: "NCT1", Title: "T", Year: fixedNow.Year() - 1}),
	}

	pkg, err := testEngine().Synthesize("q", "", bundles)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	q := pkg.QualityMetrics
	want := 0.6*q.Completeness + 0.4*q.Recency
	if math.Abs(q.OverallScore-want) > 1e-9 {
		t.Errorf("OverallScore = %f, want 0.6*%f + 0.4*%f", q.OverallScore, q.Completeness, q.Recency)
	}
	if q.OverallScore < 0 || q.OverallScore > 1 {
		t.Errorf("OverallScore %f out of [0,1]", q.OverallScore)
	}
	if math.Abs(q.Completeness-2.0/3.0) > 1e-9 {
		t.Errorf("Completeness = %f, want 2/3 with two of three sources", q.Completeness)
	}
	if math.Abs(q.Recency-2.0/3.0) > 1e-9 {
		t.Errorf("Recency = %f, want 2/3 (two of three citations within two years)", q.Recency)
	}
	if q.Authority != 0.5 || q.Diversity != 0.5 || q.Relevance != 0.5 {
		t.Error("placeholder metrics should stay fixed at 0.5")
	}
}

func TestQualityRecencyZeroWithoutCitations(t *testing.T) {
	pkg, err := testEngine().Synthesize("q", "", nil)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if pkg.QualityMetrics.Recency != 0 {
		t.Errorf("Recency = %f, want 0 with no citations", pkg.QualityMetrics.Recency)
	}
}

func TestQualityBooleans(t *testing.T) {
	bundles := map[string]types.SourceBundle{
		SourceTrials: bundleOf(SourceTrials, types.Record{ID: "NCT1", Title: "T"}),
	}
	pkg, err := testEngine().Synthesize("q", "", bundles)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !pkg.QualityMetrics.HasRecentTrials {
		t.Error("HasRecentTrials should be true with a non-empty trials bundle")
	}
	if pkg.QualityMetrics.HasMultiplePerspectives {
		t.Error("HasMultiplePerspectives should be false with one contributing source")
	}

	bundles[SourceLiterature] = bundleOf(SourceLiterature, litRecord("p1", "A"))
	pkg, err = testEngine().Synthesize("q", "", bundles)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !pkg.QualityMetrics.HasMultiplePerspectives {
		t.Error("HasMultiplePerspectives should be true with two contributing sources")
	}
}

// --- checkpoint id ---

var checkpointRe = regexp.MustCompile(`^ckpt_\d{8}_\d{6}_[0-9a-f]{12}$`)

func TestCheckpointIDFormatAndStability(t *testing.T) {
	bundles := map[string]types.SourceBundle{
		SourceLiterature: bundleOf(SourceLiterature, litRecord("p1", "A")),
	}

	e := testEngine()
	first, err := e.Synthesize("aspirin dosing", "treatment", bundles)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	second, err := e.Synthesize("aspirin dosing", "treatment", bundles)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if !checkpointRe.MatchString(first.CheckpointID) {
		t.Errorf("CheckpointID %q does not match ckpt_YYYYMMDD_HHMMSS_<12 hex>", first.CheckpointID)
	}
	if first.CheckpointID != second.CheckpointID {
		t.Errorf("same inputs at the same instant should reproduce the id: %q vs %q",
			first.CheckpointID, second.CheckpointID)
	}

	// A changed result shape changes the hash suffix.
	bundles[SourceTrials] = bundleOf(SourceTrials, types.Record{ID: "NCT1", Title: "T"})
	third, err := e.Synthesize("aspirin dosing", "treatment", bundles)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if third.CheckpointID == first.CheckpointID {
		t.Error("different result signatures should produce different ids")
	}
}

// --- contract violations ---

func TestSynthesizeRejectsMismatchedBundleName(t *testing.T) {
	bundles := map[string]types.SourceBundle{
		SourceLiterature: {SourceName: SourceTrials},
	}
	_, err := testEngine().Synthesize("q", "", bundles)
	if err == nil {
		t.Fatal("a bundle filed under the wrong source name should be rejected")
	}
}

// --- configuration ---

func TestConfiguredExpectedSourceCount(t *testing.T) {
	e := NewEngine(types.SynthesisConfig{ExpectedSourceCount: 2}, nil)
	e.now = func() time.Time { return fixedNow }

	bundles := map[string]types.SourceBundle{
		SourceLiterature: bundleOf(SourceLiterature, litRecord("p1", "A")),
		SourceTrials:     bundleOf(SourceTrials, types.Record{ID: "NCT1", Title: "T"}),
	}
	pkg, err := e.Synthesize("q", "", bundles)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if pkg.QualityMetrics.Completeness != 1.0 {
		t.Errorf("Completeness = %f, want 1.0 with both expected sources present",
			pkg.QualityMetrics.Completeness)
	}
}

func TestSourcesOutsidePriorityAreIgnored(t *testing.T) {
	bundles := map[string]types.SourceBundle{
		"preprints": bundleOf("preprints", litRecord("x1", "Unranked")),
	}
	pkg, err := testEngine().Synthesize("q", "", bundles)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if pkg.SynthesisMetrics.TotalResults != 0 {
		t.Errorf("TotalResults = %d, sources outside the priority list should not count",
			pkg.SynthesisMetrics.TotalResults)
	}
	if pkg.SynthesisMetrics.TotalSources != 0 {
		t.Errorf("TotalSources = %d, sources outside the priority list should not count",
			pkg.SynthesisMetrics.TotalSources)
	}
	if pkg.SynthesisMetrics.AnswerType != types.AnswerEmpty {
		t.Errorf("AnswerType = %s, want EMPTY", pkg.SynthesisMetrics.AnswerType)
	}
}
