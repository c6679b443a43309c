// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesis

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// renderAnswer produces the deterministic template-based answer text
// (R7). Richer generation is a pluggable extension consuming the same
// package, not part of the engine.
func (e *Engine) renderAnswer(query string, answerType types.AnswerType, totalResults, citationCount int, bundles map[string]types.SourceBundle) string {
	if answerType == types.AnswerEmpty {
		return renderEmptyAnswer(query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Research Summary\n\n")
	fmt.Fprintf(&b, "Query: %s\n", query)
	fmt.Fprintf(&b, "Generated: %s\n", e.now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Completeness: %s\n\n", answerType)

	sourcesWithData := 0
	for _, src := range e.cfg.SourcePriority {
		if len(bundles[src].Results) > 0 {
			sourcesWithData++
		}
	}
	fmt.Fprintf(&b, "Found %d results across %d sources:\n", totalResults, sourcesWithData)
	for _, src := range e.cfg.SourcePriority {
		n := len(bundles[src].Results)
		if n == 0 {
			continue
		}
		fmt.Fprintf(&b, "  - %s: %d results\n", src, n)
	}

	fmt.Fprintf(&b, "\nCitations available: %d\n", citationCount)
	return b.String()
}

// renderEmptyAnswer is the fixed no-results message with generic
// suggestions.
func renderEmptyAnswer(query string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "No results were found for: %s\n\n", query)
	b.WriteString("Suggestions:\n")
	b.WriteString("  - Broaden the search terms\n")
	b.WriteString("  - Remove restrictive filters\n")
	b.WriteString("  - Try related terminology\n")
	return b.String()
}

// FormatAnswer writes a human-readable rendition of the package to w:
// the answer text followed by the citation list in relevance order.
func FormatAnswer(pkg types.SynthesisPackage, w io.Writer) {
	fmt.Fprint(w, pkg.Answer)

	if len(pkg.Citations) > 0 {
		fmt.Fprintf(w, "\nReferences:\n")
		for _, c := range pkg.Citations {
			fmt.Fprintf(w, "  [%d] %s", c.ID, formatCitation(c))
		}
	}

	fmt.Fprintf(w, "\nCheckpoint: %s\n", pkg.CheckpointID)
	fmt.Fprintf(w, "Quality: %.2f (completeness %.2f, recency %.2f)\n",
		pkg.QualityMetrics.OverallScore,
		pkg.QualityMetrics.Completeness,
		pkg.QualityMetrics.Recency)
}

// formatCitation renders one citation as a single reference line.
func formatCitation(c types.Citation) string {
	var b strings.Builder
	if len(c.Authors) > 0 {
		b.WriteString(strings.Join(c.Authors, ", "))
		b.WriteString(". ")
	}
	if c.Title != "" {
		b.WriteString(c.Title)
		b.WriteString(".")
	}
	switch {
	case c.Journal != "":
		fmt.Fprintf(&b, " %s.", c.Journal)
	case c.Registry != "":
		fmt.Fprintf(&b, " %s.", c.Registry)
	}
	if c.Year != 0 {
		fmt.Fprintf(&b, " %d.", c.Year)
	}
	fmt.Fprintf(&b, " (%s, score %.2f)\n", c.Source, c.RelevanceScore)
	return b.String()
}

// FormatJSON writes the package as indented JSON to w.
func FormatJSON(pkg types.SynthesisPackage, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(pkg)
}
