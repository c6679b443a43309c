// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/evidence-engine/internal/synthesis"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize",
	Short: "Synthesize per-source result bundles into one answer package",
	Long: `Synthesize loads a round file (query, frame intent, and per-source result
bundles saved as YAML), deduplicates overlapping records across sources,
extracts scored citations, computes quality metrics, and renders the final
answer with a checkpoint id.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		roundPath, _ := cmd.Flags().GetString("round")
		if roundPath == "" {
			return fmt.Errorf("--round is required: provide a saved round file")
		}

		rf, err := synthesis.LoadRoundFile(roundPath)
		if err != nil {
			return err
		}

		if q, _ := cmd.Flags().GetString("query"); q != "" {
			rf.Query = q
		}
		if intent, _ := cmd.Flags().GetString("intent"); intent != "" {
			rf.FrameIntent = intent
		}

		engine := synthesis.NewEngine(synthesisConfig(), buildLogger(cmd))
		pkg, err := engine.Synthesize(rf.Query, rf.FrameIntent, rf.Bundles)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return synthesis.FormatJSON(pkg, os.Stdout)
		}
		synthesis.FormatAnswer(pkg, os.Stdout)
		return nil
	},
}

// synthesisConfig builds the engine settings from viper, falling back
// to the engine defaults for unset keys.
func synthesisConfig() types.SynthesisConfig {
	cfg := types.SynthesisConfig{
		ExpectedSourceCount: viper.GetInt("synthesis.expected_source_count"),
		SourcePriority:      viper.GetStringSlice("synthesis.source_priority"),
		HighImpactVenues:    viper.GetStringSlice("synthesis.high_impact_venues"),
	}
	return cfg
}

// buildLogger returns a development zap logger when --verbose is set,
// otherwise a no-op logger.
func buildLogger(cmd *cobra.Command) *zap.Logger {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			return logger
		}
	}
	return zap.NewNop()
}

func init() {
	synthesizeCmd.Flags().String("round", "", "round file with query, intent, and bundles (YAML)")
	synthesizeCmd.Flags().String("query", "", "override the round file's query")
	synthesizeCmd.Flags().String("intent", "", "override the round file's frame intent")
	synthesizeCmd.Flags().Bool("json", false, "output the full synthesis package as JSON")
	synthesizeCmd.Flags().Bool("verbose", false, "log synthesis steps")

	rootCmd.AddCommand(synthesizeCmd)
}
