// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesis

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// RoundFile is the on-disk representation of one orchestration round's
// inputs: the query, its frame intent, and the per-source bundles. The
// CLI loads these from fixture files since the real data-source clients
// live outside this core.
type RoundFile struct {
	Query       string                        `yaml:"query"`
	FrameIntent string                        `yaml:"frame_intent"`
	Bundles     map[string]types.SourceBundle `yaml:"bundles"`
}

// LoadRoundFile reads and parses a round YAML file. Bundles whose
// source_name field is empty inherit their map key.
func LoadRoundFile(path string) (*RoundFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading round file: %w", err)
	}

	var rf RoundFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing round file: %w", err)
	}

	for name, b := range rf.Bundles {
		if b.SourceName == "" {
			b.SourceName = name
			rf.Bundles[name] = b
		}
	}
	return &rf, nil
}

// WriteRoundFile saves a round's inputs to a YAML file.
func WriteRoundFile(path string, rf *RoundFile) error {
	data, err := yaml.Marshal(rf)
	if err != nil {
		return fmt.Errorf("serializing round file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing round file: %w", err)
	}
	return nil
}
