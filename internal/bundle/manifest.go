package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ManifestName is the file written at the bundle root after a successful
// materialization.
const ManifestName = "packz-manifest.json"

// Manifest records what went into a bundle so deployment targets can verify
// it without re-tracing.
type Manifest struct {
	RunID       string           `json:"run_id,omitempty"`
	Interpreter string           `json:"interpreter,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
	TotalSize   int64            `json:"total_size"`
	UnitTotals  map[string]int64 `json:"unit_totals,omitempty"`
	Entries     []Entry          `json:"entries"`
}

// WriteManifest serializes the manifest into the bundle root.
func WriteManifest(m Manifest, outputRoot string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	path := filepath.Join(outputRoot, ManifestName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
