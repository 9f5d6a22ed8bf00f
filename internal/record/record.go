// Package record persists generation-run metadata as versioned,
// timestamped JSON files, per spec.md §4.9. Reads and atomic writes
// follow the same json.MarshalIndent + write-temp-then-rename shape as
// jack-phare-goat's session metadata writer.
package record

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/clintonboys/lit/internal/hashcache"
)

// SchemaVersion is the current major schema version. Readers reject
// records with an unknown major, per spec.md §6.
const SchemaVersion = 1

// PromptOutcome is one prompt's contribution to a run.
type PromptOutcome struct {
	Path        string   `json:"path"`
	Imports     []string `json:"imports,omitempty"`
	CacheHit    bool     `json:"cache_hit"`
	InputHash   string   `json:"input_hash"`
	OutputPaths []string `json:"output_paths"`
	Model       string   `json:"model,omitempty"`
	TokensIn    int      `json:"tokens_in,omitempty"`
	TokensOut   int      `json:"tokens_out,omitempty"`
	CostUSD     float64  `json:"cost_usd,omitempty"`
	DurationMS  int64    `json:"duration_ms"`
	Conflicted  []string `json:"conflicted,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// DAGNodeSnapshot is one prompt's place in the import graph at the time a
// run committed, preserved so a generation record remains a self-contained
// account of the project's shape even after prompts are later edited or
// removed.
type DAGNodeSnapshot struct {
	Path    string   `json:"path"`
	Imports []string `json:"imports,omitempty"`
	Outputs []string `json:"outputs,omitempty"`
}

// Record is the top-level payload for one pipeline run.
type Record struct {
	SchemaVersion int                   `json:"schema_version"`
	Timestamp     time.Time             `json:"timestamp"`
	ProjectName   string                `json:"project_name"`
	Model         hashcache.ModelConfig `json:"model"`
	DAGSnapshot   []DAGNodeSnapshot     `json:"dag_snapshot"`
	Prompts       []PromptOutcome       `json:"prompts"`
	TotalCostUSD  float64               `json:"total_cost_usd"`
}

// ErrUnsupportedSchema is returned by Read when a record's schema_version
// major does not match SchemaVersion.
type ErrUnsupportedSchema struct {
	Path  string
	Found int
}

func (e *ErrUnsupportedSchema) Error() string {
	return fmt.Sprintf("record: %s has unsupported schema_version %d (this build reads %d)", e.Path, e.Found, SchemaVersion)
}

// FileName returns the canonical filename for a record written at ts,
// per spec.md §6: "YYYYMMDD-HHMMSS.json".
func FileName(ts time.Time) string {
	return ts.Format("20060102-150405") + ".json"
}

// Write atomically persists rec under dir using its timestamp-derived
// filename.
func Write(dir string, rec *Record) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("record: creating %s: %w", dir, err)
	}
	if rec.SchemaVersion == 0 {
		rec.SchemaVersion = SchemaVersion
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("record: encoding: %w", err)
	}

	dest := filepath.Join(dir, FileName(rec.Timestamp))
	tmp, err := os.CreateTemp(dir, "record-*.tmp")
	if err != nil {
		return "", fmt.Errorf("record: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("record: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("record: closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return "", fmt.Errorf("record: committing %s: %w", dest, err)
	}
	return dest, nil
}

// Read loads and validates the record at path.
func Read(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("record: reading %s: %w", path, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("record: decoding %s: %w", path, err)
	}
	if rec.SchemaVersion != SchemaVersion {
		return nil, &ErrUnsupportedSchema{Path: path, Found: rec.SchemaVersion}
	}
	return &rec, nil
}

// List returns every readable record under dir in filename order
// (chronological, since filenames are timestamp-derived), skipping any
// malformed file with a warning rather than failing the whole listing.
func List(dir string) (records []*Record, paths []string, warnings []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil, nil
		}
		return nil, nil, nil, fmt.Errorf("record: listing %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		rec, err := Read(path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping %s: %v", name, err))
			continue
		}
		records = append(records, rec)
		paths = append(paths, path)
	}
	return records, paths, warnings, nil
}

// Latest returns the most recent readable record under dir, or nil if
// there are none.
func Latest(dir string) (*Record, error) {
	records, _, _, err := List(dir)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[len(records)-1], nil
}
