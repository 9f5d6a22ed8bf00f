package patch

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Record is one path's patch: the baseline the cache last produced, the
// user's edited bytes, and a unified diff between them for display.
type Record struct {
	Path       string `json:"path"`
	Baseline   string `json:"baseline"`
	Edited     string `json:"edited"`
	UnifiedDiff string `json:"unified_diff"`
	Conflicted bool   `json:"conflicted,omitempty"`
}

// ErrUnreadablePatch reports a patch file that could not be decoded; per
// spec.md §7, this is a warn-and-skip condition, never fatal.
type ErrUnreadablePatch struct {
	Path string
	Err  error
}

func (e *ErrUnreadablePatch) Error() string {
	return fmt.Sprintf("patch: unreadable patch file %s: %v", e.Path, e.Err)
}

func (e *ErrUnreadablePatch) Unwrap() error { return e.Err }

// Store is rooted at a directory of committed .patch files, one per
// output path (with the path's separators flattened into the filename),
// per spec.md §4.8/§6.
type Store struct {
	root string
}

// NewStore returns a Store rooted at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("patch: creating patch root: %w", err)
	}
	return &Store{root: dir}, nil
}

func (s *Store) fileFor(outputPath string) string {
	flat := filepath.ToSlash(outputPath)
	for i := 0; i < len(flat); i++ {
		if flat[i] == '/' {
			flat = flat[:i] + "__" + flat[i+1:]
		}
	}
	return filepath.Join(s.root, flat+".patch")
}

// Detect compares expected (the cache's last-known output for path)
// against actual (the current on-disk bytes); any divergence means the
// user has edited the file out-of-band and a patch candidate exists.
func Detect(expected, actual string) bool {
	return expected != actual
}

// Save materializes a patch record for path: baseline is the cache's
// last-known output, edited is the current on-disk bytes.
func (s *Store) Save(path, baseline, edited string) error {
	rec := &Record{
		Path:        path,
		Baseline:    baseline,
		Edited:      edited,
		UnifiedDiff: unifiedDiff(path, baseline, edited),
	}
	return s.write(rec)
}

// Has reports whether a patch record exists for path.
func (s *Store) Has(path string) bool {
	_, err := os.Stat(s.fileFor(path))
	return err == nil
}

// Load reads the patch record for path. Returns os.ErrNotExist wrapped
// if absent, or *ErrUnreadablePatch if the file is malformed.
func (s *Store) Load(path string) (*Record, error) {
	data, err := os.ReadFile(s.fileFor(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, &ErrUnreadablePatch{Path: path, Err: err}
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &ErrUnreadablePatch{Path: path, Err: err}
	}
	return &rec, nil
}

// List returns every readable patch record rooted at the store, skipping
// (and reporting) any malformed file rather than failing outright.
func (s *Store) List() (records []*Record, warnings []string, err error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, nil, fmt.Errorf("patch: listing %s: %w", s.root, err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".patch" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.root, e.Name()))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping %s: %v", e.Name(), err))
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping %s: %v", e.Name(), err))
			continue
		}
		records = append(records, &rec)
	}
	return records, warnings, nil
}

// Drop removes the patch record for path, if any.
func (s *Store) Drop(path string) error {
	err := os.Remove(s.fileFor(path))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("patch: dropping %s: %w", path, err)
	}
	return nil
}

// RefreshBaseline rewrites the record for path with a new baseline
// (the pipeline passes the newly generated output) after a clean apply, per
// spec.md §4.7 step 5.
func (s *Store) RefreshBaseline(path, newBaseline string, conflicted bool) error {
	rec, err := s.Load(path)
	if err != nil {
		return err
	}
	rec.Baseline = newBaseline
	rec.Conflicted = conflicted
	return s.write(rec)
}

func (s *Store) write(rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("patch: encoding record for %s: %w", rec.Path, err)
	}

	dest := s.fileFor(rec.Path)
	tmp, err := os.CreateTemp(s.root, "patch-*.tmp")
	if err != nil {
		return fmt.Errorf("patch: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("patch: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("patch: closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("patch: committing record for %s: %w", rec.Path, err)
	}
	return nil
}

// unifiedDiff renders the change from a to b as a single-hunk unified
// diff with full context.
func unifiedDiff(path, a, b string) string {
	dmp := diffmatchpatch.New()
	ca, cb, lineArray := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffMain(ca, cb, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)
	out := fmt.Sprintf("--- a/%s\n+++ b/%s\n@@ -1,%d +1,%d @@\n", path, path, len(splitLines(a)), len(splitLines(b)))
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range splitLines(d.Text) {
			out += prefix + line + "\n"
		}
	}
	return out
}
