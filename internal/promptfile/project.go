package promptfile

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ParseAll walks root for *.prompt.md files, parses each, and validates the
// cross-prompt invariant from spec.md §3 that import paths must reference
// existing prompt files. Output-path disjointness across prompts is not
// checked here; dag.Build checks it.
func ParseAll(root string, mappingMode string, defaultLanguage string) ([]*Prompt, error) {
	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(p, PromptExtension) {
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking prompts root %s: %w", root, err)
	}
	sort.Strings(paths)

	prompts := make([]*Prompt, 0, len(paths))
	byPath := make(map[string]bool, len(paths))
	for _, rel := range paths {
		raw, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}
		p, err := Parse(rel, raw, mappingMode, defaultLanguage)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
		byPath[p.Path] = true
	}

	for _, p := range prompts {
		for _, imp := range p.Imports {
			if !byPath[imp] {
				return nil, fmt.Errorf("prompt %s declares import %q which does not exist", p.Path, imp)
			}
		}
	}

	// Output-path disjointness across prompts is also a Prompt invariant
	// (spec.md §3), but the DAG builder owns reporting it as
	// OutputConflict with a full claimant list (spec.md §4.3), so it is
	// not duplicated here.

	return prompts, nil
}
