package promptfile

import "regexp"

// importMarkerPattern matches @import(<relative-prompt-path>) inline markers
// in a prompt body, per spec.md §4.2. Unlike jack-phare-goat's
// pkg/prompt.ResolveImports (which inlines referenced file contents), lit
// only needs to *detect* markers for the declared-vs-referenced
// cross-check, so there is no recursive resolution or code-fence
// inlining step here.
var importMarkerPattern = regexp.MustCompile(`@import\(([^)]+)\)`)

// scanImportMarkers returns the set of paths referenced by @import(...)
// markers in body, in first-occurrence order, deduplicated.
func scanImportMarkers(body string) []string {
	matches := importMarkerPattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		p := NormalizePath(m[1])
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
