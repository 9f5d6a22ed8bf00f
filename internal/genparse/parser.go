// Package genparse extracts generated files from free-form LLM text, per
// spec.md §4.6: text is partitioned on "=== FILE: <path> ===" delimiter
// lines, fenced code blocks are unwrapped, and in manifest mode sections
// are reconciled against a prompt's declared outputs.
package genparse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/clintonboys/lit/internal/promptfile"
)

var fileDelimiter = regexp.MustCompile(`(?m)^=== FILE: (.+?) ===\s*$`)

// Section is one extracted file before output-path reconciliation.
type Section struct {
	Path    string
	Content string
}

// EmptyResponseError reports a response with no file sections.
type EmptyResponseError struct{}

func (EmptyResponseError) Error() string {
	return "genparse: response contained no file sections"
}

// OutputMismatchError reports a manifest-mode response whose section
// paths could not be reconciled with the prompt's declared outputs.
type OutputMismatchError struct {
	Declared []string
	Got      []string
}

func (e *OutputMismatchError) Error() string {
	return fmt.Sprintf("genparse: response paths %v do not match declared outputs %v", e.Got, e.Declared)
}

// partition splits text into delimited sections, discarding anything
// before the first delimiter, and strips a leading/trailing triple-
// backtick fence from each section's body if present.
func partition(text string) []Section {
	locs := fileDelimiter.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	var sections []Section
	for i, loc := range locs {
		pathStart, pathEnd := loc[2], loc[3]
		bodyStart := loc[1]
		bodyEnd := len(text)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		path := promptfile.NormalizePath(strings.TrimSpace(text[pathStart:pathEnd]))
		body := stripFence(text[bodyStart:bodyEnd])
		sections = append(sections, Section{Path: path, Content: body})
	}
	return sections
}

// stripFence removes one leading and trailing triple-backtick fence line
// (with optional language tag) if the section's body is wrapped in one,
// leaving any internal fences untouched.
func stripFence(body string) string {
	body = strings.Trim(body, "\n")
	if body == "" {
		return body
	}
	lines := strings.Split(body, "\n")
	if len(lines) >= 2 &&
		strings.HasPrefix(strings.TrimSpace(lines[0]), "```") &&
		strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[1 : len(lines)-1]
	}
	return strings.Join(lines, "\n") + "\n"
}

// ParseManifest reconciles sections against declaredOutputs (the
// prompt's manifest-mode outputs), per spec.md §4.6 rule 4: exact path
// match wins; otherwise, if the section count equals the declared
// output count, remap positionally in declared order and warn.
func ParseManifest(text string, declaredOutputs []string) (map[string]string, []string, error) {
	sections := partition(text)
	if len(sections) == 0 {
		return nil, nil, EmptyResponseError{}
	}

	declared := make(map[string]bool, len(declaredOutputs))
	for _, d := range declaredOutputs {
		declared[d] = true
	}

	exactAll := true
	for _, s := range sections {
		if !declared[s.Path] {
			exactAll = false
			break
		}
	}

	files := make(map[string]string, len(sections))
	var warnings []string

	if exactAll {
		for _, s := range sections {
			files[s.Path] = s.Content
		}
		return files, warnings, nil
	}

	if len(sections) == len(declaredOutputs) {
		for i, s := range sections {
			target := declaredOutputs[i]
			if s.Path != target {
				warnings = append(warnings, fmt.Sprintf("remapped section %q to declared output %q positionally", s.Path, target))
			}
			files[target] = s.Content
		}
		return files, warnings, nil
	}

	got := make([]string, 0, len(sections))
	for _, s := range sections {
		got = append(got, s.Path)
	}
	return nil, nil, &OutputMismatchError{Declared: declaredOutputs, Got: got}
}

// ParseInferred accepts the parser's own paths as the final outputs, per
// spec.md §4.6 rule 5.
func ParseInferred(text string) (map[string]string, error) {
	sections := partition(text)
	if len(sections) == 0 {
		return nil, EmptyResponseError{}
	}
	files := make(map[string]string, len(sections))
	for _, s := range sections {
		files[s.Path] = s.Content
	}
	return files, nil
}
