// Package promptfile parses prompt files: splitting frontmatter from body,
// validating declared outputs per mapping mode, and extracting inline
// import markers, per spec.md §4.2.
package promptfile

import (
	"fmt"
)

// ModelOverride is a per-prompt override of the project's model config.
// There is no Provider field: a run drives every prompt through a single
// provider, so a frontmatter provider override is rejected at Parse time
// instead of being silently ignored downstream.
type ModelOverride struct {
	Model       string
	Temperature *float64
	Seed        *int64
}

// ErrProviderOverrideUnsupported is returned by Parse when a prompt's
// frontmatter sets model.provider. One run uses one provider for every
// prompt; per spec.md §3 that field is parsed for detection only.
type ErrProviderOverrideUnsupported struct {
	Path     string
	Provider string
}

func (e *ErrProviderOverrideUnsupported) Error() string {
	return fmt.Sprintf("%s: model.provider %q cannot be overridden per prompt; a run drives every prompt through one provider", e.Path, e.Provider)
}

// Prompt is a parsed prompt file, per spec.md §3.
type Prompt struct {
	// Path is the canonical, normalized path to the prompt file, relative
	// to the root passed to ParseAll (the prompts tree), not to the
	// repository root.
	Path string
	// Raw is the full raw bytes of the prompt file, used for hashing.
	Raw []byte
	// Body is the bytes after the second frontmatter delimiter.
	Body []byte

	// Outputs is the ordered, validated, normalized list of output paths.
	Outputs []string
	// Imports is the ordered, normalized list of declared import paths.
	Imports []string
	// Model is an optional per-prompt model override.
	Model *ModelOverride
	// Language is an optional per-prompt language override.
	Language string

	// Warnings holds non-fatal issues found during parsing (spec.md §4.2:
	// unknown frontmatter fields, import markers absent from the declared
	// imports list).
	Warnings []string
}

// Parse parses raw prompt bytes at path under the given project mapping
// mode and default language, per spec.md §4.2's contract
// parse(path, raw_bytes, config) -> Prompt | Error.
func Parse(path string, raw []byte, mappingMode string, defaultLanguage string) (*Prompt, error) {
	normPath := NormalizePath(path)

	fm, body, warnings, err := parseFrontmatter(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", normPath, err)
	}

	language := defaultLanguage
	if fm.Language != "" {
		language = fm.Language
	}

	outputs, err := resolveOutputs(mappingMode, normPath, []string(fm.Outputs), language)
	if err != nil {
		return nil, err
	}

	imports := normalizeAll([]string(fm.Imports))

	var model *ModelOverride
	if fm.Model != nil {
		if fm.Model.Provider != "" {
			return nil, &ErrProviderOverrideUnsupported{Path: normPath, Provider: fm.Model.Provider}
		}
		model = &ModelOverride{
			Model:       fm.Model.Model,
			Temperature: fm.Model.Temperature,
			Seed:        fm.Model.Seed,
		}
	}

	markers := scanImportMarkers(string(body))
	declaredSet := make(map[string]bool, len(imports))
	for _, p := range imports {
		declaredSet[p] = true
	}
	for _, m := range markers {
		if !declaredSet[m] {
			warnings = append(warnings, fmt.Sprintf(
				"@import(%s) marker not present in declared imports", m))
		}
	}

	return &Prompt{
		Path:     normPath,
		Raw:      raw,
		Body:     body,
		Outputs:  outputs,
		Imports:  imports,
		Model:    model,
		Language: language,
		Warnings: warnings,
	}, nil
}
