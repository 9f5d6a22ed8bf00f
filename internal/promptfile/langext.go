package promptfile

import "fmt"

// langExtensions is the language → canonical file extension table used by
// mapping=direct output synthesis (spec.md §4.2, §9 Open Questions: "an
// implementation should define this table explicitly ... and error on
// unrecognized languages rather than guess"). Extend this table, not the
// parser, when adding support for a new target language.
var langExtensions = map[string]string{
	"go":         ".go",
	"python":     ".py",
	"javascript": ".js",
	"typescript": ".ts",
	"rust":       ".rs",
	"java":       ".java",
	"ruby":       ".rb",
	"csharp":     ".cs",
}

// ExtensionFor returns the canonical file extension for a language name, or
// an error if the language is not in the table.
func ExtensionFor(language string) (string, error) {
	ext, ok := langExtensions[language]
	if !ok {
		return "", fmt.Errorf("no registered file extension for language %q", language)
	}
	return ext, nil
}
