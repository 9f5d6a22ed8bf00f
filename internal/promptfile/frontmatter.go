package promptfile

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontmatterData is the YAML shape of a prompt's frontmatter block, per
// spec.md §6.
type frontmatterData struct {
	Outputs  flexStringList  `yaml:"outputs"`
	Imports  flexStringList  `yaml:"imports"`
	Model    *modelOverride  `yaml:"model"`
	Language string          `yaml:"language"`
}

type modelOverride struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	Seed        *int64   `yaml:"seed"`
}

// flexStringList decodes YAML that may be a single scalar or a sequence,
// the way jack-phare-goat's subagent frontmatter decodes "tools".
type flexStringList []string

func (f *flexStringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*f = list
		return nil
	case yaml.ScalarNode:
		if value.Value == "" {
			*f = nil
			return nil
		}
		*f = []string{value.Value}
		return nil
	case 0:
		*f = nil
		return nil
	default:
		return fmt.Errorf("expected string or list, got YAML kind %d", value.Kind)
	}
}

var knownFrontmatterKeys = map[string]bool{
	"outputs":  true,
	"imports":  true,
	"model":    true,
	"language": true,
}

var typoSuggestions = map[string]string{
	"output":  "outputs",
	"import":  "imports",
	"lang":    "language",
	"lanuage": "language",
}

func detectUnknownFields(yamlPart []byte) []string {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(yamlPart, &raw); err != nil {
		return nil
	}
	var warnings []string
	for key := range raw {
		if !knownFrontmatterKeys[key] {
			msg := fmt.Sprintf("unknown frontmatter field %q", key)
			if suggestion, ok := typoSuggestions[strings.ToLower(key)]; ok {
				msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
			}
			warnings = append(warnings, msg)
		}
	}
	return warnings
}

// frontmatterDelimiter is the literal line that opens and closes the
// frontmatter block, per spec.md §6.
const frontmatterDelimiter = "---"

// splitFrontmatter splits raw prompt bytes on the first two lines equal to
// the literal frontmatter delimiter, per spec.md §4.2. It returns the YAML
// bytes between the delimiters and the body bytes after the second
// delimiter.
func splitFrontmatter(raw []byte) (yamlPart, body []byte, err error) {
	content := string(raw)
	lines := strings.Split(content, "\n")

	if len(lines) == 0 || strings.TrimRight(lines[0], "\r") != frontmatterDelimiter {
		return nil, nil, fmt.Errorf("missing opening frontmatter delimiter %q", frontmatterDelimiter)
	}

	closeIdx := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r") == frontmatterDelimiter {
			closeIdx = i
			break
		}
	}
	if closeIdx < 0 {
		return nil, nil, fmt.Errorf("missing closing frontmatter delimiter %q", frontmatterDelimiter)
	}

	yamlPart = []byte(strings.Join(lines[1:closeIdx], "\n"))
	body = []byte(strings.Join(lines[closeIdx+1:], "\n"))
	return yamlPart, body, nil
}

func parseFrontmatter(raw []byte) (*frontmatterData, []byte, []string, error) {
	yamlPart, body, err := splitFrontmatter(raw)
	if err != nil {
		return nil, nil, nil, err
	}

	warnings := detectUnknownFields(yamlPart)

	var fm frontmatterData
	if len(strings.TrimSpace(string(yamlPart))) > 0 {
		if err := yaml.Unmarshal(yamlPart, &fm); err != nil {
			return nil, nil, warnings, fmt.Errorf("parsing frontmatter YAML: %w", err)
		}
	}
	return &fm, body, warnings, nil
}
