package promptfile

import (
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// PromptExtension is the required suffix for prompt files, per spec.md §6.
const PromptExtension = ".prompt.md"

// moduleDescriptor is the adjacent descriptor file consulted by
// mapping=modular, named "MODULE.yaml" in the same directory as the
// prompt. It maps a prompt's basename (without PromptExtension) to its
// declared outputs. spec.md §4.2 leaves the descriptor's exact shape
// unspecified beyond "an adjacent module descriptor in the same
// directory" — this is lit's concrete resolution of that detail.
type moduleDescriptor struct {
	Outputs map[string][]string `yaml:"outputs"`
}

const moduleDescriptorName = "MODULE.yaml"

// resolveOutputs synthesizes or validates a prompt's output list according
// to the project's mapping mode, per spec.md §4.2.
func resolveOutputs(mode string, promptPath string, declared []string, language string) ([]string, error) {
	switch mode {
	case "manifest":
		if len(declared) == 0 {
			return nil, fmt.Errorf("mapping=manifest requires non-empty 'outputs' in %s", promptPath)
		}
		return normalizeAll(declared), nil

	case "direct":
		ext, err := ExtensionFor(language)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", promptPath, err)
		}
		base := strings.TrimSuffix(promptPath, PromptExtension)
		synthesized := base + ext
		if len(declared) > 0 {
			want := normalizeAll(declared)
			if len(want) != 1 || want[0] != NormalizePath(synthesized) {
				return nil, fmt.Errorf(
					"mapping=direct: declared outputs %v in %s do not match synthesized output %q",
					want, promptPath, synthesized)
			}
		}
		return []string{NormalizePath(synthesized)}, nil

	case "modular":
		dir := path.Dir(promptPath)
		descPath := path.Join(dir, moduleDescriptorName)
		data, err := os.ReadFile(descPath)
		if err != nil {
			return nil, fmt.Errorf("mapping=modular: reading module descriptor %s for %s: %w", descPath, promptPath, err)
		}
		var desc moduleDescriptor
		if err := yaml.Unmarshal(data, &desc); err != nil {
			return nil, fmt.Errorf("mapping=modular: parsing %s: %w", descPath, err)
		}
		base := strings.TrimSuffix(path.Base(promptPath), PromptExtension)
		outs, ok := desc.Outputs[base]
		if !ok || len(outs) == 0 {
			return nil, fmt.Errorf("mapping=modular: %s has no entry for %q", descPath, base)
		}
		return normalizeAll(outs), nil

	case "inferred":
		return normalizeAll(declared), nil

	default:
		return nil, fmt.Errorf("unknown mapping mode %q", mode)
	}
}

func normalizeAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = NormalizePath(p)
	}
	return out
}
