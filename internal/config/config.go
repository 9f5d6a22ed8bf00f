// Package config loads and validates the project configuration file at the
// repository root.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MappingMode is how a prompt's declared outputs are resolved.
type MappingMode string

const (
	MappingDirect   MappingMode = "direct"
	MappingManifest MappingMode = "manifest"
	MappingModular  MappingMode = "modular"
	MappingInferred MappingMode = "inferred"
)

func (m MappingMode) valid() bool {
	switch m {
	case MappingDirect, MappingManifest, MappingModular, MappingInferred:
		return true
	default:
		return false
	}
}

// Project holds the project.* keys.
type Project struct {
	Name    string      `yaml:"name"`
	Version string      `yaml:"version"`
	Mapping MappingMode `yaml:"mapping"`
}

// Language holds the language.* keys.
type Language struct {
	Default string `yaml:"default"`
	Version string `yaml:"version"`
}

// Framework holds the optional framework.* keys.
type Framework struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// Pricing holds an optional per-million-token pricing override.
type Pricing struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// ModelAPI holds the api.key_env key under model.
type ModelAPI struct {
	KeyEnv string `yaml:"key_env"`
}

// Model holds the model.* keys.
type Model struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"base_url"`
	Temperature float64  `yaml:"temperature"`
	Seed        *int64   `yaml:"seed"`
	API         ModelAPI `yaml:"api"`
	Pricing     *Pricing `yaml:"pricing"`
}

// Config is the parsed, validated project configuration.
type Config struct {
	Project   Project   `yaml:"project"`
	Language  Language  `yaml:"language"`
	Framework Framework `yaml:"framework"`
	Model     Model     `yaml:"model"`

	// path is the location the config was loaded from, kept for error messages.
	path string
}

// Error categories, per spec.md §4.1 / §7.
type (
	// ErrMissing is returned when the config file does not exist.
	ErrMissing struct{ Path string }
	// ErrSyntax is returned when the config file cannot be parsed as YAML.
	ErrSyntax struct {
		Path string
		Err  error
	}
	// ErrValidation is returned when the parsed config fails a semantic check.
	ErrValidation struct {
		Path   string
		Reason string
	}
)

func (e *ErrMissing) Error() string {
	return fmt.Sprintf("config: %s: not found (run 'lit init' to create one)", e.Path)
}

func (e *ErrSyntax) Error() string {
	return fmt.Sprintf("config: %s: malformed: %v", e.Path, e.Err)
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Path, e.Reason)
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	return &Config{
		Project: Project{
			Mapping: MappingDirect,
		},
		Model: Model{
			Temperature: 0,
		},
	}
}

// Load reads, parses, and validates the config file at path.
//
// It fails with *ErrMissing if the file does not exist, *ErrSyntax if the
// YAML cannot be decoded, and *ErrValidation if a required field is absent
// or out of range — including an unset API-key environment variable, whose
// value is read here but never stored on Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ErrMissing{Path: path}
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ErrSyntax{Path: path, Err: err}
	}
	cfg.path = path

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Project.Name == "" {
		return &ErrValidation{Path: c.path, Reason: "project.name is required"}
	}
	if !c.Project.Mapping.valid() {
		return &ErrValidation{Path: c.path, Reason: fmt.Sprintf(
			"project.mapping %q must be one of direct, manifest, modular, inferred", c.Project.Mapping)}
	}
	if c.Language.Default == "" {
		return &ErrValidation{Path: c.path, Reason: "language.default is required"}
	}
	if c.Model.Provider == "" {
		return &ErrValidation{Path: c.path, Reason: "model.provider is required"}
	}
	if c.Model.Model == "" {
		return &ErrValidation{Path: c.path, Reason: "model.model is required"}
	}
	if c.Model.API.KeyEnv == "" {
		return &ErrValidation{Path: c.path, Reason: "model.api.key_env is required"}
	}
	if _, ok := os.LookupEnv(c.Model.API.KeyEnv); !ok {
		return &ErrValidation{Path: c.path, Reason: fmt.Sprintf(
			"environment variable %s (named by model.api.key_env) is not set", c.Model.API.KeyEnv)}
	}
	return nil
}

// APIKey reads the API key from the environment variable named by
// model.api.key_env. It is read fresh on every call — never cached, never
// persisted.
func (c *Config) APIKey() string {
	return os.Getenv(c.Model.API.KeyEnv)
}

// EffectivePricing returns the config's pricing override, or nil if unset.
func (c *Config) EffectivePricing() *Pricing {
	return c.Model.Pricing
}

// defaultBaseURLs gives every supported backend a working endpoint when
// model.base_url is left unset, so a LiteLLM-style proxy is the only case
// that requires an explicit override.
var defaultBaseURLs = map[string]string{
	"openai":    "https://api.openai.com/v1",
	"anthropic": "https://api.anthropic.com",
}

// EffectiveBaseURL returns model.base_url, or the provider's default
// endpoint if unset.
func (c *Config) EffectiveBaseURL() string {
	if c.Model.BaseURL != "" {
		return c.Model.BaseURL
	}
	return defaultBaseURLs[c.Model.Provider]
}
