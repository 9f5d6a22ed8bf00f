package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "lit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	var missing *ErrMissing
	assert.ErrorAs(t, err, &missing)
}

func TestLoad_Syntax(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "project: [this is not valid: yaml")
	_, err := Load(path)
	require.Error(t, err)
	var syn *ErrSyntax
	assert.ErrorAs(t, err, &syn)
}

func TestLoad_ValidationInvalidMapping(t *testing.T) {
	body := `
project:
  name: demo
  mapping: bogus
language:
  default: go
model:
  provider: openai
  model: gpt-4
  api:
    key_env: DEMO_KEY
`
	t.Setenv("DEMO_KEY", "x")
	path := writeConfig(t, t.TempDir(), body)
	_, err := Load(path)
	require.Error(t, err)
	var val *ErrValidation
	require.ErrorAs(t, err, &val)
	assert.Contains(t, val.Reason, "project.mapping")
}

func TestLoad_ValidationMissingEnvVar(t *testing.T) {
	body := `
project:
  name: demo
  mapping: direct
language:
  default: go
model:
  provider: openai
  model: gpt-4
  api:
    key_env: TOTALLY_UNSET_LIT_VAR
`
	os.Unsetenv("TOTALLY_UNSET_LIT_VAR")
	path := writeConfig(t, t.TempDir(), body)
	_, err := Load(path)
	require.Error(t, err)
	var val *ErrValidation
	require.ErrorAs(t, err, &val)
	assert.Contains(t, val.Reason, "TOTALLY_UNSET_LIT_VAR")
}

func TestLoad_Success(t *testing.T) {
	body := `
project:
  name: demo
  version: "1.0"
  mapping: manifest
language:
  default: python
  version: "3.12"
framework:
  name: fastapi
model:
  provider: anthropic
  model: claude-sonnet-4-5
  temperature: 0.2
  seed: 7
  api:
    key_env: DEMO_KEY2
  pricing:
    input_per_million: 3.0
    output_per_million: 15.0
`
	t.Setenv("DEMO_KEY2", "sk-test")
	path := writeConfig(t, t.TempDir(), body)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.Project.Name)
	assert.Equal(t, MappingManifest, cfg.Project.Mapping)
	assert.Equal(t, "python", cfg.Language.Default)
	assert.Equal(t, "fastapi", cfg.Framework.Name)
	assert.Equal(t, "sk-test", cfg.APIKey())
	require.NotNil(t, cfg.Model.Seed)
	assert.EqualValues(t, 7, *cfg.Model.Seed)
	require.NotNil(t, cfg.EffectivePricing())
	assert.Equal(t, 3.0, cfg.EffectivePricing().InputPerMillion)
}

func TestEffectiveBaseURL_DefaultsPerProvider(t *testing.T) {
	body := `
project:
  name: demo
  mapping: direct
language:
  default: go
model:
  provider: anthropic
  model: claude-sonnet-4-5
  api:
    key_env: DEMO_KEY4
`
	t.Setenv("DEMO_KEY4", "x")
	path := writeConfig(t, t.TempDir(), body)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.anthropic.com", cfg.EffectiveBaseURL())
}

func TestEffectiveBaseURL_ExplicitOverrideWins(t *testing.T) {
	body := `
project:
  name: demo
  mapping: direct
language:
  default: go
model:
  provider: openai
  model: gpt-4
  base_url: http://localhost:4000
  api:
    key_env: DEMO_KEY5
`
	t.Setenv("DEMO_KEY5", "x")
	path := writeConfig(t, t.TempDir(), body)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4000", cfg.EffectiveBaseURL())
}

func TestLoad_DoesNotCacheAcrossCalls(t *testing.T) {
	body := `
project:
  name: demo
  mapping: direct
language:
  default: go
model:
  provider: openai
  model: gpt-4
  api:
    key_env: DEMO_KEY3
`
	t.Setenv("DEMO_KEY3", "first")
	path := writeConfig(t, t.TempDir(), body)
	cfg1, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "first", cfg1.APIKey())

	t.Setenv("DEMO_KEY3", "second")
	cfg2, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "second", cfg2.APIKey())
}
