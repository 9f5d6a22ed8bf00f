package hashcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_Deterministic(t *testing.T) {
	model := ModelConfig{Provider: "openai", Model: "gpt-4", Temperature: 0.2}
	h1 := Compute([]byte("prompt body"), nil, model, "go", "cobra")
	h2 := Compute([]byte("prompt body"), nil, model, "go", "cobra")
	assert.Equal(t, h1, h2)
}

func TestCompute_PromptByteChangeChangesHash(t *testing.T) {
	model := ModelConfig{Provider: "openai", Model: "gpt-4"}
	h1 := Compute([]byte("prompt body"), nil, model, "go", "")
	h2 := Compute([]byte("prompt bodx"), nil, model, "go", "")
	assert.NotEqual(t, h1, h2)
}

func TestCompute_ImportHashCascades(t *testing.T) {
	model := ModelConfig{Provider: "openai", Model: "gpt-4"}
	before := []ImportHash{{Path: "a.prompt.md", Hash: "aaa"}}
	after := []ImportHash{{Path: "a.prompt.md", Hash: "bbb"}}

	h1 := Compute([]byte("body"), before, model, "go", "")
	h2 := Compute([]byte("body"), after, model, "go", "")
	assert.NotEqual(t, h1, h2, "changing an upstream hash must change the downstream hash")
}

func TestCompute_ImportOrderIndependent(t *testing.T) {
	model := ModelConfig{Provider: "openai", Model: "gpt-4"}
	a := []ImportHash{{Path: "z.prompt.md", Hash: "zzz"}, {Path: "a.prompt.md", Hash: "aaa"}}
	b := []ImportHash{{Path: "a.prompt.md", Hash: "aaa"}, {Path: "z.prompt.md", Hash: "zzz"}}

	assert.Equal(t, Compute([]byte("body"), a, model, "go", ""), Compute([]byte("body"), b, model, "go", ""))
}

func TestCompute_ModelChangeChangesHash(t *testing.T) {
	base := ModelConfig{Provider: "openai", Model: "gpt-4", Temperature: 0.2}
	seeded := base
	seed := int64(42)
	seeded.Seed = &seed

	h1 := Compute([]byte("body"), nil, base, "go", "")
	h2 := Compute([]byte("body"), nil, seeded, "go", "")
	assert.NotEqual(t, h1, h2)
}

func TestCompute_NoChangePreservesHash(t *testing.T) {
	model := ModelConfig{Provider: "anthropic", Model: "claude", Temperature: 1}
	imports := []ImportHash{{Path: "a.prompt.md", Hash: "hashA"}, {Path: "b.prompt.md", Hash: "hashB"}}

	h1 := Compute([]byte("stable body"), imports, model, "python", "django")
	h2 := Compute([]byte("stable body"), imports, model, "python", "django")
	assert.Equal(t, h1, h2)
}
