// Package hashcache computes cascading input hashes for prompts and
// persists/retrieves per-prompt generation artifacts keyed by that hash,
// per spec.md §4.4.
package hashcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// domainTag versions the hash function itself; bump it whenever the
// fields folded into the digest change, so old cache entries are never
// misread as matching a new hash shape.
const domainTag = "cache-v1"

// ModelConfig is the subset of model configuration that participates in
// the input hash, per spec.md §3/§4.4.
type ModelConfig struct {
	Provider    string
	Model       string
	Temperature float64
	Seed        *int64
}

func (m ModelConfig) canonical() string {
	seed := "nil"
	if m.Seed != nil {
		seed = fmt.Sprintf("%d", *m.Seed)
	}
	return fmt.Sprintf("%s|%s|%g|%s", m.Provider, m.Model, m.Temperature, seed)
}

// ImportHash pairs an import's normalized path with its own input hash, so
// that the cascade in Compute can fold in already-computed upstream
// hashes without recomputing them.
type ImportHash struct {
	Path string
	Hash string
}

// Compute returns the stable content digest over, in the fixed order
// specified by spec.md §3/§4.4: the version tag, the prompt's raw bytes,
// the sorted sequence of (import path, import hash) pairs, the canonical
// model config, and the language/framework strings.
//
// Changing any byte of promptRaw, any upstream hash, or any of the model/
// language/framework inputs changes the result; holding all of them fixed
// reproduces the same digest bit-for-bit (spec.md §8, Hash cascade and
// the input-hash round-trip law).
func Compute(promptRaw []byte, imports []ImportHash, model ModelConfig, language, framework string) string {
	sorted := append([]ImportHash(nil), imports...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0}) // field separator, prevents adjacent-field ambiguity
	}

	write(domainTag)
	h.Write(promptRaw)
	h.Write([]byte{0})
	for _, imp := range sorted {
		write(imp.Path)
		write(imp.Hash)
	}
	write(model.canonical())
	write(language)
	write(framework)

	return hex.EncodeToString(h.Sum(nil))
}
