package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// withWorkingDirFlag scopes repoDir to dir for the duration of one command
// invocation, restoring the prior value afterward; commands read the
// repository root through workingDir(), which consults this package-level
// flag variable set by cobra's -C/--dir.
func withWorkingDirFlag(t *testing.T, dir string, fn func()) {
	t.Helper()
	prev := repoDir
	repoDir = dir
	defer func() { repoDir = prev }()
	fn()
}

// fakeChatServer answers the OpenAI chat-completions wire format with a
// single generated file, letting regenerate run end-to-end without a real
// provider.
func fakeChatServer(t *testing.T, fileBody string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": fileBody}},
			},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 34},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func writeLitYAML(t *testing.T, dir, baseURL string) {
	t.Helper()
	body := fmt.Sprintf(`project:
  name: demo
  version: "0.1.0"
  mapping: direct
language:
  default: go
model:
  provider: openai
  model: test-model
  base_url: %s
  temperature: 0
  api:
    key_env: LIT_TEST_API_KEY
`, baseURL)
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(body), 0o644))
}

func TestCLI_InitAddCommitRegenerateEndToEnd(t *testing.T) {
	t.Setenv("LIT_TEST_API_KEY", "test-key")
	dir := t.TempDir()

	withWorkingDirFlag(t, dir, func() {
		require.NoError(t, runInit(dir, true))
	})

	srv := fakeChatServer(t, "=== FILE: greeting.go ===\npackage demo\n\nfunc Greeting() string { return \"hi\" }\n")
	defer srv.Close()
	writeLitYAML(t, dir, srv.URL)

	promptPath := filepath.Join(dir, promptsDirName, "greeting.prompt.md")
	promptBody := `---
outputs:
  - greeting.go
---
Write a Go function that returns a greeting.
`
	require.NoError(t, os.WriteFile(promptPath, []byte(promptBody), 0o644))

	require.NoError(t, runAdd(dir, "."))
	require.NoError(t, runCommit(dir, "seed project"))

	require.NoError(t, runRegenerate(dir, "greeting.prompt.md", false, false, false))

	out, err := os.ReadFile(filepath.Join(dir, "greeting.go"))
	require.NoError(t, err)
	require.Contains(t, string(out), "func Greeting()")

	genDir := filepath.Join(dir, metadataDirName, "generations")
	entries, err := os.ReadDir(genDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestCLI_RegenerateSecondRunHitsCacheWithoutHittingServer(t *testing.T) {
	t.Setenv("LIT_TEST_API_KEY", "test-key")
	dir := t.TempDir()

	withWorkingDirFlag(t, dir, func() {
		require.NoError(t, runInit(dir, true))
	})

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "=== FILE: out.go ===\npackage demo\n"}},
			},
			"usage": map[string]int{"prompt_tokens": 1, "completion_tokens": 1},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()
	writeLitYAML(t, dir, srv.URL)

	promptPath := filepath.Join(dir, promptsDirName, "out.prompt.md")
	promptBody := "---\noutputs:\n  - out.go\n---\nEmit a trivial Go file.\n"
	require.NoError(t, os.WriteFile(promptPath, []byte(promptBody), 0o644))

	require.NoError(t, runRegenerate(dir, "out.prompt.md", false, false, false))
	require.Equal(t, 1, calls)

	require.NoError(t, runRegenerate(dir, "out.prompt.md", false, false, false))
	require.Equal(t, 1, calls, "second run with an unchanged prompt should hit the cache, not the provider")
}

func TestCLI_PatchSaveListShow(t *testing.T) {
	t.Setenv("LIT_TEST_API_KEY", "test-key")
	dir := t.TempDir()

	withWorkingDirFlag(t, dir, func() {
		require.NoError(t, runInit(dir, true))
	})

	srv := fakeChatServer(t, "=== FILE: lib.go ===\npackage demo\n\nfunc Lib() int { return 1 }\n")
	defer srv.Close()
	writeLitYAML(t, dir, srv.URL)

	promptPath := filepath.Join(dir, promptsDirName, "lib.prompt.md")
	promptBody := "---\noutputs:\n  - lib.go\n---\nWrite a trivial Go function.\n"
	require.NoError(t, os.WriteFile(promptPath, []byte(promptBody), 0o644))

	require.NoError(t, runRegenerate(dir, "lib.prompt.md", false, false, false))

	// Hand-edit the generated file out-of-band, then save it as a patch.
	editedPath := filepath.Join(dir, "lib.go")
	edited := []byte("package demo\n\nfunc Lib() int { return 2 } // hand patched\n")
	require.NoError(t, os.WriteFile(editedPath, edited, 0o644))

	require.NoError(t, runPatchSave(dir, "lib.go"))
	require.NoError(t, runPatchList(dir))
	require.NoError(t, runPatchShow(dir, "lib.go"))

	st, err := loadProject(dir)
	require.NoError(t, err)
	require.True(t, st.Patches.Has("lib.go"))
}
