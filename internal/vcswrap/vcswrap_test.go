package vcswrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSignature() object.Signature {
	return object.Signature{Name: "lit-test", Email: "lit-test@example.com", When: time.Unix(0, 0)}
}

func TestInit_And_OpenOrDiscover(t *testing.T) {
	dir := t.TempDir()
	_, err := Init(dir)
	require.NoError(t, err)

	repo, err := OpenOrDiscover(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, repo.Root())
}

func TestOpenOrDiscover_NoRepository(t *testing.T) {
	_, err := OpenOrDiscover(t.TempDir())
	assert.ErrorIs(t, err, ErrNoRepository)
}

func TestStageCommitLog(t *testing.T) {
	dir := t.TempDir()
	repo, err := Init(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.prompt.md"), []byte("---\n---\nbody\n"), 0o644))
	require.NoError(t, repo.StageAll([]string{"a.prompt.md"}))

	changed, err := repo.HasChanges()
	require.NoError(t, err)
	assert.True(t, changed)

	id, err := repo.Commit("add prompt", testSignature())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	head, err := repo.HeadCommit()
	require.NoError(t, err)
	assert.Equal(t, id, head)

	log, err := repo.Log(10)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "add prompt", log[0].Message)
}

func TestCommit_EmptyChangeSetFails(t *testing.T) {
	dir := t.TempDir()
	repo, err := Init(dir)
	require.NoError(t, err)

	_, err = repo.Commit("nothing to see", testSignature())
	assert.ErrorIs(t, err, ErrEmptyChangeSet)
}

func TestStatus_CategorizesPromptsAndConfig(t *testing.T) {
	dir := t.TempDir()
	repo, err := Init(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.prompt.md"), []byte("body"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config"), []byte("project: {}"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src/a.go"), []byte("package a"), 0o644))

	entries, err := repo.Status("config")
	require.NoError(t, err)

	byPath := make(map[string]StatusCategory)
	for _, e := range entries {
		byPath[e.Path] = e.Category
	}
	assert.Equal(t, StatusPromptAdded, byPath["a.prompt.md"])
	assert.Equal(t, StatusConfigChanged, byPath["config"])
}

func TestCheckout(t *testing.T) {
	dir := t.TempDir()
	repo, err := Init(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.prompt.md"), []byte("v1"), 0o644))
	require.NoError(t, repo.StageAll([]string{"a.prompt.md"}))
	first, err := repo.Commit("first", testSignature())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.prompt.md"), []byte("v2"), 0o644))
	require.NoError(t, repo.StageAll([]string{"a.prompt.md"}))
	_, err = repo.Commit("second", testSignature())
	require.NoError(t, err)

	require.NoError(t, repo.Checkout(first))

	data, err := os.ReadFile(filepath.Join(dir, "a.prompt.md"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
}
