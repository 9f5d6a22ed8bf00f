package vcswrap

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func requireGitBinary(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available on PATH")
	}
}

func TestDiff_DelegatesToHostGit(t *testing.T) {
	requireGitBinary(t)

	dir := t.TempDir()
	repo, err := Init(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.prompt.md"), []byte("v1\n"), 0o644))
	require.NoError(t, repo.StageAll([]string{"a.prompt.md"}))
	_, err = repo.Commit("first", testSignature())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.prompt.md"), []byte("v2\n"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := repo.Diff(ctx, "a.prompt.md")
	require.NoError(t, err)
	require.Contains(t, out, "v2")
}
