package vcswrap

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// runGit executes the host git binary in dir, capturing stdout/stderr
// the same way this codebase's subprocess-hook pattern does: via
// CommandContext with buffers rather than inherited file descriptors.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("vcswrap: git %v: %w: %s", args, err, stderr.String())
	}
	return stdout.String(), nil
}

// Push delegates to the host git binary, avoiding a reimplementation of
// git's credential and transport negotiation.
func (r *Repo) Push(ctx context.Context, remote string) error {
	_, err := runGit(ctx, r.root, "push", remote)
	return err
}

// Pull delegates to the host git binary.
func (r *Repo) Pull(ctx context.Context, remote, branch string) error {
	args := []string{"pull", remote}
	if branch != "" {
		args = append(args, branch)
	}
	_, err := runGit(ctx, r.root, args...)
	return err
}

// Clone delegates to the host git binary and returns the opened
// repository at dest.
func Clone(ctx context.Context, url, dest string) (*Repo, error) {
	if _, err := runGit(ctx, "", "clone", url, dest); err != nil {
		return nil, err
	}
	return OpenOrDiscover(dest)
}

// Diff returns the unified text diff for pathspec ("" for the whole
// working tree), delegating to the host git binary for blob-level
// rendering that go-git does not expose directly.
func (r *Repo) Diff(ctx context.Context, pathspec string) (string, error) {
	args := []string{"diff"}
	if pathspec != "" {
		args = append(args, "--", pathspec)
	}
	return runGit(ctx, r.root, args...)
}
