// Package vcswrap wraps local version-control operations over
// go-git/go-git/v5 and delegates network-facing push/pull/clone to the
// host git binary, per spec.md §4.10, so that credential and transport
// handling are never reimplemented.
package vcswrap

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNoRepository is returned when an operation needs an open repository
// but none exists at the given root.
var ErrNoRepository = errors.New("vcswrap: no repository at this path")

// ErrEmptyChangeSet is returned by Commit when the stage set has no
// changes to record.
var ErrEmptyChangeSet = errors.New("vcswrap: nothing to commit")

// Repo wraps an open repository.
type Repo struct {
	repo *git.Repository
	root string
}

// Init creates a new repository at root.
func Init(root string) (*Repo, error) {
	repo, err := git.PlainInit(root, false)
	if err != nil {
		return nil, fmt.Errorf("vcswrap: init %s: %w", root, err)
	}
	return &Repo{repo: repo, root: root}, nil
}

// OpenOrDiscover opens the repository at root, or discovers one in an
// ancestor directory.
func OpenOrDiscover(root string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNoRepository
		}
		return nil, fmt.Errorf("vcswrap: open %s: %w", root, err)
	}
	return &Repo{repo: repo, root: root}, nil
}

// StageAll stages every path under pathspecs (the prompts tree,
// generated-code tree, project config, generation-record directory,
// patch directory, and ignore file, per spec.md §4.10).
func (r *Repo) StageAll(pathspecs []string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("vcswrap: worktree: %w", err)
	}
	for _, p := range pathspecs {
		if _, err := wt.Add(p); err != nil && !errors.Is(err, plumbing.ErrObjectNotFound) {
			return fmt.Errorf("vcswrap: staging %s: %w", p, err)
		}
	}
	return nil
}

// HasChanges reports whether the working tree differs from HEAD.
func (r *Repo) HasChanges() (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("vcswrap: worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("vcswrap: status: %w", err)
	}
	return !status.IsClean(), nil
}

// Commit records the staged tree with message and returns the new
// commit id. Fails with ErrEmptyChangeSet if nothing is staged.
func (r *Repo) Commit(message string, author object.Signature) (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("vcswrap: worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("vcswrap: status: %w", err)
	}
	staged := false
	for _, s := range status {
		if s.Staging != git.Unmodified && s.Staging != git.Untracked {
			staged = true
			break
		}
	}
	if !staged {
		return "", ErrEmptyChangeSet
	}

	hash, err := wt.Commit(message, &git.CommitOptions{Author: &author})
	if err != nil {
		return "", fmt.Errorf("vcswrap: commit: %w", err)
	}
	return hash.String(), nil
}

// HeadCommit returns the current HEAD commit id.
func (r *Repo) HeadCommit() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("vcswrap: head: %w", err)
	}
	return head.Hash().String(), nil
}

// LogEntry is one entry in the commit log.
type LogEntry struct {
	Hash    string
	Message string
	When    time.Time
	Author  string
}

// Log returns up to limit most-recent commits, most-recent first.
func (r *Repo) Log(limit int) ([]LogEntry, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("vcswrap: head: %w", err)
	}
	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("vcswrap: log: %w", err)
	}
	defer iter.Close()

	var entries []LogEntry
	err = iter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(entries) >= limit {
			return storerStop
		}
		entries = append(entries, LogEntry{
			Hash:    c.Hash.String(),
			Message: c.Message,
			When:    c.Author.When,
			Author:  c.Author.Name,
		})
		return nil
	})
	if err != nil && !errors.Is(err, storerStop) {
		return nil, fmt.Errorf("vcswrap: iterating log: %w", err)
	}
	return entries, nil
}

var storerStop = errors.New("vcswrap: stop iteration")

// StatusCategory buckets a working-tree change, per spec.md §4.10.
type StatusCategory string

const (
	StatusPromptAdded    StatusCategory = "prompt-added"
	StatusPromptModified StatusCategory = "prompt-modified"
	StatusPromptDeleted  StatusCategory = "prompt-deleted"
	StatusCodeModified   StatusCategory = "code-modified"
	StatusConfigChanged  StatusCategory = "config-changed"
	StatusOther          StatusCategory = "other"
)

// StatusEntry is one categorized working-tree change.
type StatusEntry struct {
	Path     string
	Category StatusCategory
}

// Status partitions working-tree changes into categories, per spec.md
// §4.10: prompts, generated code, config, or other.
func (r *Repo) Status(configPath string) ([]StatusEntry, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("vcswrap: worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("vcswrap: status: %w", err)
	}

	var entries []StatusEntry
	for path, s := range status {
		entries = append(entries, StatusEntry{Path: path, Category: categorize(path, s, configPath)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func categorize(path string, s *git.FileStatus, configPath string) StatusCategory {
	switch {
	case path == configPath:
		return StatusConfigChanged
	case isPromptPath(path):
		switch {
		case s.Worktree == git.Untracked || s.Staging == git.Added:
			return StatusPromptAdded
		case s.Worktree == git.Deleted || s.Staging == git.Deleted:
			return StatusPromptDeleted
		default:
			return StatusPromptModified
		}
	case isGeneratedCodePath(path):
		return StatusCodeModified
	default:
		return StatusOther
	}
}

func isPromptPath(path string) bool {
	const suffix = ".prompt.md"
	return len(path) >= len(suffix) && path[len(path)-len(suffix):] == suffix
}

// isGeneratedCodePath is a conservative default: anything not a prompt
// and not the config file is treated as generated code unless it lives
// under the .lit metadata directory, which is categorized as other.
func isGeneratedCodePath(path string) bool {
	const metaPrefix = ".lit/"
	return !isPromptPath(path) && !(len(path) >= len(metaPrefix) && path[:len(metaPrefix)] == metaPrefix)
}

// Checkout switches the working tree to ref.
func (r *Repo) Checkout(ref string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("vcswrap: worktree: %w", err)
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return fmt.Errorf("vcswrap: resolving %s: %w", ref, err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash}); err != nil {
		return fmt.Errorf("vcswrap: checkout %s: %w", ref, err)
	}
	return nil
}

// Root returns the repository's working directory.
func (r *Repo) Root() string {
	return r.root
}
