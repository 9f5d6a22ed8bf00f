package hashcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// lockTimeout bounds how long Put waits to acquire the per-entry lock
// before giving up. This is the only on-disk store in the codebase that
// takes a lock; the patch and record stores rely on atomic rename alone.
const lockTimeout = 5 * time.Second

// ErrLockTimeout is returned when a Put cannot acquire the per-entry
// lock before lockTimeout elapses.
var ErrLockTimeout = errors.New("hashcache: timed out acquiring entry lock")

// ErrNotFound is returned by Get when no artifact is stored for hash.
var ErrNotFound = errors.New("hashcache: entry not found")

// Artifact is the cached unit of work for one input hash: the generated
// file contents plus the metadata needed to replay a cache hit without
// re-invoking the provider, per spec.md §4.4.
type Artifact struct {
	Hash      string            `json:"hash"`
	Files     map[string]string `json:"files"`
	Model     ModelConfig       `json:"model"`
	CreatedAt time.Time         `json:"created_at"`
}

// Store is a disk-backed, content-addressed cache rooted at a directory.
// Entries are immutable once written: Put for a hash that already has a
// stored artifact is a no-op success, since identical content-addressed
// keys always carry identical content (spec.md §5, "concurrent put is
// idempotent for identical content-addressed keys").
type Store struct {
	root string
}

// NewStore returns a Store rooted at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("hashcache: creating cache root: %w", err)
	}
	return &Store{root: dir}, nil
}

func (s *Store) entryPath(hash string) string {
	return filepath.Join(s.root, hash+".json")
}

func (s *Store) lockPath(hash string) string {
	return filepath.Join(s.root, hash+".lock")
}

// Get returns the stored artifact for hash, or ErrNotFound if absent. A
// hit requires no network call and no provider invocation (spec.md §8,
// Cache consistency).
func (s *Store) Get(hash string) (*Artifact, error) {
	data, err := os.ReadFile(s.entryPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("hashcache: reading entry %s: %w", hash, err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("hashcache: decoding entry %s: %w", hash, err)
	}
	return &a, nil
}

// Put stores artifact under its own Hash field, taking a per-entry file
// lock so that concurrent writers racing to populate the same hash (e.g.
// two pipeline runs invoked against the same cache directory) never
// interleave partial writes. The write itself is atomic: data lands in a
// temp file in the same directory, then gets renamed into place.
func (s *Store) Put(ctx context.Context, a *Artifact) error {
	if a.Hash == "" {
		return errors.New("hashcache: artifact has empty hash")
	}

	if _, err := s.Get(a.Hash); err == nil {
		return nil // already present; content-addressed, so nothing to do
	}

	fl := flock.New(s.lockPath(a.Hash))
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil || !locked {
		return ErrLockTimeout
	}
	defer fl.Unlock()

	// Re-check under the lock: another process may have populated the
	// entry while we were waiting.
	if _, err := s.Get(a.Hash); err == nil {
		return nil
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("hashcache: encoding entry %s: %w", a.Hash, err)
	}

	tmp, err := os.CreateTemp(s.root, a.Hash+".tmp-*")
	if err != nil {
		return fmt.Errorf("hashcache: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("hashcache: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("hashcache: closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.entryPath(a.Hash)); err != nil {
		return fmt.Errorf("hashcache: committing entry %s: %w", a.Hash, err)
	}
	return nil
}

// Has reports whether an artifact is stored for hash, without decoding it.
func (s *Store) Has(hash string) bool {
	_, err := os.Stat(s.entryPath(hash))
	return err == nil
}
