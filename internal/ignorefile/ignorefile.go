// Package ignorefile loads the optional .litignore file consulted by the
// add command's tree walk, per spec.md §6's "ignore file" slot in the
// persisted-state layout. Status and the VCS wrapper's StageAll do not
// consult it.
package ignorefile

import (
	"os"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName is the conventional name of the ignore file at the repository root.
const FileName = ".litignore"

// Matcher reports whether a repo-relative path should be excluded from
// staging by add.
type Matcher struct {
	ignore *gitignore.GitIgnore
}

// Load reads path if it exists, or returns a Matcher that excludes
// nothing if the file is absent — the ignore file is always optional.
func Load(path string) (*Matcher, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Matcher{}, nil
	}
	gi, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		return nil, err
	}
	return &Matcher{ignore: gi}, nil
}

// Matches reports whether path is excluded.
func (m *Matcher) Matches(path string) bool {
	if m.ignore == nil {
		return false
	}
	return m.ignore.MatchesPath(path)
}
