package promptfile

import (
	"path"
	"strings"
)

// NormalizePath resolves p to a forward-slash, repo-relative, lexically
// normalized form. The same representation is used for hashing and
// equality throughout lit.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	cleaned := path.Clean(p)
	if cleaned == "." {
		return ""
	}
	return strings.TrimPrefix(cleaned, "/")
}
