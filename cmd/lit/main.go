// Command lit compiles a tree of natural-language prompt files into a
// pinned tree of generated source files, tracking the prompt-to-output
// DAG, caching unchanged work by content hash, preserving hand-edits as
// replayable patches, and committing generation metadata alongside a
// conventional version-control commit.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	// configFileName is the project config file at the repository root,
	// per spec.md §6.
	configFileName = "lit.yaml"
	// metadataDirName holds the cache, patches, and generation-record
	// directories, per spec.md §6's persisted-state layout.
	metadataDirName = ".lit"
	// promptsDirName is the default root of the prompt tree.
	promptsDirName = "prompts"
	// ignoreFileRelPath is the optional, repo-root-relative ignore file
	// consulted by add, per spec.md §6's "ignore file" slot.
	ignoreFileRelPath = ".litignore"
)

var (
	verbose bool
	repoDir string
)

var rootCmd = &cobra.Command{
	Use:   "lit",
	Short: "lit compiles prompt files into generated source code under version control",
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print progress breadcrumbs to stderr")
	rootCmd.PersistentFlags().StringVarP(&repoDir, "dir", "C", "", "repository directory (default: current directory)")

	rootCmd.AddCommand(
		initCmd,
		addCmd,
		commitCmd,
		statusCmd,
		diffCmd,
		logCmd,
		regenerateCmd,
		checkoutCmd,
		pushCmd,
		pullCmd,
		cloneCmd,
		costCmd,
		patchCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "lit: %v\n", err)
		os.Exit(1)
	}
}

// logf prints a progress breadcrumb to stderr when -v/--verbose is set,
// matching cmd/example's plain fmt.Fprintf style — no logging framework.
func logf(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// workingDir resolves the repository root: --dir if given, else the
// current directory.
func workingDir() (string, error) {
	if repoDir != "" {
		return repoDir, nil
	}
	return os.Getwd()
}
