package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clintonboys/lit/internal/vcswrap"
)

const diffTimeout = 30 * time.Second

var (
	diffCode    bool
	diffAll     bool
	diffSummary bool
)

var diffCmd = &cobra.Command{
	Use:   "diff [path]",
	Short: "show a unified diff of prompts or generated code",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workingDir()
		if err != nil {
			return err
		}
		var pathspec string
		if len(args) == 1 {
			pathspec = args[0]
		}
		return runDiff(dir, pathspec)
	},
}

func init() {
	diffCmd.Flags().BoolVar(&diffCode, "code", false, "with --summary, list only generated-code changes, excluding prompts")
	diffCmd.Flags().BoolVar(&diffAll, "all", false, "diff the entire working tree regardless of --code")
	diffCmd.Flags().BoolVar(&diffSummary, "summary", false, "print only the per-path change summary, not full hunks")
}

func runDiff(dir, pathspec string) error {
	repo, err := vcswrap.OpenOrDiscover(dir)
	if err != nil {
		return err
	}

	if diffSummary {
		entries, err := repo.Status(configFileName)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if diffCode && e.Category != vcswrap.StatusCodeModified {
				continue
			}
			fmt.Printf("%-16s %s\n", e.Category, e.Path)
		}
		return nil
	}

	// --code without an explicit path has no per-category equivalent in
	// the host git diff, so it falls back to the full working-tree diff;
	// --summary above is the supported way to see only code changes.
	ctx, cancel := context.WithTimeout(context.Background(), diffTimeout)
	defer cancel()
	out, err := repo.Diff(ctx, pathspec)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
