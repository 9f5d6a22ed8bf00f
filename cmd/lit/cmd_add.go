package main

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/clintonboys/lit/internal/ignorefile"
	"github.com/clintonboys/lit/internal/vcswrap"
)

var addCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "stage a prompt, generated file, or glob pathspec",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workingDir()
		if err != nil {
			return err
		}
		return runAdd(dir, args[0])
	},
}

func runAdd(dir, pathspec string) error {
	matcher, err := ignorefile.Load(filepath.Join(dir, ignoreFileRelPath))
	if err != nil {
		return err
	}

	var matched []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == metadataDirName {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		ok, err := doublestar.Match(pathspec, rel)
		if err != nil {
			return err
		}
		// "." stages every file in the tree.
		ok = ok || pathspec == "."
		if !ok || matcher.Matches(rel) {
			return nil
		}
		matched = append(matched, rel)
		return nil
	})
	if err != nil {
		return err
	}
	if len(matched) == 0 {
		return fmt.Errorf("add: %q matched no files", pathspec)
	}

	repo, err := vcswrap.OpenOrDiscover(dir)
	if err != nil {
		return err
	}
	if err := repo.StageAll(matched); err != nil {
		return err
	}

	for _, m := range matched {
		logf("staged %s", m)
	}
	fmt.Printf("staged %d file(s)\n", len(matched))
	return nil
}
