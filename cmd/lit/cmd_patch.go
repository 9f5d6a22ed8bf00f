package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/clintonboys/lit/internal/patch"
	"github.com/clintonboys/lit/internal/record"
)

var patchCmd = &cobra.Command{
	Use:   "patch",
	Short: "manage saved hand-edits to generated files",
}

var patchSaveCmd = &cobra.Command{
	Use:   "save <output-path>",
	Short: "record the current on-disk bytes as a patch against the cache's last-known baseline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workingDir()
		if err != nil {
			return err
		}
		return runPatchSave(dir, args[0])
	},
}

var patchListCmd = &cobra.Command{
	Use:   "list",
	Short: "list saved patches",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workingDir()
		if err != nil {
			return err
		}
		return runPatchList(dir)
	},
}

var patchDropCmd = &cobra.Command{
	Use:   "drop <output-path>",
	Short: "remove a saved patch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workingDir()
		if err != nil {
			return err
		}
		st, err := patch.NewStore(filepath.Join(dir, metadataDirName, "patches"))
		if err != nil {
			return err
		}
		return st.Drop(args[0])
	},
}

var patchShowCmd = &cobra.Command{
	Use:   "show <output-path>",
	Short: "render a saved patch's unified diff and conflict status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workingDir()
		if err != nil {
			return err
		}
		return runPatchShow(dir, args[0])
	},
}

func init() {
	patchCmd.AddCommand(patchSaveCmd, patchListCmd, patchDropCmd, patchShowCmd)
}

// runPatchSave finds the most recent run that produced outputPath, reads
// that run's cached artifact bytes as the baseline, and diffs them
// against the current on-disk bytes, per spec.md §4.8's save(path)
// contract: "baseline, edited bytes, and a unified diff".
func runPatchSave(dir, outputPath string) error {
	proj, err := loadProject(dir)
	if err != nil {
		return err
	}

	baseline, err := baselineFor(proj, outputPath)
	if err != nil {
		return err
	}

	edited, err := os.ReadFile(filepath.Join(proj.Root, outputPath))
	if err != nil {
		return fmt.Errorf("patch save: reading %s: %w", outputPath, err)
	}

	if !patch.Detect(baseline, string(edited)) {
		fmt.Printf("%s matches its last generated output; nothing to save\n", outputPath)
		return nil
	}

	if err := proj.Patches.Save(outputPath, baseline, string(edited)); err != nil {
		return err
	}
	fmt.Printf("saved patch for %s\n", outputPath)
	return nil
}

// baselineFor locates the most recent generation record that produced
// outputPath and returns that run's cached artifact bytes for it. The
// cache, not git history, is the source of "last-known output" per
// spec.md §4.4/§4.8.
func baselineFor(proj *project, outputPath string) (string, error) {
	records, _, warnings, err := record.List(proj.generationsDir())
	if err != nil {
		return "", err
	}
	for _, w := range warnings {
		logf("patch save: %s", w)
	}

	for i := len(records) - 1; i >= 0; i-- {
		for _, outcome := range records[i].Prompts {
			if !containsPath(outcome.OutputPaths, outputPath) {
				continue
			}
			artifact, err := proj.Cache.Get(outcome.InputHash)
			if err != nil {
				continue
			}
			if content, ok := artifact.Files[outputPath]; ok {
				return content, nil
			}
		}
	}
	return "", fmt.Errorf("patch save: no generation record or cache entry produced %q", outputPath)
}

func containsPath(paths []string, path string) bool {
	for _, p := range paths {
		if p == path {
			return true
		}
	}
	return false
}

func runPatchList(dir string) error {
	st, err := patch.NewStore(filepath.Join(dir, metadataDirName, "patches"))
	if err != nil {
		return err
	}
	records, warnings, err := st.List()
	if err != nil {
		return err
	}
	for _, w := range warnings {
		logf("patch: %s", w)
	}
	for _, r := range records {
		status := "clean"
		if r.Conflicted {
			status = "conflicted"
		}
		fmt.Printf("%-8s %s\n", status, r.Path)
	}
	return nil
}

func runPatchShow(dir, outputPath string) error {
	st, err := patch.NewStore(filepath.Join(dir, metadataDirName, "patches"))
	if err != nil {
		return err
	}
	rec, err := st.Load(outputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("patch show: no saved patch for %s", outputPath)
		}
		return err
	}
	if rec.Conflicted {
		fmt.Println("status: conflicted")
	} else {
		fmt.Println("status: clean")
	}
	fmt.Println(rec.UnifiedDiff)
	return nil
}
