package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/clintonboys/lit/internal/llmprovider"
	"github.com/clintonboys/lit/internal/pipeline"
	"github.com/clintonboys/lit/internal/record"
)

var (
	regenAll       bool
	regenNoCache   bool
	regenNoPatches bool
)

// regenerateTimeout bounds one run; generation requests themselves are
// per-request retried inside internal/llmprovider, so this only guards
// against the whole pipeline hanging.
const regenerateTimeout = 15 * time.Minute

var regenerateCmd = &cobra.Command{
	Use:   "regenerate [path]",
	Short: "regenerate code for a changed prompt and everything downstream of it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workingDir()
		if err != nil {
			return err
		}
		var changed string
		if len(args) == 1 {
			changed = args[0]
		}
		return runRegenerate(dir, changed, regenAll, regenNoCache, regenNoPatches)
	},
}

func init() {
	regenerateCmd.Flags().BoolVar(&regenAll, "all", false, "regenerate every prompt, not just one changed path and its downstream")
	regenerateCmd.Flags().BoolVar(&regenNoCache, "no-cache", false, "bypass the content-addressed cache for this run")
	regenerateCmd.Flags().BoolVar(&regenNoPatches, "no-patches", false, "skip patch reconciliation for this run")
}

func runRegenerate(dir, changedPath string, all, noCache, noPatches bool) error {
	proj, err := loadProject(dir)
	if err != nil {
		return err
	}

	if changedPath == "" && !all {
		return fmt.Errorf("regenerate: pass a prompt path, or --all to regenerate everything")
	}
	if changedPath != "" && proj.DAG.Node(changedPath) == nil {
		return fmt.Errorf("regenerate: no prompt at %q", changedPath)
	}

	provider, err := llmprovider.New(proj.Config.Model.Provider, llmprovider.ClientConfig{
		BaseURL: proj.Config.EffectiveBaseURL(),
		APIKey:  proj.Config.APIKey(),
	})
	if err != nil {
		return fmt.Errorf("regenerate: constructing provider: %w", err)
	}

	pricing := llmprovider.Pricing{}
	if p := proj.Config.EffectivePricing(); p != nil {
		pricing = llmprovider.Pricing{InputPerMillion: p.InputPerMillion, OutputPerMillion: p.OutputPerMillion}
	}

	driver := pipeline.NewDriver(proj.DAG, proj.Prompts, proj.Cache, proj.Patches, provider, diskWriter{root: proj.Root}, pipeline.Options{
		NoCache:     noCache,
		NoPatches:   noPatches,
		Language:    proj.Config.Language.Default,
		Framework:   proj.Config.Framework.Name,
		ModelName:   proj.Config.Model.Model,
		Temperature: proj.Config.Model.Temperature,
		Seed:        proj.Config.Model.Seed,
		Pricing:     pricing,
		OutputRoot:  proj.Root,
		ProjectName: proj.Config.Project.Name,
	})

	var changed []string
	if all {
		changed = proj.DAG.TopologicalOrder()
	} else {
		changed = []string{changedPath}
	}

	ctx, cancel := context.WithTimeout(context.Background(), regenerateTimeout)
	defer cancel()

	rec, err := driver.Run(ctx, changed)
	if err != nil {
		return fmt.Errorf("regenerate: %w", err)
	}

	dest, err := record.Write(proj.generationsDir(), rec)
	if err != nil {
		return fmt.Errorf("regenerate: writing generation record: %w", err)
	}

	hits, misses := 0, 0
	for _, outcome := range rec.Prompts {
		if outcome.CacheHit {
			hits++
		} else {
			misses++
		}
	}
	fmt.Printf("regenerated %d prompt(s) (%d cache hit, %d generated), cost $%.4f\n",
		len(rec.Prompts), hits, misses, rec.TotalCostUSD)
	logf("wrote generation record %s", dest)
	return nil
}

// diskWriter is the pipeline.FileWriter backed by the real filesystem,
// following the write-temp-then-rename shape used by every other on-disk
// store in this codebase.
type diskWriter struct {
	root string
}

func (w diskWriter) WriteFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".lit-write-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (w diskWriter) ReadFile(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}
