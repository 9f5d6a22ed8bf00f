package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/clintonboys/lit/internal/costreport"
)

var (
	costLast      bool
	costBreakdown bool
)

var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "report token and dollar spend recorded by past generation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workingDir()
		if err != nil {
			return err
		}
		return runCost(dir, costLast, costBreakdown)
	},
}

func init() {
	costCmd.Flags().BoolVar(&costLast, "last", false, "only the most recent run")
	costCmd.Flags().BoolVar(&costBreakdown, "breakdown", false, "include the per-model subtotal table")
}

func runCost(dir string, last, breakdown bool) error {
	genDir := filepath.Join(dir, metadataDirName, "generations")

	var summary *costreport.Summary
	if last {
		s, err := costreport.Latest(genDir)
		if err != nil {
			return err
		}
		summary = s
	} else {
		s, warnings, err := costreport.All(genDir)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			logf("cost: %s", w)
		}
		summary = s
	}

	fmt.Printf("runs: %d   prompts: %d   cache hits: %d   total cost: $%.4f\n",
		summary.RunCount, summary.PromptCount, summary.CacheHits, summary.TotalCostUSD)

	if breakdown {
		for _, m := range summary.ByModel {
			fmt.Printf("  %-24s prompts=%-4d tokens_in=%-8d tokens_out=%-8d cost=$%.4f\n",
				m.Model, m.PromptCount, m.TokensIn, m.TokensOut, m.CostUSD)
		}
	}
	return nil
}
