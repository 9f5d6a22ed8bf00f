package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clintonboys/lit/internal/vcswrap"
)

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "show the commit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workingDir()
		if err != nil {
			return err
		}
		return runLog(dir, logLimit)
	},
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 10, "number of commits to show")
}

func runLog(dir string, limit int) error {
	repo, err := vcswrap.OpenOrDiscover(dir)
	if err != nil {
		return err
	}
	entries, err := repo.Log(limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s  %s  %s\n", e.Hash[:12], e.When.Format("2006-01-02 15:04:05"), e.Message)
	}
	return nil
}
