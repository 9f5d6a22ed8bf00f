package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clintonboys/lit/internal/vcswrap"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "show categorized working-tree changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workingDir()
		if err != nil {
			return err
		}
		return runStatus(dir)
	},
}

func runStatus(dir string) error {
	repo, err := vcswrap.OpenOrDiscover(dir)
	if err != nil {
		return err
	}
	entries, err := repo.Status(configFileName)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("working tree clean")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%-16s %s\n", e.Category, e.Path)
	}
	return nil
}
