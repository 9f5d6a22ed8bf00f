package main

import (
	"github.com/spf13/cobra"

	"github.com/clintonboys/lit/internal/vcswrap"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout <ref>",
	Short: "switch the working tree to a commit, branch, or tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workingDir()
		if err != nil {
			return err
		}
		repo, err := vcswrap.OpenOrDiscover(dir)
		if err != nil {
			return err
		}
		if err := repo.Checkout(args[0]); err != nil {
			return err
		}
		logf("checked out %s", args[0])
		return nil
	},
}
