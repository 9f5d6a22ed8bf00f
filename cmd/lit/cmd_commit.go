package main

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/spf13/cobra"

	"github.com/clintonboys/lit/internal/vcswrap"
)

var commitMessage string

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "stage the full working tree and create a commit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if commitMessage == "" {
			return fmt.Errorf("commit: -m <message> is required")
		}
		dir, err := workingDir()
		if err != nil {
			return err
		}
		return runCommit(dir, commitMessage)
	},
}

func init() {
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "commit message")
}

func runCommit(dir, message string) error {
	proj, err := loadProject(dir)
	if err != nil {
		return err
	}
	repo, err := vcswrap.OpenOrDiscover(dir)
	if err != nil {
		return err
	}
	if err := repo.StageAll(proj.stagePathspecs()); err != nil {
		return err
	}

	author := object.Signature{Name: proj.Config.Project.Name, Email: "lit@localhost", When: time.Now()}
	id, err := repo.Commit(message, author)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}
