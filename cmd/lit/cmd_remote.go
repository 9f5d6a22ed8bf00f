package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clintonboys/lit/internal/vcswrap"
)

const remoteTimeout = 2 * time.Minute

var pushCmd = &cobra.Command{
	Use:   "push [remote]",
	Short: "push the current branch to a remote, delegating to the host git binary",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote := "origin"
		if len(args) == 1 {
			remote = args[0]
		}
		dir, err := workingDir()
		if err != nil {
			return err
		}
		repo, err := vcswrap.OpenOrDiscover(dir)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		return repo.Push(ctx, remote)
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull [remote] [branch]",
	Short: "pull from a remote, delegating to the host git binary",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, branch := "origin", ""
		if len(args) >= 1 {
			remote = args[0]
		}
		if len(args) == 2 {
			branch = args[1]
		}
		dir, err := workingDir()
		if err != nil {
			return err
		}
		repo, err := vcswrap.OpenOrDiscover(dir)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		return repo.Pull(ctx, remote, branch)
	},
}

var cloneCmd = &cobra.Command{
	Use:   "clone <url> [dest]",
	Short: "clone a lit project, delegating to the host git binary",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest := ""
		if len(args) == 2 {
			dest = args[1]
		} else {
			dest = destFromURL(args[0])
		}
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		if _, err := vcswrap.Clone(ctx, args[0], dest); err != nil {
			return err
		}
		fmt.Printf("cloned into %s\n", dest)
		return nil
	},
}

func destFromURL(url string) string {
	i := len(url) - 1
	for i >= 0 && url[i] != '/' {
		i--
	}
	name := url[i+1:]
	const suffix = ".git"
	if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
		name = name[:len(name)-len(suffix)]
	}
	if name == "" {
		name = "lit-clone"
	}
	return name
}
