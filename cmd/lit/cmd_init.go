package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/clintonboys/lit/internal/vcswrap"
)

var initDefaults bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "initialize a new lit project in the current (or --dir) directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workingDir()
		if err != nil {
			return err
		}
		return runInit(dir, initDefaults)
	},
}

func init() {
	initCmd.Flags().BoolVar(&initDefaults, "defaults", false, "accept default project.name, language, and model values without prompting")
}

const defaultConfigTemplate = `project:
  name: %s
  version: "0.1.0"
  mapping: direct
language:
  default: go
model:
  provider: openai
  model: gpt-4o
  temperature: 0
  api:
    key_env: LIT_API_KEY
`

const defaultGitignore = ".lit/cache/\n"

func runInit(dir string, defaults bool) error {
	if !defaults {
		// Non-interactive environments (and this CLI's test harness) only
		// ever exercise --defaults; an interactive wizard is a natural
		// follow-up but out of scope for this pass.
		return fmt.Errorf("init: interactive mode not implemented; pass --defaults")
	}

	configPath := filepath.Join(dir, configFileName)
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("init: %s already exists", configPath)
	}

	if err := os.MkdirAll(filepath.Join(dir, promptsDirName), 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(dir, metadataDirName, "cache"), 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(dir, metadataDirName, "patches"), 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(dir, metadataDirName, "generations"), 0o755); err != nil {
		return err
	}

	name := filepath.Base(dir)
	body := fmt.Sprintf(defaultConfigTemplate, name)
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		return err
	}

	gitignorePath := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		if err := os.WriteFile(gitignorePath, []byte(defaultGitignore), 0o644); err != nil {
			return err
		}
	}

	if _, err := vcswrap.OpenOrDiscover(dir); err != nil {
		if _, err := vcswrap.Init(dir); err != nil {
			return fmt.Errorf("init: creating repository: %w", err)
		}
		logf("initialized empty git repository at %s", dir)
	}

	logf("wrote %s", configPath)
	fmt.Printf("initialized lit project %q in %s\n", name, dir)
	return nil
}
