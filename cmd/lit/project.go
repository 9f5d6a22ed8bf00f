package main

import (
	"os"
	"path/filepath"

	"github.com/clintonboys/lit/internal/config"
	"github.com/clintonboys/lit/internal/dag"
	"github.com/clintonboys/lit/internal/hashcache"
	"github.com/clintonboys/lit/internal/patch"
	"github.com/clintonboys/lit/internal/promptfile"
)

// project bundles the handles a command needs to operate on a lit
// repository, loaded fresh for each invocation — there is no global
// state (spec.md §9).
type project struct {
	Root    string
	Config  *config.Config
	Prompts []*promptfile.Prompt
	DAG     *dag.DAG
	Cache   *hashcache.Store
	Patches *patch.Store
}

func loadProject(root string) (*project, error) {
	cfg, err := config.Load(filepath.Join(root, configFileName))
	if err != nil {
		return nil, err
	}

	promptsRoot := filepath.Join(root, promptsDirName)
	if _, err := os.Stat(promptsRoot); os.IsNotExist(err) {
		if err := os.MkdirAll(promptsRoot, 0o755); err != nil {
			return nil, err
		}
	}

	prompts, err := promptfile.ParseAll(promptsRoot, string(cfg.Project.Mapping), cfg.Language.Default)
	if err != nil {
		return nil, err
	}

	d, err := dag.Build(prompts)
	if err != nil {
		return nil, err
	}

	cache, err := hashcache.NewStore(filepath.Join(root, metadataDirName, "cache"))
	if err != nil {
		return nil, err
	}
	patches, err := patch.NewStore(filepath.Join(root, metadataDirName, "patches"))
	if err != nil {
		return nil, err
	}

	return &project{
		Root: root, Config: cfg, Prompts: prompts, DAG: d, Cache: cache, Patches: patches,
	}, nil
}

func (p *project) generationsDir() string {
	return filepath.Join(p.Root, metadataDirName, "generations")
}

// stagePathspecs stages the whole working tree, which covers spec.md
// §4.10's fixed set (prompts tree, generated-code tree, project config,
// generation-record directory, patch directory, ignore file) in one
// pathspec since all of those live under the repository root.
func (p *project) stagePathspecs() []string {
	return []string{"."}
}
