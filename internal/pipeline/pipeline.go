// Package pipeline drives the prompt DAG level by level, dispatching
// generation concurrently within a level, reconciling patches, and
// assembling the run's generation record, per spec.md §4.7 and §5. The
// concurrency shape follows Soochol-Upal's errgroup.WithContext fan-out
// over indexed results (internal/services/stage_collect.go), bounded by
// a concurrency cap the way jack-phare-goat's subagent manager caps
// active agents against maxConcurrentAgents.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clintonboys/lit/internal/dag"
	"github.com/clintonboys/lit/internal/genparse"
	"github.com/clintonboys/lit/internal/hashcache"
	"github.com/clintonboys/lit/internal/llmprovider"
	"github.com/clintonboys/lit/internal/patch"
	"github.com/clintonboys/lit/internal/promptfile"
	"github.com/clintonboys/lit/internal/record"
)

// Options configures one pipeline run.
type Options struct {
	Concurrency  int
	NoCache      bool
	NoPatches    bool
	Language     string
	Framework    string
	ModelName    string
	Temperature  float64
	Seed         *int64
	MaxTokens    int
	Pricing      llmprovider.Pricing
	OutputRoot   string // directory generated files are written under
	ProjectName  string // project.name, carried into the generation record
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	return o
}

// Driver owns the DAG, cache, patch store, and provider for one run.
// Per spec.md §5, the driver is the single owner of in-memory DAG/cache/
// record state; per-prompt worker results flow back to it rather than
// being mutated from multiple goroutines.
type Driver struct {
	DAG      *dag.DAG
	Prompts  map[string]*promptfile.Prompt
	Cache    *hashcache.Store
	Patches  *patch.Store
	Provider llmprovider.Provider
	Writer   FileWriter

	opts Options

	hashesMu sync.Mutex
	hashes   map[string]string // prompt path -> its own input hash, for cascading lookups by dependents
}

// FileWriter persists generated file bytes to disk, abstracted so tests
// can substitute an in-memory writer.
type FileWriter interface {
	WriteFile(path string, content []byte) error
	ReadFile(path string) ([]byte, bool, error)
}

// NewDriver constructs a Driver.
func NewDriver(d *dag.DAG, prompts []*promptfile.Prompt, cache *hashcache.Store, patches *patch.Store, provider llmprovider.Provider, writer FileWriter, opts Options) *Driver {
	byPath := make(map[string]*promptfile.Prompt, len(prompts))
	for _, p := range prompts {
		byPath[p.Path] = p
	}
	return &Driver{
		DAG: d, Prompts: byPath, Cache: cache, Patches: patches, Provider: provider, Writer: writer,
		opts:   opts.withDefaults(),
		hashes: make(map[string]string, len(prompts)),
	}
}

// promptOutcome is the in-memory shape a worker reports back to the
// driver; it is folded into the generation record only by the driver
// goroutine, never mutated concurrently.
type promptOutcome struct {
	outcome    record.PromptOutcome
	files      map[string]string
	warnings   []string
}

// Run executes the regeneration set level by level and returns the
// completed generation record. On any permanent failure, Run returns an
// error and writes no record (spec.md §4.7's all-or-nothing commit
// semantics); per-prompt file writes that already landed are left on
// disk, per spec.md §5's cancellation policy.
func (d *Driver) Run(ctx context.Context, changed []string) (*record.Record, error) {
	regen := d.DAG.RegenerationSet(changed)
	levels := d.DAG.Levels(regen)

	rec := &record.Record{
		Timestamp:   timeNow(),
		ProjectName: d.opts.ProjectName,
		Model: hashcache.ModelConfig{
			Provider:    d.Provider.Identify(),
			Model:       d.opts.ModelName,
			Temperature: d.opts.Temperature,
			Seed:        d.opts.Seed,
		},
		DAGSnapshot: snapshotDAG(d.DAG),
	}
	upstreamFiles := make(map[string]map[string]string) // prompt path -> its generated files

	if err := d.seedAncestors(regen, upstreamFiles); err != nil {
		return nil, err
	}

	tracker := llmprovider.NewCostTracker()

	for _, level := range levels {
		results := make([]*promptOutcome, len(level))

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(d.opts.Concurrency)

		for i, path := range level {
			i, path := i, path
			g.Go(func() error {
				out, err := d.processPrompt(gCtx, path, upstreamFiles, tracker)
				if err != nil {
					return fmt.Errorf("prompt %s: %w", path, err)
				}
				results[i] = out
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}

		for i, path := range level {
			out := results[i]
			upstreamFiles[path] = out.files
			rec.Prompts = append(rec.Prompts, out.outcome)
		}
	}

	rec.TotalCostUSD = tracker.TotalCost()
	return rec, nil
}

// seedAncestors walks the transitive upstream closure of regen (prompts
// that feed it via Imports but are themselves outside the regeneration
// set) in topological order, computing each one's input hash into
// d.hashes and loading its last-generated output into upstreamFiles. An
// incremental run never dispatches these prompts, but without this step
// a downstream prompt's context would silently drop an unprocessed
// ancestor's files, and its input hash would fold in an empty string for
// that ancestor instead of the ancestor's real, unchanged hash — making
// the hash cascade diverge between a full run and an incremental one.
func (d *Driver) seedAncestors(regen map[string]bool, upstreamFiles map[string]map[string]string) error {
	ancestors := make(map[string]bool)
	queue := make([]string, 0)
	enqueue := func(path string) {
		if !regen[path] && !ancestors[path] {
			ancestors[path] = true
			queue = append(queue, path)
		}
	}
	for path := range regen {
		if n := d.DAG.Node(path); n != nil {
			for _, imp := range n.Imports {
				enqueue(imp)
			}
		}
	}
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if n := d.DAG.Node(path); n != nil {
			for _, imp := range n.Imports {
				enqueue(imp)
			}
		}
	}
	if len(ancestors) == 0 {
		return nil
	}

	for _, path := range d.DAG.TopologicalOrder() {
		if !ancestors[path] {
			continue
		}
		p, ok := d.Prompts[path]
		if !ok {
			continue
		}

		importHashes := make([]hashcache.ImportHash, 0, len(p.Imports))
		for _, imp := range p.Imports {
			importHashes = append(importHashes, hashcache.ImportHash{Path: imp, Hash: d.importHash(imp)})
		}
		model := hashcache.ModelConfig{Provider: d.Provider.Identify(), Model: d.modelFor(p), Temperature: d.temperatureFor(p), Seed: d.seedFor(p)}
		language := p.Language
		if language == "" {
			language = d.opts.Language
		}
		inputHash := hashcache.Compute(p.Raw, importHashes, model, language, d.opts.Framework)
		d.hashesMu.Lock()
		d.hashes[path] = inputHash
		d.hashesMu.Unlock()

		files, err := d.lastKnownOutputs(inputHash, p.Outputs)
		if err != nil {
			return fmt.Errorf("seeding ancestor %s: %w", path, err)
		}
		upstreamFiles[path] = files
	}
	return nil
}

// lastKnownOutputs returns the generated file contents for an
// already-processed prompt: the cache entry for its current input hash
// if one exists, otherwise whatever is already on disk at its declared
// output paths (the cache may have been bypassed by --no-cache on the
// run that last generated them).
func (d *Driver) lastKnownOutputs(inputHash string, outputs []string) (map[string]string, error) {
	if artifact, err := d.Cache.Get(inputHash); err == nil {
		return artifact.Files, nil
	}

	files := make(map[string]string, len(outputs))
	for _, out := range outputs {
		full := filepath.Join(d.opts.OutputRoot, out)
		content, ok, err := d.Writer.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", out, err)
		}
		if ok {
			files[out] = string(content)
		}
	}
	return files, nil
}

func (d *Driver) processPrompt(ctx context.Context, path string, upstreamFiles map[string]map[string]string, tracker *llmprovider.CostTracker) (*promptOutcome, error) {
	start := timeNow()
	p, ok := d.Prompts[path]
	if !ok {
		return nil, fmt.Errorf("unknown prompt %s", path)
	}

	importHashes := make([]hashcache.ImportHash, 0, len(p.Imports))
	for _, imp := range p.Imports {
		importHashes = append(importHashes, hashcache.ImportHash{Path: imp, Hash: d.importHash(imp)})
	}

	model := hashcache.ModelConfig{Provider: d.Provider.Identify(), Model: d.modelFor(p), Temperature: d.temperatureFor(p), Seed: d.seedFor(p)}
	language := p.Language
	if language == "" {
		language = d.opts.Language
	}

	inputHash := hashcache.Compute(p.Raw, importHashes, model, language, d.opts.Framework)
	d.hashesMu.Lock()
	d.hashes[path] = inputHash
	d.hashesMu.Unlock()

	hasPatches := !d.opts.NoPatches && d.anyPatchFor(p)

	if !d.opts.NoCache && !hasPatches {
		if artifact, err := d.Cache.Get(inputHash); err == nil {
			if err := d.writeAll(artifact.Files); err != nil {
				return nil, err
			}
			return &promptOutcome{
				outcome: record.PromptOutcome{
					Path: path, Imports: p.Imports, CacheHit: true, InputHash: inputHash,
					OutputPaths: sortedKeys(artifact.Files), DurationMS: timeNow().Sub(start).Milliseconds(),
				},
				files: artifact.Files,
			}, nil
		}
	}

	resp, err := d.Provider.Generate(ctx, llmprovider.GenerateRequest{
		Model:       model.Model,
		Messages:    d.assembleMessages(p, language, upstreamFiles),
		Temperature: model.Temperature,
		Seed:        model.Seed,
		MaxTokens:   d.opts.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	var files map[string]string
	var warnings []string
	if len(p.Outputs) > 0 {
		files, warnings, err = genparse.ParseManifest(resp.Text, p.Outputs)
	} else {
		files, err = genparse.ParseInferred(resp.Text)
	}
	if err != nil {
		return nil, err
	}

	var conflicted []string
	for outPath, content := range files {
		merged, wasConflicted, err := d.reconcile(outPath, content)
		if err != nil {
			return nil, err
		}
		if wasConflicted {
			conflicted = append(conflicted, outPath)
		}
		files[outPath] = merged
	}

	if err := d.writeAll(files); err != nil {
		return nil, err
	}

	if !hasPatches {
		if err := d.Cache.Put(ctx, &hashcache.Artifact{Hash: inputHash, Files: files, Model: model, CreatedAt: timeNow()}); err != nil {
			return nil, fmt.Errorf("caching %s: %w", path, err)
		}
	}

	tracker.Add(model.Model, d.opts.Pricing, llmprovider.Usage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens})

	return &promptOutcome{
		outcome: record.PromptOutcome{
			Path: path, Imports: p.Imports, CacheHit: false, InputHash: inputHash,
			OutputPaths: sortedKeys(files), Model: model.Model,
			TokensIn: resp.Usage.InputTokens, TokensOut: resp.Usage.OutputTokens,
			CostUSD:    llmprovider.CalculateCost(d.opts.Pricing, resp.Usage),
			DurationMS: timeNow().Sub(start).Milliseconds(),
			Conflicted: conflicted, Warnings: warnings,
		},
		files:    files,
		warnings: warnings,
	}, nil
}

// reconcile applies the 3-way merge for outPath if a patch exists for
// it, per spec.md §4.7 step 5.
func (d *Driver) reconcile(outPath, newContent string) (merged string, conflicted bool, err error) {
	if d.opts.NoPatches || !d.Patches.Has(outPath) {
		return newContent, false, nil
	}
	rec, err := d.Patches.Load(outPath)
	if err != nil {
		return newContent, false, nil // unreadable patch: warn-and-skip per spec.md §7
	}

	result := patch.Merge(rec.Baseline, rec.Edited, newContent)
	if !result.Conflict {
		if err := d.Patches.RefreshBaseline(outPath, newContent, result.Conflict); err != nil {
			return result.Merged, result.Conflict, err
		}
	}
	return result.Merged, result.Conflict, nil
}

func (d *Driver) writeAll(files map[string]string) error {
	for path, content := range files {
		full := filepath.Join(d.opts.OutputRoot, path)
		if err := d.Writer.WriteFile(full, []byte(content)); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}

func (d *Driver) assembleMessages(p *promptfile.Prompt, language string, upstreamFiles map[string]map[string]string) []llmprovider.Message {
	system := fmt.Sprintf(
		"You are generating code for a %s project using %s. For each file produced, emit a header `=== FILE: <path> ===` on its own line, followed by the file's contents. Do not wrap contents in decorative code fences.",
		language, d.opts.Framework,
	)

	var upstreamBlock string
	for _, imp := range p.Imports {
		files := upstreamFiles[imp]
		if len(files) == 0 {
			continue
		}
		for _, path := range sortedKeys(files) {
			upstreamBlock += fmt.Sprintf("=== FILE: %s ===\n%s\n", path, files[path])
		}
	}

	return []llmprovider.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: upstreamBlock + string(p.Body)},
	}
}

func (d *Driver) anyPatchFor(p *promptfile.Prompt) bool {
	for _, out := range p.Outputs {
		if d.Patches.Has(out) {
			return true
		}
	}
	return false
}

func (d *Driver) importHash(path string) string {
	d.hashesMu.Lock()
	defer d.hashesMu.Unlock()
	return d.hashes[path]
}

func (d *Driver) modelFor(p *promptfile.Prompt) string {
	if p.Model != nil && p.Model.Model != "" {
		return p.Model.Model
	}
	return d.opts.ModelName
}

func (d *Driver) temperatureFor(p *promptfile.Prompt) float64 {
	if p.Model != nil && p.Model.Temperature != nil {
		return *p.Model.Temperature
	}
	return d.opts.Temperature
}

func (d *Driver) seedFor(p *promptfile.Prompt) *int64 {
	if p.Model != nil && p.Model.Seed != nil {
		return p.Model.Seed
	}
	return d.opts.Seed
}

// snapshotDAG captures the full import graph as it stood at the start of
// a run, for embedding in the generation record.
func snapshotDAG(d *dag.DAG) []record.DAGNodeSnapshot {
	nodes := d.Nodes()
	snap := make([]record.DAGNodeSnapshot, 0, len(nodes))
	for _, n := range nodes {
		snap = append(snap, record.DAGNodeSnapshot{Path: n.Path, Imports: n.Imports, Outputs: n.Outputs})
	}
	return snap
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// timeNow is a seam so callers writing tests against this package can
// observe a fixed timestamp without reaching into the driver's
// internals; production code always calls time.Now().
var timeNow = func() time.Time { return time.Now() }
