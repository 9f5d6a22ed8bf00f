package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clintonboys/lit/internal/dag"
	"github.com/clintonboys/lit/internal/hashcache"
	"github.com/clintonboys/lit/internal/llmprovider"
	"github.com/clintonboys/lit/internal/patch"
	"github.com/clintonboys/lit/internal/promptfile"
)

// memWriter is an in-memory FileWriter fake so tests never touch disk
// for the files the pipeline itself writes.
type memWriter struct {
	mu    sync.Mutex
	files map[string]string
}

func newMemWriter() *memWriter {
	return &memWriter{files: make(map[string]string)}
}

func (w *memWriter) WriteFile(path string, content []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.files[path] = string(content)
	return nil
}

func (w *memWriter) ReadFile(path string) ([]byte, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	content, ok := w.files[path]
	if !ok {
		return nil, false, nil
	}
	return []byte(content), true, nil
}

// stubProvider returns the same canned text (or error) on every call, counting
// invocations so tests can assert cache shortcutting actually avoided a
// provider round trip.
type stubProvider struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (p *stubProvider) Generate(_ context.Context, _ llmprovider.GenerateRequest) (*llmprovider.GenerateResponse, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return &llmprovider.GenerateResponse{
		Text:  p.text,
		Usage: llmprovider.Usage{InputTokens: 10, OutputTokens: 20},
	}, nil
}

func (p *stubProvider) Identify() string { return "stub" }

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func buildDriver(t *testing.T, prompts []*promptfile.Prompt, provider llmprovider.Provider, writer FileWriter) *Driver {
	t.Helper()
	d, err := dag.Build(prompts)
	require.NoError(t, err)

	cache, err := hashcache.NewStore(t.TempDir())
	require.NoError(t, err)
	patches, err := patch.NewStore(t.TempDir())
	require.NoError(t, err)

	return NewDriver(d, prompts, cache, patches, provider, writer, Options{
		Language:   "go",
		Framework:  "none",
		ModelName:  "test-model",
		OutputRoot: "",
	})
}

func simplePrompt(path string, outputs, imports []string) *promptfile.Prompt {
	return &promptfile.Prompt{
		Path:    path,
		Raw:     []byte("body for " + path),
		Body:    []byte("generate " + path),
		Outputs: outputs,
		Imports: imports,
	}
}

func TestRun_CacheMissGeneratesAndWritesFiles(t *testing.T) {
	p := simplePrompt("a.prompt.md", []string{"a.go"}, nil)
	provider := &stubProvider{text: "=== FILE: a.go ===\npackage a\n"}
	writer := newMemWriter()

	driver := buildDriver(t, []*promptfile.Prompt{p}, provider, writer)
	rec, err := driver.Run(context.Background(), []string{"a.prompt.md"})
	require.NoError(t, err)

	require.Len(t, rec.Prompts, 1)
	assert.False(t, rec.Prompts[0].CacheHit)
	assert.Equal(t, 1, provider.callCount())

	content, ok, err := writer.ReadFile("a.go")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, content, "package a")
}

func TestRun_SecondRunHitsCache(t *testing.T) {
	p := simplePrompt("a.prompt.md", []string{"a.go"}, nil)
	provider := &stubProvider{text: "=== FILE: a.go ===\npackage a\n"}
	writer := newMemWriter()

	d, err := dag.Build([]*promptfile.Prompt{p})
	require.NoError(t, err)
	cache, err := hashcache.NewStore(t.TempDir())
	require.NoError(t, err)
	patches, err := patch.NewStore(t.TempDir())
	require.NoError(t, err)
	driver := NewDriver(d, []*promptfile.Prompt{p}, cache, patches, provider, writer, Options{
		Language: "go", Framework: "none", ModelName: "test-model",
	})

	_, err = driver.Run(context.Background(), []string{"a.prompt.md"})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.callCount())

	rec, err := driver.Run(context.Background(), []string{"a.prompt.md"})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.callCount(), "second run must not re-invoke the provider")
	assert.True(t, rec.Prompts[0].CacheHit)
}

func TestRun_InferredModeWhenNoOutputsDeclared(t *testing.T) {
	p := simplePrompt("a.prompt.md", nil, nil)
	provider := &stubProvider{text: "=== FILE: pkg/a.go ===\npackage pkg\n"}
	writer := newMemWriter()

	driver := buildDriver(t, []*promptfile.Prompt{p}, provider, writer)
	rec, err := driver.Run(context.Background(), []string{"a.prompt.md"})
	require.NoError(t, err)

	assert.Equal(t, []string{"pkg/a.go"}, rec.Prompts[0].OutputPaths)
}

func TestRun_DownstreamPromptSeesUpstreamFilesInContext(t *testing.T) {
	base := simplePrompt("base.prompt.md", []string{"base.go"}, nil)
	dependent := simplePrompt("dep.prompt.md", []string{"dep.go"}, []string{"base.prompt.md"})

	var sawUpstream bool
	var mu sync.Mutex
	provider := &recordingProvider{
		onGenerate: func(req llmprovider.GenerateRequest) {
			for _, m := range req.Messages {
				if m.Role == "user" && strings.Contains(m.Content, "base.go") {
					mu.Lock()
					sawUpstream = true
					mu.Unlock()
				}
			}
		},
		responses: map[int]string{
			0: "=== FILE: base.go ===\npackage base\n",
			1: "=== FILE: dep.go ===\npackage dep\n",
		},
	}
	writer := newMemWriter()

	driver := buildDriver(t, []*promptfile.Prompt{base, dependent}, provider, writer)
	_, err := driver.Run(context.Background(), []string{"base.prompt.md", "dep.prompt.md"})
	require.NoError(t, err)

	assert.True(t, sawUpstream, "dependent prompt's context should include the upstream generated file")
}

func TestRun_PatchReconciliationMergesCleanly(t *testing.T) {
	p := simplePrompt("a.prompt.md", []string{"a.go"}, nil)
	writer := newMemWriter()

	d, err := dag.Build([]*promptfile.Prompt{p})
	require.NoError(t, err)
	cache, err := hashcache.NewStore(t.TempDir())
	require.NoError(t, err)
	patches, err := patch.NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, patches.Save("a.go", "package a\n\nfunc Old() {}\n", "package a\n\nfunc Old() {}\n\nfunc UserAdded() {}\n"))

	provider := &stubProvider{text: "=== FILE: a.go ===\npackage a\n\nfunc Old() {}\n\nfunc NewGen() {}\n"}
	driver := NewDriver(d, []*promptfile.Prompt{p}, cache, patches, provider, writer, Options{
		Language: "go", Framework: "none", ModelName: "test-model",
	})

	rec, err := driver.Run(context.Background(), []string{"a.prompt.md"})
	require.NoError(t, err)

	content, ok, err := writer.ReadFile("a.go")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, content, "UserAdded")
	assert.Contains(t, content, "NewGen")
	assert.Empty(t, rec.Prompts[0].Conflicted)
}

func TestRun_ProviderFailureAbortsRun(t *testing.T) {
	p := simplePrompt("a.prompt.md", []string{"a.go"}, nil)
	provider := &stubProvider{err: fmt.Errorf("boom")}
	writer := newMemWriter()

	driver := buildDriver(t, []*promptfile.Prompt{p}, provider, writer)
	_, err := driver.Run(context.Background(), []string{"a.prompt.md"})
	assert.Error(t, err)
}

func TestRun_CostAccumulatesAcrossPrompts(t *testing.T) {
	a := simplePrompt("a.prompt.md", []string{"a.go"}, nil)
	b := simplePrompt("b.prompt.md", []string{"b.go"}, nil)
	provider := &recordingProvider{
		responses: map[int]string{
			0: "=== FILE: a.go ===\npackage a\n",
			1: "=== FILE: b.go ===\npackage b\n",
		},
	}
	writer := newMemWriter()

	d, err := dag.Build([]*promptfile.Prompt{a, b})
	require.NoError(t, err)
	cache, err := hashcache.NewStore(t.TempDir())
	require.NoError(t, err)
	patches, err := patch.NewStore(t.TempDir())
	require.NoError(t, err)
	driver := NewDriver(d, []*promptfile.Prompt{a, b}, cache, patches, provider, writer, Options{
		Language: "go", Framework: "none", ModelName: "test-model",
		Pricing: llmprovider.Pricing{InputPerMillion: 1_000_000, OutputPerMillion: 1_000_000},
	})

	rec, err := driver.Run(context.Background(), []string{"a.prompt.md", "b.prompt.md"})
	require.NoError(t, err)
	assert.Greater(t, rec.TotalCostUSD, 0.0)
}

func TestRun_IncrementalRegenerationSeedsUnprocessedAncestor(t *testing.T) {
	a := simplePrompt("a.prompt.md", []string{"a.go"}, nil)
	b := simplePrompt("b.prompt.md", []string{"b.go"}, []string{"a.prompt.md"})
	c := simplePrompt("c.prompt.md", []string{"c.go"}, []string{"b.prompt.md"})

	d, err := dag.Build([]*promptfile.Prompt{a, b, c})
	require.NoError(t, err)
	cacheDir := t.TempDir()
	cache, err := hashcache.NewStore(cacheDir)
	require.NoError(t, err)
	patches, err := patch.NewStore(t.TempDir())
	require.NoError(t, err)
	writer := newMemWriter()

	full := &recordingProvider{responses: map[int]string{
		0: "=== FILE: a.go ===\npackage a\n",
		1: "=== FILE: b.go ===\npackage b\n",
		2: "=== FILE: c.go ===\npackage c\n",
	}}
	driver := NewDriver(d, []*promptfile.Prompt{a, b, c}, cache, patches, full, writer, Options{
		Language: "go", Framework: "none", ModelName: "test-model",
	})
	fullRec, err := driver.Run(context.Background(), []string{"a.prompt.md", "b.prompt.md", "c.prompt.md"})
	require.NoError(t, err)
	var bHashFull string
	for _, p := range fullRec.Prompts {
		if p.Path == "b.prompt.md" {
			bHashFull = p.InputHash
		}
	}
	require.NotEmpty(t, bHashFull)

	// A second, fresh driver against the same cache mimics a later process
	// incrementally regenerating only b and its downstream c — a is never
	// in this run's dispatched levels. NoCache makes b and c reach the
	// provider even though their inputs are unchanged.
	var sawA bool
	var mu sync.Mutex
	incremental := &recordingProvider{
		onGenerate: func(req llmprovider.GenerateRequest) {
			for _, m := range req.Messages {
				if m.Role == "user" && strings.Contains(m.Content, "package a") {
					mu.Lock()
					sawA = true
					mu.Unlock()
				}
			}
		},
		responses: map[int]string{
			0: "=== FILE: b.go ===\npackage b\n",
			1: "=== FILE: c.go ===\npackage c\n",
		},
	}
	incDriver := NewDriver(d, []*promptfile.Prompt{a, b, c}, cache, patches, incremental, writer, Options{
		Language: "go", Framework: "none", ModelName: "test-model", NoCache: true,
	})
	incRec, err := incDriver.Run(context.Background(), []string{"b.prompt.md"})
	require.NoError(t, err)

	assert.True(t, sawA, "b's context should still include a's generated file even though a was not regenerated this run")

	var bHashIncremental string
	for _, p := range incRec.Prompts {
		if p.Path == "b.prompt.md" {
			bHashIncremental = p.InputHash
		}
	}
	assert.Equal(t, bHashFull, bHashIncremental, "b's input hash must match between a full run and an incremental run when a is unchanged")
}

// recordingProvider serves canned responses by call order and lets tests
// inspect each request before it answers.
type recordingProvider struct {
	mu         sync.Mutex
	n          int
	responses  map[int]string
	onGenerate func(llmprovider.GenerateRequest)
}

func (p *recordingProvider) Generate(_ context.Context, req llmprovider.GenerateRequest) (*llmprovider.GenerateResponse, error) {
	p.mu.Lock()
	idx := p.n
	p.n++
	p.mu.Unlock()

	if p.onGenerate != nil {
		p.onGenerate(req)
	}
	return &llmprovider.GenerateResponse{
		Text:  p.responses[idx],
		Usage: llmprovider.Usage{InputTokens: 10, OutputTokens: 20},
	}, nil
}

func (p *recordingProvider) Identify() string { return "recording" }
