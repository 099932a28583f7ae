package collection

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/routegen/api"
	"github.com/agentic-research/routegen/internal/pages"
	"github.com/agentic-research/routegen/internal/query"
	"github.com/agentic-research/routegen/internal/report"
	"github.com/agentic-research/routegen/internal/testutil"
)

const pagesRoot = "/site/src/pages/"

type harness struct {
	reporter *testutil.Reporter
	executor *testutil.Executor
	watcher  *testutil.Watcher
	store    *pages.Store
	queries  testutil.Extractor
	builder  *Builder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		reporter: &testutil.Reporter{},
		executor: &testutil.Executor{},
		watcher:  &testutil.Watcher{},
		store:    pages.NewStore(),
		queries:  testutil.Extractor{},
	}
	h.builder = NewBuilder(Options{
		Extractor:     h.queries,
		Executor:      h.executor,
		Registrar:     h.store,
		Reporter:      h.reporter,
		Watcher:       h.watcher,
		TrailingSlash: true,
	})
	return h
}

// source registers pattern with query q and the records it returns.
func (h *harness) source(pattern, q string, records ...map[string]any) Source {
	src := Source{FilePath: pattern, AbsPath: pagesRoot + pattern}
	if q != "" {
		h.queries[src.AbsPath] = q
		h.executor.Set(q, testutil.Nodes(records...))
	}
	return src
}

func TestBuild_ScenarioA(t *testing.T) {
	h := newHarness(t)
	src := h.source("product/{Product.sku__en}.js", "products",
		map[string]any{"id": "p1", "sku": map[string]any{"en": "Blue Hat"}})

	c := h.builder.Build(context.Background(), src)

	assert.Equal(t, []string{"/product/blue-hat/"}, c.Paths)
	assert.Zero(t, c.Errors)
	assert.False(t, c.Failed)
	assert.Empty(t, h.reporter.Errors)
	assert.Empty(t, h.reporter.Panics)

	p, err := h.store.GetPage("/product/blue-hat/")
	require.NoError(t, err)
	assert.Equal(t, src.AbsPath, p.Component)
	assert.Empty(t, p.MatchPath)
	assert.Equal(t, "p1", p.Context["id"])
	assert.Equal(t, "Blue Hat", p.Context["sku__en"])
	assert.Equal(t, map[string]string{"sku__en": "blue-hat"}, p.Context.Params())
}

func TestBuild_ScenarioB(t *testing.T) {
	h := newHarness(t)
	src := h.source("blog/{MarkdownRemark.parent__(File)__relativePath}.js", "posts",
		map[string]any{"id": "m1", "parent": map[string]any{"relativePath": "posts/2023/a.md"}})

	c := h.builder.Build(context.Background(), src)

	assert.Equal(t, []string{"/blog/posts/2023/a-md/"}, c.Paths)
	assert.Zero(t, c.Errors)

	p, err := h.store.GetPage("/blog/posts/2023/a-md/")
	require.NoError(t, err)
	assert.Equal(t, "posts/2023/a.md", p.Context["parent__relativePath"])
	assert.Equal(t, map[string]string{"parent__relativePath": "posts/2023/a-md"}, p.Context.Params())
}

func TestBuild_ScenarioC_OneFatalReportPerBatch(t *testing.T) {
	h := newHarness(t)
	src := h.source("product/{Product.missingField}.js", "products",
		map[string]any{}, map[string]any{"id": "x"}, map[string]any{"id": "y"})

	c := h.builder.Build(context.Background(), src)

	assert.Equal(t, 3, c.Errors)
	assert.True(t, c.Failed)
	require.Len(t, h.reporter.Panics, 1)
	assert.Equal(t, report.PrefixID(report.CodeGeneratePath), h.reporter.Panics[0].ID)
	assert.Contains(t, h.reporter.Panics[0].SourceMessage, src.FilePath)
	assert.Equal(t, src.AbsPath, h.reporter.Panics[0].FilePath)

	// Pages keep the literal placeholder and are still registered.
	assert.Equal(t, []string{"/product/{Product.missingField}/"}, h.store.ComponentPages(src.AbsPath))

	arm, ok := h.watcher.Last(src.AbsPath)
	require.True(t, ok)
	assert.Len(t, arm.Paths, 3)
	assert.Equal(t, StateWatching, c.Final())
}

func TestBuild_ScenarioD_QueryErrors(t *testing.T) {
	h := newHarness(t)
	src := h.source("product/{Product.sku}.js", "")
	h.queries[src.AbsPath] = "broken"
	h.executor.Set("broken", &query.Result{Errors: []query.Error{{Message: "bad field"}}})

	c := h.builder.Build(context.Background(), src)

	require.Len(t, h.reporter.Errors, 1)
	assert.Equal(t, report.PrefixID(report.CodeCollectionBuilder), h.reporter.Errors[0].ID)
	assert.Contains(t, h.reporter.Errors[0].SourceMessage, "bad field")
	assert.Equal(t, src.AbsPath, h.reporter.Errors[0].FilePath)
	assert.Empty(t, h.reporter.Panics)

	arm, ok := h.watcher.Last(src.AbsPath)
	require.True(t, ok)
	assert.Equal(t, "broken", arm.Query)
	assert.Empty(t, arm.Paths)
	assert.Zero(t, h.store.Len())
	assert.Equal(t, []State{StateValidatingPattern, StateExtractingQuery, StateExecutingQuery, StateWatching}, c.States)
}

func TestBuild_QueryErrorMessagesJoined(t *testing.T) {
	h := newHarness(t)
	src := h.source("product/{Product.sku}.js", "")
	h.queries[src.AbsPath] = "broken"
	h.executor.Set("broken", &query.Result{Errors: []query.Error{{Message: "first"}, {Message: "second"}}})

	h.builder.Build(context.Background(), src)

	require.Len(t, h.reporter.Errors, 1)
	assert.Contains(t, h.reporter.Errors[0].SourceMessage, "first\nsecond")
}

func TestBuild_ExecutorErrorIsQueryFailure(t *testing.T) {
	h := newHarness(t)
	src := h.source("product/{Product.sku}.js", "products")
	h.executor.Err = errors.New("database is locked")

	h.builder.Build(context.Background(), src)

	require.Len(t, h.reporter.Errors, 1)
	assert.Contains(t, h.reporter.Errors[0].SourceMessage, "database is locked")
	arm, _ := h.watcher.Last(src.AbsPath)
	assert.Equal(t, "products", arm.Query)
}

func TestBuild_UnexpectedShape(t *testing.T) {
	h := newHarness(t)
	src := h.source("product/{Product.sku}.js", "")
	h.queries[src.AbsPath] = "two-roots"
	h.executor.Set("two-roots", &query.Result{Data: map[string]any{
		"a": map[string]any{"nodes": []any{}},
		"b": map[string]any{"nodes": []any{}},
	}})

	c := h.builder.Build(context.Background(), src)

	require.Len(t, h.reporter.Errors, 1)
	assert.Equal(t, report.PrefixID(report.CodeResultShape), h.reporter.Errors[0].ID)
	assert.Equal(t, StateWatching, c.Final())
	assert.Contains(t, c.States, StateMappingRecords)
	arm, _ := h.watcher.Last(src.AbsPath)
	assert.Equal(t, "two-roots", arm.Query)
	assert.Empty(t, arm.Paths)
}

func TestBuild_InvalidPatternIsNotReady(t *testing.T) {
	h := newHarness(t)
	src := h.source("product/{product.sku}.js", "products", map[string]any{"sku": "x"})

	c := h.builder.Build(context.Background(), src)

	assert.Equal(t, []State{StateValidatingPattern, StateWatching}, c.States)
	assert.Empty(t, h.reporter.Errors)
	assert.Empty(t, h.reporter.Panics)
	require.Len(t, h.reporter.Warns, 1)
	assert.Contains(t, h.reporter.Warns[0], report.PrefixID(report.CodeCollectionPath))
	assert.Empty(t, h.executor.Calls)

	arm, ok := h.watcher.Last(src.AbsPath)
	require.True(t, ok)
	assert.Empty(t, arm.Query)
	assert.Empty(t, arm.Paths)
	assert.NotNil(t, arm.Rebuild)
}

func TestBuild_NoQueryIsNotReady(t *testing.T) {
	h := newHarness(t)
	src := h.source("product/{Product.sku}.js", "")

	c := h.builder.Build(context.Background(), src)

	assert.Equal(t, []State{StateValidatingPattern, StateExtractingQuery, StateWatching}, c.States)
	assert.Empty(t, h.reporter.Errors)
	assert.Empty(t, h.executor.Calls)
	arm, _ := h.watcher.Last(src.AbsPath)
	assert.Empty(t, arm.Query)
}

func TestBuild_FullStateSequence(t *testing.T) {
	h := newHarness(t)
	src := h.source("product/{Product.sku}.js", "products", map[string]any{"sku": "a"}, map[string]any{"sku": "b"})

	c := h.builder.Build(context.Background(), src)

	assert.Equal(t, []State{
		StateValidatingPattern, StateExtractingQuery, StateExecutingQuery,
		StateMappingRecords, StateRegistering, StateReporting, StateWatching,
	}, c.States)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, []string{"PageCreator: Creating 2 pages from product/{Product.sku}.js"}, h.reporter.Verboses)
}

func TestBuild_PartialSuccessInRecordOrder(t *testing.T) {
	h := newHarness(t)
	src := h.source("{Product.category}/{Product.sku}.js", "products",
		map[string]any{"category": "hats", "sku": "b"},
		map[string]any{"sku": "a"},
		map[string]any{"category": "hats", "sku": "c"},
	)

	c := h.builder.Build(context.Background(), src)

	assert.Equal(t, []string{"/hats/b/", "/{Product.category}/a/", "/hats/c/"}, c.Paths)
	assert.Equal(t, 1, c.Errors)
	assert.Len(t, h.reporter.Panics, 1)
	assert.Equal(t, 3, h.store.Len())
}

func TestBuild_MatchPath(t *testing.T) {
	h := newHarness(t)
	src := h.source("product/{Product.sku}/[variant].js", "products", map[string]any{"sku": "Blue Hat"})

	h.builder.Build(context.Background(), src)

	p, err := h.store.GetPage("/product/blue-hat/[variant]/")
	require.NoError(t, err)
	assert.Equal(t, "/product/blue-hat/:variant", p.MatchPath)
}

func TestBuild_RebuildFromArm(t *testing.T) {
	h := newHarness(t)
	src := h.source("product/{Product.sku}.js", "products", map[string]any{"sku": "a"})

	h.builder.Build(context.Background(), src)
	h.executor.Set("products", testutil.Nodes(map[string]any{"sku": "a"}, map[string]any{"sku": "b"}))

	arm, ok := h.watcher.Last(src.AbsPath)
	require.True(t, ok)
	arm.Rebuild(context.Background())

	assert.Len(t, h.watcher.Arms, 2)
	last, _ := h.watcher.Last(src.AbsPath)
	assert.Equal(t, []string{"/product/a/", "/product/b/"}, last.Paths)
}

func TestBuild_OnCycle(t *testing.T) {
	h := newHarness(t)
	var seen []*Cycle
	h.builder.opts.OnCycle = func(c *Cycle) { seen = append(seen, c) }
	src := h.source("product/{Product.sku}.js", "products", map[string]any{"sku": "a"})

	c := h.builder.Build(context.Background(), src)

	require.Len(t, seen, 1)
	assert.Same(t, c, seen[0])
	assert.False(t, seen[0].Started.IsZero())
}

func TestBuild_GoldenPageSet(t *testing.T) {
	h := newHarness(t)
	src := h.source("shop/{Product.category}/{Product.sku__en}.js", "products",
		map[string]any{"id": "p1", "category": "Hats", "sku": map[string]any{"en": "Blue Hat"}},
		map[string]any{"id": "p2", "category": "Scarves", "sku": map[string]any{"en": "Red Scarf"}},
	)

	h.builder.Build(context.Background(), src)

	b, err := json.MarshalIndent(h.store.Pages(), "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "shop_pages", b)
}

func TestPageContextReservedKey(t *testing.T) {
	h := newHarness(t)
	src := h.source("product/{Product.sku}.js", "products", map[string]any{"id": "1", "sku": "a"})
	h.builder.Build(context.Background(), src)

	p, err := h.store.GetPage("/product/a/")
	require.NoError(t, err)
	_, ok := p.Context[api.ParamsKey]
	assert.True(t, ok)
}
