// Package collection builds the pages of a collection route: one page per
// record returned by the route's query, at the path derived from the route's
// templated file name.
package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agentic-research/routegen/api"
	"github.com/agentic-research/routegen/internal/derive"
	"github.com/agentic-research/routegen/internal/query"
	"github.com/agentic-research/routegen/internal/report"
	"github.com/agentic-research/routegen/internal/route"
)

// State is a step of a build cycle.
type State int

const (
	StateValidatingPattern State = iota + 1
	StateExtractingQuery
	StateExecutingQuery
	StateMappingRecords
	StateRegistering
	StateReporting
	StateWatching
)

func (s State) String() string {
	switch s {
	case StateValidatingPattern:
		return "ValidatingPattern"
	case StateExtractingQuery:
		return "ExtractingQuery"
	case StateExecutingQuery:
		return "ExecutingQuery"
	case StateMappingRecords:
		return "MappingRecords"
	case StateRegistering:
		return "Registering"
	case StateReporting:
		return "Reporting"
	case StateWatching:
		return "Watching"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Source is one pattern file.
type Source struct {
	// FilePath is relative to the pages directory and is the pattern
	// ("product/{Product.sku}.tsx").
	FilePath string
	// AbsPath identifies the page component and the watch entry.
	AbsPath string
}

// Cycle is the record of one build of a Source.
type Cycle struct {
	ID       string
	Source   Source
	States   []State
	Query    string
	Paths    []string
	Errors   int  // unresolved placeholders across all records
	Failed   bool // a build-fatal report was issued
	Started  time.Time
	Duration time.Duration
}

// Final returns the last state the cycle reached.
func (c *Cycle) Final() State {
	if len(c.States) == 0 {
		return 0
	}
	return c.States[len(c.States)-1]
}

func (c *Cycle) enter(s State) { c.States = append(c.States, s) }

// Options wires a Builder to its collaborators. Executor, Registrar,
// Reporter and Watcher are required.
type Options struct {
	Validator Validator // nil uses PatternValidator
	Extractor QueryExtractor
	Executor  QueryExecutor
	Registrar PageRegistrar
	Reporter  Reporter
	Watcher   Watcher

	Logger        *slog.Logger
	TrailingSlash bool

	// OnCycle, if set, sees every finished cycle, including rebuilds run
	// by the watcher.
	OnCycle func(*Cycle)
}

// Builder runs collection build cycles.
type Builder struct {
	opts   Options
	logger *slog.Logger
}

func NewBuilder(opts Options) *Builder {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Validator == nil {
		opts.Validator = PatternValidator{Reporter: opts.Reporter}
	}
	return &Builder{opts: opts, logger: opts.Logger}
}

// Build runs one cycle for src. It always ends by arming the watcher, so
// every outcome, including a pattern that is not ready yet, can heal on the
// next change. Build never returns an error: failures are reported through
// the Reporter and recorded on the Cycle.
func (b *Builder) Build(ctx context.Context, src Source) *Cycle {
	c := &Cycle{ID: uuid.NewString(), Source: src, Started: time.Now()}
	log := b.logger.With("cycle", c.ID, "pattern", src.FilePath)
	defer func() {
		c.Duration = time.Since(c.Started)
		log.Debug("cycle finished", "state", c.Final(), "pages", len(c.Paths), "errors", c.Errors, "duration", c.Duration)
		if b.opts.OnCycle != nil {
			b.opts.OnCycle(c)
		}
	}()

	c.enter(StateValidatingPattern)
	if !b.opts.Validator.Valid(src.AbsPath) {
		log.Debug("pattern not ready")
		b.watch(ctx, c)
		return c
	}

	c.enter(StateExtractingQuery)
	q, ok := "", false
	if b.opts.Extractor != nil {
		q, ok = b.opts.Extractor.Extract(src.AbsPath)
	}
	if !ok || strings.TrimSpace(q) == "" {
		log.Debug("no query found")
		b.watch(ctx, c)
		return c
	}
	c.Query = q

	c.enter(StateExecutingQuery)
	res, err := b.opts.Executor.Execute(ctx, q)
	if err != nil {
		res = query.Failure(err)
	}
	if res.Failed() {
		b.opts.Reporter.Error(report.Report{
			ID: report.PrefixID(report.CodeCollectionBuilder),
			SourceMessage: strings.TrimSpace("Tried to create pages from the collection builder.\n" +
				"Unfortunately, the query came back empty. There may be an error in your query:\n\n" +
				strings.Join(res.Messages(), "\n")),
			FilePath: src.AbsPath,
		})
		b.watch(ctx, c)
		return c
	}

	c.enter(StateMappingRecords)
	coll, err := query.Extract(res.Data)
	if err != nil {
		b.opts.Reporter.Error(report.Report{
			ID: report.PrefixID(report.CodeResultShape),
			SourceMessage: "Tried to create pages from the collection builder.\n" +
				"The query result must hold exactly one list of records: " + err.Error(),
			FilePath: src.AbsPath,
		})
		b.watch(ctx, c)
		return c
	}

	n := len(coll.Items)
	plural := "s"
	if n == 1 {
		plural = ""
	}
	b.opts.Reporter.Verbose(fmt.Sprintf("PageCreator: Creating %d page%s from %s", n, plural, src.FilePath))

	pages := make([]api.Page, 0, n)
	template := route.CreatePath(src.FilePath, b.opts.TrailingSlash)
	for _, rec := range coll.Items {
		derived := derive.Derive(src.FilePath, rec, derive.Options{Logger: log})
		c.Errors += derived.Errors

		path := route.CreatePath(derived.Path, b.opts.TrailingSlash)
		pageCtx := api.PageContext(route.ReverseLookup(rec, src.FilePath))
		pageCtx[api.ParamsKey] = route.CollectionParams(template, path)

		pages = append(pages, api.Page{
			Path:      path,
			MatchPath: route.MatchPath(path),
			Component: src.AbsPath,
			Context:   pageCtx,
		})
	}

	c.enter(StateRegistering)
	c.Paths = make([]string, 0, len(pages))
	for _, p := range pages {
		b.opts.Registrar.CreatePage(p)
		c.Paths = append(c.Paths, p.Path)
	}

	c.enter(StateReporting)
	if c.Errors > 0 {
		c.Failed = true
		b.opts.Reporter.PanicOnBuild(report.Report{
			ID: report.PrefixID(report.CodeGeneratePath),
			SourceMessage: fmt.Sprintf("Could not find a value in the node for %s. "+
				"Please make sure that the syntax is correct and supported.", src.FilePath),
			FilePath: src.AbsPath,
		})
	}

	b.watch(ctx, c)
	return c
}

func (b *Builder) watch(_ context.Context, c *Cycle) {
	c.enter(StateWatching)
	src := c.Source
	b.opts.Watcher.Arm(src.AbsPath, c.Query, append([]string(nil), c.Paths...), func(ctx context.Context) {
		b.Build(ctx, src)
	})
}

// ErrBuildFailed is returned by Session.BuildAll when a cycle issued a
// build-fatal report.
var ErrBuildFailed = errors.New("collection build failed")
