package cmd

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/uuid"

	"github.com/agentic-research/routegen/internal/collection"
	"github.com/agentic-research/routegen/internal/config"
	"github.com/agentic-research/routegen/internal/manifest"
	"github.com/agentic-research/routegen/internal/output"
	"github.com/agentic-research/routegen/internal/pages"
	"github.com/agentic-research/routegen/internal/query"
	"github.com/agentic-research/routegen/internal/report"
	"github.com/agentic-research/routegen/internal/watch"
)

// executor is a query executor that may hold resources.
type executor interface {
	Execute(ctx context.Context, q string) (*query.Result, error)
	Close() error
}

type jsonExecutor struct{ *query.JSONExecutor }

func (jsonExecutor) Close() error { return nil }

func newExecutor(cfg *config.Config) (executor, error) {
	kind, err := cfg.DataKind()
	if err != nil {
		return nil, err
	}
	switch kind {
	case config.DataSQLite:
		return query.NewSQLiteExecutor(cfg.DataSource), nil
	case config.DataJSON:
		return jsonExecutor{query.NewJSONExecutor(cfg.DataSource)}, nil
	}
	return nil, fmt.Errorf("unsupported data source %s", cfg.DataSource)
}

// app wires one run of the collection builder: page registry, page-data
// writer, manifest, watcher and executor.
type app struct {
	cfg      *config.Config
	buildID  string
	logger   *slog.Logger
	reporter *report.LogReporter

	exec      executor
	extractor *query.SourceExtractor
	writer    *pages.DataWriter
	store     *pages.Store
	manifest  *manifest.Manifest
	coord     *watch.Coordinator
	builder   *collection.Builder

	// watching flips once the initial build is synced; later cycles update
	// the manifest one component at a time.
	watching atomic.Bool
	ctx      context.Context
}

func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := output.NewLogger(logOut, cfg.Verbose)
	a := &app{
		cfg:      cfg,
		buildID:  uuid.NewString(),
		logger:   logger,
		reporter: report.NewLogReporter(logger),
		ctx:      ctx,
	}

	exec, err := newExecutor(cfg)
	if err != nil {
		return nil, err
	}
	a.exec = exec

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	a.writer, err = pages.NewDataWriter(osfs.New(cfg.OutputDir))
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.ManifestPath), 0o755); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("create manifest dir: %w", err)
	}
	a.manifest, err = manifest.Open(cfg.ManifestPath)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.extractor = query.NewSourceExtractor(cfg.QueryTags, logger)
	a.store = pages.NewStore(pages.WithSink(a.writer), pages.WithLogger(logger))
	a.coord = watch.New(watch.Options{
		Remover:   a.store,
		Extractor: a.extractor,
		Executor:  exec,
		Logger:    logger,
		Debounce:  cfg.Debounce(),
		Discover:  a.discover,
		Removed:   a.removed,
	})
	a.builder = collection.NewBuilder(collection.Options{
		Extractor:     a.extractor,
		Executor:      a.coord.Track(exec),
		Registrar:     a.store,
		Reporter:      a.reporter,
		Watcher:       a.coord,
		Logger:        logger,
		TrailingSlash: cfg.TrailingSlash,
		OnCycle:       a.onCycle,
	})
	return a, nil
}

// sources lists the collection route components under the pages directory.
func (a *app) sources() ([]collection.Source, error) {
	root, err := filepath.Abs(a.cfg.PagesDir)
	if err != nil {
		return nil, err
	}
	var out []collection.Source
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if src, ok := sourceFor(root, p); ok {
			out = append(out, src)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FilePath < out[j].FilePath })
	return out, nil
}

// sourceFor reports whether absPath is a collection route component under
// root: a parseable component whose path relative to root holds a "{".
func sourceFor(root, absPath string) (collection.Source, bool) {
	rel, err := filepath.Rel(root, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return collection.Source{}, false
	}
	rel = filepath.ToSlash(rel)
	if !strings.Contains(rel, "{") {
		return collection.Source{}, false
	}
	if _, ok := query.LanguageForExt(strings.ToLower(filepath.Ext(rel))); !ok {
		return collection.Source{}, false
	}
	return collection.Source{FilePath: rel, AbsPath: absPath}, true
}

// build runs every collection route once, then removes page data that a
// previous run produced and this one did not.
func (a *app) build(ctx context.Context) ([]*collection.Cycle, error) {
	srcs, err := a.sources()
	if err != nil {
		return nil, err
	}
	a.logger.Info("building collection routes", "patterns", len(srcs), "pages_dir", a.cfg.PagesDir)

	cycles, buildErr := collection.NewSession(a.builder, a.cfg.Concurrency).BuildAll(ctx, srcs)
	if ctx.Err() != nil {
		return cycles, buildErr
	}

	current := make(map[string][]string, len(cycles))
	for _, c := range cycles {
		if c != nil {
			current[c.Source.AbsPath] = c.Paths
		}
	}
	removed, err := a.manifest.Sync(current, a.buildID, a.writer.Remove)
	if err != nil {
		return cycles, fmt.Errorf("sync manifest: %w", err)
	}
	if len(removed) > 0 {
		a.logger.Info("removed stale page data", "pages", len(removed))
	}
	a.watching.Store(true)
	return cycles, buildErr
}

// onCycle keeps the manifest current for rebuilds run while watching and
// summarises each one; rebuilds run one at a time, so the reporter counts
// belong to c alone.
func (a *app) onCycle(c *collection.Cycle) {
	if !a.watching.Load() {
		return
	}
	if err := a.manifest.Replace(c.Source.AbsPath, c.Paths, a.buildID); err != nil {
		a.logger.Warn("update manifest", "component", c.Source.AbsPath, "error", err)
	}
	if n := len(a.reporter.Failures()); n > 0 || a.reporter.Errors() > 0 {
		a.logger.Warn("rebuild finished with errors", "pattern", c.Source.FilePath, "errors", a.reporter.Errors(), "fatal", n)
	} else {
		a.logger.Info("rebuilt", "pattern", c.Source.FilePath, "pages", len(c.Paths))
	}
	a.reporter.Reset()
}

// removed drops a deleted collection route from the manifest.
func (a *app) removed(absPath string) {
	if err := a.manifest.Forget(absPath); err != nil {
		a.logger.Warn("update manifest", "component", absPath, "error", err)
	}
}

// discover builds a collection route created while watching.
func (a *app) discover(absPath string) {
	root, err := filepath.Abs(a.cfg.PagesDir)
	if err != nil {
		return
	}
	src, ok := sourceFor(root, absPath)
	if !ok {
		return
	}
	if _, err := os.Stat(absPath); err != nil {
		return
	}
	a.logger.Info("new collection route", "pattern", src.FilePath)
	a.builder.Build(a.ctx, src)
}

func (a *app) Close() error {
	var firstErr error
	if a.exec != nil {
		if err := a.exec.Close(); err != nil {
			firstErr = err
		}
	}
	if a.manifest != nil {
		if err := a.manifest.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
