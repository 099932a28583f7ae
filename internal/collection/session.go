package collection

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Session builds many pattern files at once. Cycles of distinct patterns
// share nothing but the watcher and the page registry, so they run
// concurrently.
type Session struct {
	builder     *Builder
	concurrency int
	logger      *slog.Logger
}

// NewSession returns a Session running at most concurrency cycles at a time;
// concurrency <= 0 means no limit.
func NewSession(b *Builder, concurrency int) *Session {
	return &Session{builder: b, concurrency: concurrency, logger: b.logger}
}

// BuildAll runs one cycle per source and returns them in source order. The
// error wraps ErrBuildFailed when any cycle issued a build-fatal report, or is
// ctx's error if it was cancelled first.
func (s *Session) BuildAll(ctx context.Context, sources []Source) ([]*Cycle, error) {
	cycles := make([]*Cycle, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cycles[i] = s.builder.Build(gctx, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return cycles, err
	}

	var failed []string
	pages := 0
	for _, c := range cycles {
		pages += len(c.Paths)
		if c.Failed {
			failed = append(failed, c.Source.FilePath)
		}
	}
	s.logger.Info("collection build finished", "patterns", len(sources), "pages", pages, "failed", len(failed))

	if len(failed) > 0 {
		return cycles, fmt.Errorf("%w: %d pattern(s) could not resolve every placeholder: %v", ErrBuildFailed, len(failed), failed)
	}
	return cycles, nil
}
