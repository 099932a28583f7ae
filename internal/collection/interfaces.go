package collection

import (
	"context"

	"github.com/agentic-research/routegen/api"
	"github.com/agentic-research/routegen/internal/query"
	"github.com/agentic-research/routegen/internal/report"
	"github.com/agentic-research/routegen/internal/watch"
)

// Validator decides whether a pattern file is a usable collection route.
type Validator interface {
	// Valid reports whether the path of absPath is a well-formed templated
	// path. Diagnostics for invalid paths go through the Reporter.
	Valid(absPath string) bool
}

// QueryExtractor locates the collection query inside a pattern file.
type QueryExtractor interface {
	// Extract returns the query text, or ok=false when the file has none yet.
	Extract(absPath string) (string, bool)
}

// QueryExecutor runs a collection query.
type QueryExecutor interface {
	// Execute returns the query result. Query-level problems belong in
	// Result.Errors; a non-nil error means the executor itself failed and is
	// treated the same way.
	Execute(ctx context.Context, q string) (*query.Result, error)
}

// PageRegistrar makes a page visible to the rest of the build.
type PageRegistrar interface {
	CreatePage(p api.Page)
}

// Reporter is the diagnostics sink of a build.
type Reporter = report.Reporter

// Watcher is armed at the end of every cycle with the query that ran, the
// paths that were produced and how to run the cycle again.
type Watcher interface {
	Arm(patternID, q string, paths []string, rebuild watch.RebuildFunc)
}
