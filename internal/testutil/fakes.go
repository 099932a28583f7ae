// Package testutil holds in-memory collaborators for exercising collection
// builds without a filesystem, database or watcher.
package testutil

import (
	"context"
	"sync"

	"github.com/agentic-research/routegen/internal/query"
	"github.com/agentic-research/routegen/internal/report"
	"github.com/agentic-research/routegen/internal/watch"
)

// Reporter records every diagnostic it receives.
type Reporter struct {
	mu       sync.Mutex
	Verboses []string
	Warns    []string
	Errors   []report.Report
	Panics   []report.Report
}

func (r *Reporter) Verbose(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Verboses = append(r.Verboses, msg)
}

func (r *Reporter) Warn(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warns = append(r.Warns, msg)
}

func (r *Reporter) Error(rep report.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, rep)
}

func (r *Reporter) PanicOnBuild(rep report.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Panics = append(r.Panics, rep)
}

// Extractor returns a fixed query per absolute path.
type Extractor map[string]string

func (e Extractor) Extract(absPath string) (string, bool) {
	q, ok := e[absPath]
	return q, ok
}

// Executor returns a canned result per query. Unknown queries return an
// empty, failed result.
type Executor struct {
	mu      sync.Mutex
	Results map[string]*query.Result
	Err     error
	Calls   []string
}

// Nodes builds the usual { root: { nodes: [...] } } result.
func Nodes(records ...map[string]any) *query.Result {
	items := make([]any, len(records))
	for i, r := range records {
		items[i] = r
	}
	return &query.Result{Data: map[string]any{"allRecords": map[string]any{query.KeyNodes: items}}}
}

func (e *Executor) Set(q string, res *query.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Results == nil {
		e.Results = make(map[string]*query.Result)
	}
	e.Results[q] = res
}

func (e *Executor) Execute(_ context.Context, q string) (*query.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls = append(e.Calls, q)
	if e.Err != nil {
		return nil, e.Err
	}
	if res, ok := e.Results[q]; ok {
		return res, nil
	}
	return &query.Result{}, nil
}

// Arm is one recorded Watcher.Arm call.
type Arm struct {
	ID      string
	Query   string
	Paths   []string
	Rebuild watch.RebuildFunc
}

// Watcher records arms without watching anything.
type Watcher struct {
	mu   sync.Mutex
	Arms []Arm
}

func (w *Watcher) Arm(id, q string, paths []string, rebuild watch.RebuildFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Arms = append(w.Arms, Arm{ID: id, Query: q, Paths: paths, Rebuild: rebuild})
}

// Last returns the most recent arm for id.
func (w *Watcher) Last(id string) (Arm, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := len(w.Arms) - 1; i >= 0; i-- {
		if w.Arms[i].ID == id {
			return w.Arms[i], true
		}
	}
	return Arm{}, false
}
