// Package watch keeps generated pages in sync with their pattern files and
// data source.
//
// Every collection build ends by arming the Coordinator with the query it ran
// and the page paths it produced. Detected changes queue that pattern's
// rebuild; the queue is drained by a single loop so a rebuild never runs
// inside another. When the rebuilt cycle re-arms, pages it no longer
// produces are deleted.
package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/agentic-research/routegen/internal/query"
)

// DefaultDebounce is how long file events are collected before dispatch.
const DefaultDebounce = 100 * time.Millisecond

// RebuildFunc reruns the collection build of one pattern.
type RebuildFunc func(ctx context.Context)

type PageRemover interface {
	DeletePage(path, component string)
}

// ComponentRemover is implemented by removers that index pages by component.
// SourceRemoved prefers it so pages registered outside the armed set go too.
type ComponentRemover interface {
	DeleteComponentPages(component string) []string
}

type QueryExtractor interface {
	Extract(absPath string) (string, bool)
}

type QueryExecutor interface {
	Execute(ctx context.Context, q string) (*query.Result, error)
}

// Options configures a Coordinator. Remover is required.
type Options struct {
	Remover   PageRemover
	Extractor QueryExtractor // re-reads a changed source's query; nil rebuilds on every change
	Executor  QueryExecutor  // re-runs armed queries on data changes; nil rebuilds on every change
	Logger    *slog.Logger
	Debounce  time.Duration

	// Discover is called for created pattern files that were never armed.
	Discover func(absPath string)
	// Removed is called after an armed pattern file was removed and its
	// pages deleted.
	Removed func(absPath string)
}

type entry struct {
	query       string
	paths       []string
	rebuild     RebuildFunc
	fingerprint string
}

// Coordinator tracks one entry per armed pattern file, keyed by its
// absolute path (which is also the component of every page it produced).
type Coordinator struct {
	opts   Options
	logger *slog.Logger

	mu           sync.Mutex
	entries      map[string]*entry
	fingerprints map[string]string // query → fingerprint of its last result
	pending      []string
	queued       map[string]bool

	wake chan struct{}
}

func New(opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Coordinator{
		opts:         opts,
		logger:       opts.Logger,
		entries:      make(map[string]*entry),
		fingerprints: make(map[string]string),
		queued:       make(map[string]bool),
		wake:         make(chan struct{}, 1),
	}
}

// Arm records the outcome of a build of id. Re-arming with the same query
// and paths changes nothing; otherwise pages from the previous arm that are
// missing from paths are deleted.
func (c *Coordinator) Arm(id, q string, paths []string, rebuild RebuildFunc) {
	paths = append([]string(nil), paths...)

	c.mu.Lock()
	old := c.entries[id]
	fp := c.fingerprints[q]
	if old != nil && old.query == q && samePaths(old.paths, paths) {
		old.rebuild = rebuild
		old.fingerprint = fp
		c.mu.Unlock()
		return
	}
	var stale []string
	if old != nil {
		stale = ComputeStale(old.paths, paths)
	}
	c.entries[id] = &entry{query: q, paths: paths, rebuild: rebuild, fingerprint: fp}
	c.mu.Unlock()

	c.logger.Debug("armed", "component", id, "pages", len(paths), "stale", len(stale))
	for _, p := range stale {
		c.opts.Remover.DeletePage(p, id)
	}
}

// Armed reports the query and paths currently armed for id.
func (c *Coordinator) Armed(id string) (q string, paths []string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return "", nil, false
	}
	return e.query, append([]string(nil), e.paths...), true
}

// Track wraps exec so the fingerprint of every result is remembered and
// attached to the next Arm with the same query.
func (c *Coordinator) Track(exec QueryExecutor) QueryExecutor {
	return &trackingExecutor{next: exec, c: c}
}

type trackingExecutor struct {
	next QueryExecutor
	c    *Coordinator
}

func (t *trackingExecutor) Execute(ctx context.Context, q string) (*query.Result, error) {
	res, err := t.next.Execute(ctx, q)
	fp := ""
	switch {
	case err != nil:
		// The next successful result must differ from whatever was armed
		// while the data source was unavailable.
		fp = query.Failure(err).Fingerprint()
	case res != nil:
		fp = res.Fingerprint()
	}
	if fp != "" {
		t.c.mu.Lock()
		t.c.fingerprints[q] = fp
		t.c.mu.Unlock()
	}
	return res, err
}

// SourceChanged handles a write to a pattern file. The rebuild is only
// queued when the file's query text changed.
func (c *Coordinator) SourceChanged(absPath string) {
	c.mu.Lock()
	e, ok := c.entries[absPath]
	var armedQuery string
	if ok {
		armedQuery = e.query
	}
	c.mu.Unlock()

	if !ok {
		if c.opts.Discover != nil {
			c.opts.Discover(absPath)
		}
		return
	}

	if c.opts.Extractor != nil {
		q, _ := c.opts.Extractor.Extract(absPath)
		if q == armedQuery {
			c.logger.Debug("query unchanged", "component", absPath)
			return
		}
	}
	c.enqueue(absPath)
}

// SourceRemoved deletes every page produced from absPath and forgets it.
func (c *Coordinator) SourceRemoved(absPath string) {
	c.mu.Lock()
	e, ok := c.entries[absPath]
	delete(c.entries, absPath)
	if c.queued[absPath] {
		delete(c.queued, absPath)
		for i, id := range c.pending {
			if id == absPath {
				c.pending = append(c.pending[:i], c.pending[i+1:]...)
				break
			}
		}
	}
	c.mu.Unlock()

	if !ok {
		return
	}
	if cr, ok := c.opts.Remover.(ComponentRemover); ok {
		removed := cr.DeleteComponentPages(absPath)
		c.logger.Debug("source removed", "component", absPath, "pages", len(removed))
	} else {
		c.logger.Debug("source removed", "component", absPath, "pages", len(e.paths))
		for _, p := range e.paths {
			c.opts.Remover.DeletePage(p, absPath)
		}
	}
	if c.opts.Removed != nil {
		c.opts.Removed(absPath)
	}
}

// DataChanged re-executes every armed query and queues the rebuild of the
// patterns whose result changed.
func (c *Coordinator) DataChanged(ctx context.Context) {
	type armed struct{ id, query, fingerprint string }

	c.mu.Lock()
	var all []armed
	for id, e := range c.entries {
		all = append(all, armed{id: id, query: e.query, fingerprint: e.fingerprint})
	}
	c.mu.Unlock()

	for _, a := range all {
		if a.query == "" {
			continue
		}
		if c.opts.Executor != nil && a.fingerprint != "" {
			res, err := c.opts.Executor.Execute(ctx, a.query)
			if err == nil && res.Fingerprint() == a.fingerprint {
				continue
			}
		}
		c.enqueue(a.id)
	}
}

func (c *Coordinator) enqueue(id string) {
	c.mu.Lock()
	if _, ok := c.entries[id]; !ok || c.queued[id] {
		c.mu.Unlock()
		return
	}
	c.queued[id] = true
	c.pending = append(c.pending, id)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Pending returns the ids waiting for a rebuild, in queue order.
func (c *Coordinator) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.pending...)
}

// RunPending drains the rebuild queue on the calling goroutine and returns how
// many rebuilds ran. A change detected during a rebuild is queued behind it.
func (c *Coordinator) RunPending(ctx context.Context) int {
	n := 0
	for ctx.Err() == nil {
		c.mu.Lock()
		if len(c.pending) == 0 {
			c.mu.Unlock()
			break
		}
		id := c.pending[0]
		c.pending = c.pending[1:]
		delete(c.queued, id)
		var rebuild RebuildFunc
		if e, ok := c.entries[id]; ok {
			rebuild = e.rebuild
		}
		c.mu.Unlock()

		if rebuild == nil {
			continue
		}
		c.logger.Debug("rebuilding", "component", id)
		rebuild(ctx)
		n++
	}
	return n
}
