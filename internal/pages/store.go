// Package pages holds the registry of generated pages and writes their page
// data to disk.
package pages

import (
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/agentic-research/routegen/api"
)

var ErrNotFound = errors.New("page not found")

// Sink mirrors store mutations somewhere durable.
type Sink interface {
	Write(p api.Page) error
	Remove(path string) error
}

// Store is the in-memory page registry. Pages are keyed by URL path; a
// roaring bitmap per component lets all pages of one collection be listed or
// dropped without scanning the whole registry.
type Store struct {
	mu    sync.RWMutex
	pages map[string]api.Page

	byComponent map[string]*roaring.Bitmap // component → bitmap of internal page IDs
	pageIntID   map[string]uint32          // page path → internal bitmap ID
	intToPath   []string                   // reverse: uint32 → page path
	nextIntID   uint32

	sink   Sink
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithSink mirrors every create and delete to s.
func WithSink(s Sink) Option {
	return func(st *Store) { st.sink = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(st *Store) { st.logger = l }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		pages:       make(map[string]api.Page),
		byComponent: make(map[string]*roaring.Bitmap),
		pageIntID:   make(map[string]uint32),
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePage registers p, replacing any page already at p.Path.
func (s *Store) CreatePage(p api.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.pages[p.Path]; ok && old.Component != p.Component {
		s.unindex(old)
	}
	s.pages[p.Path] = p
	s.index(p)

	if s.sink != nil {
		if err := s.sink.Write(p); err != nil {
			s.logger.Warn("write page data", "path", p.Path, "error", err)
		}
	}
}

// DeletePage removes the page at path if it belongs to component. An empty
// component matches any page.
func (s *Store) DeletePage(path, component string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pages[path]
	if !ok || (component != "" && p.Component != component) {
		return
	}
	s.remove(p)
}

// DeleteComponentPages removes every page created from component and returns
// their paths, sorted.
func (s *Store) DeleteComponentPages(component string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths := s.componentPaths(component)
	for _, path := range paths {
		s.remove(s.pages[path])
	}
	return paths
}

// GetPage returns the page registered at path.
func (s *Store) GetPage(path string) (api.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pages[path]
	if !ok {
		return api.Page{}, ErrNotFound
	}
	return p, nil
}

// ComponentPages lists the paths created from component, sorted.
func (s *Store) ComponentPages(component string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.componentPaths(component)
}

// Pages returns all registered pages sorted by path.
func (s *Store) Pages() []api.Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.Page, 0, len(s.pages))
	for _, p := range s.pages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages)
}

// Must be called with s.mu held.
func (s *Store) componentPaths(component string) []string {
	bm, ok := s.byComponent[component]
	if !ok {
		return nil
	}
	out := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		if path := s.intToPath[it.Next()]; path != "" {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// Must be called with s.mu held.
func (s *Store) remove(p api.Page) {
	delete(s.pages, p.Path)
	s.unindex(p)
	if intID, ok := s.pageIntID[p.Path]; ok {
		delete(s.pageIntID, p.Path)
		s.intToPath[intID] = ""
	}
	if s.sink != nil {
		if err := s.sink.Remove(p.Path); err != nil {
			s.logger.Warn("remove page data", "path", p.Path, "error", err)
		}
	}
}

// index assigns an internal bitmap ID and registers the page under its
// component. Must be called with s.mu held.
func (s *Store) index(p api.Page) {
	intID, ok := s.pageIntID[p.Path]
	if !ok {
		intID = s.nextIntID
		s.nextIntID++
		s.pageIntID[p.Path] = intID
		for uint32(len(s.intToPath)) <= intID {
			s.intToPath = append(s.intToPath, "")
		}
		s.intToPath[intID] = p.Path
	}
	bm, exists := s.byComponent[p.Component]
	if !exists {
		bm = roaring.New()
		s.byComponent[p.Component] = bm
	}
	bm.Add(intID)
}

// Must be called with s.mu held.
func (s *Store) unindex(p api.Page) {
	intID, ok := s.pageIntID[p.Path]
	if !ok {
		return
	}
	if bm, exists := s.byComponent[p.Component]; exists {
		bm.Remove(intID)
		if bm.IsEmpty() {
			delete(s.byComponent, p.Component)
		}
	}
}
