// Package manifest remembers, across runs, which pages every pattern file
// produced so page data left behind by a previous build can be removed.
package manifest

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/agentic-research/routegen/internal/watch"
)

const schema = `
CREATE TABLE IF NOT EXISTS pages (
	component TEXT NOT NULL,
	path TEXT NOT NULL,
	build_id TEXT NOT NULL,
	mtime INTEGER NOT NULL,
	PRIMARY KEY (component, path)
) WITHOUT ROWID;
CREATE INDEX IF NOT EXISTS idx_pages_path ON pages(path);
`

// Manifest is a SQLite table of (component, path) pairs.
type Manifest struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens or creates the manifest database at path.
func Open(path string) (*Manifest, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Manifest{db: db}, nil
}

// Load returns the recorded paths of every component, each list sorted.
func (m *Manifest) Load() (map[string][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, err := m.db.Query("SELECT component, path FROM pages ORDER BY component, path")
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	out := make(map[string][]string)
	for rows.Next() {
		var component, path string
		if err := rows.Scan(&component, &path); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out[component] = append(out[component], path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Components lists the recorded components, sorted.
func (m *Manifest) Components() ([]string, error) {
	all, err := m.Load()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for c := range all {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

// Replace records paths as the complete page set of component.
func (m *Manifest) Replace(component string, paths []string, buildID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	if err := replaceTx(tx, component, paths, buildID); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Forget drops every path recorded for component.
func (m *Manifest) Forget(component string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.db.Exec("DELETE FROM pages WHERE component = ?", component); err != nil {
		return fmt.Errorf("forget %s: %w", component, err)
	}
	return nil
}

// Sync reconciles the manifest with the page sets of a finished build.
// Every previously recorded path that no component produces anymore is
// passed to remove; current then replaces the recorded state. The removed
// paths are returned sorted.
func (m *Manifest) Sync(current map[string][]string, buildID string, remove func(path string) error) ([]string, error) {
	previous, err := m.Load()
	if err != nil {
		return nil, err
	}

	live := make(map[string]struct{})
	for _, paths := range current {
		for _, p := range paths {
			live[p] = struct{}{}
		}
	}

	var removed []string
	seen := make(map[string]struct{})
	for component, prev := range previous {
		for _, p := range watch.ComputeStale(prev, current[component]) {
			if _, ok := live[p]; ok {
				continue
			}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			if remove != nil {
				if err := remove(p); err != nil {
					return nil, fmt.Errorf("remove %s: %w", p, err)
				}
			}
			removed = append(removed, p)
		}
	}
	sort.Strings(removed)

	m.mu.Lock()
	defer m.mu.Unlock()
	tx, err := m.db.Begin()
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec("DELETE FROM pages"); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("clear pages: %w", err)
	}
	for component, paths := range current {
		if err := replaceTx(tx, component, paths, buildID); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return removed, nil
}

func replaceTx(tx *sql.Tx, component string, paths []string, buildID string) error {
	if _, err := tx.Exec("DELETE FROM pages WHERE component = ?", component); err != nil {
		return fmt.Errorf("clear %s: %w", component, err)
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO pages (component, path, build_id, mtime) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UnixNano()
	for _, p := range paths {
		if _, err := stmt.Exec(component, p, buildID, now); err != nil {
			return fmt.Errorf("insert %s: %w", p, err)
		}
	}
	return nil
}

// Close closes the database.
func (m *Manifest) Close() error {
	return m.db.Close()
}
