package query

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// RootKey is the top-level key executors nest their rows under.
const RootKey = "query"

var groupByRe = regexp.MustCompile(`(?i)\bgroup\s+by\b`)

// SQLiteExecutor runs SQL collection queries against a read-only SQLite
// database. Every row becomes one record. Column names containing "__" or
// "." build nested objects ("sku__en" -> {"sku": {"en": ...}}) and text
// columns holding a JSON object or array are decoded in place.
//
// Queries whose outermost SELECT has a GROUP BY clause are returned under
// "group", everything else under "nodes". The label is inferred from the
// query text, not from the rows.
type SQLiteExecutor struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

func NewSQLiteExecutor(path string) *SQLiteExecutor {
	return &SQLiteExecutor{path: path}
}

// Execute implements the collection QueryExecutor. SQL errors end up in
// Result.Errors; only a database that cannot be opened returns an error.
func (e *SQLiteExecutor) Execute(ctx context.Context, q string) (*Result, error) {
	db, err := e.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return Failure(fmt.Errorf("query: %w", err)), nil
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	cols, err := rows.Columns()
	if err != nil {
		return Failure(fmt.Errorf("columns: %w", err)), nil
	}

	items := make([]any, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Failure(fmt.Errorf("scan row: %w", err)), nil
		}

		rec := make(map[string]any, len(cols))
		for i, col := range cols {
			setNested(rec, columnPath(col), columnValue(vals[i]))
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return Failure(fmt.Errorf("iterate rows: %w", err)), nil
	}

	key := KeyNodes
	if groupByRe.MatchString(topLevel(q)) {
		key = KeyGroup
	}
	return &Result{Data: map[string]any{RootKey: map[string]any{key: items}}}, nil
}

func (e *SQLiteExecutor) getDB() (*sql.DB, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db != nil {
		return e.db, nil
	}

	// The pragma rides on the DSN so every pooled connection is read-only.
	db, err := sql.Open("sqlite", e.path+"?_pragma=query_only(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", e.path, err)
	}
	db.SetMaxOpenConns(4)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", e.path, err)
	}

	e.db = db
	return db, nil
}

// Close releases the database handle.
func (e *SQLiteExecutor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	return err
}

func columnPath(col string) []string {
	col = strings.ReplaceAll(col, "__", ".")
	parts := strings.Split(col, ".")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{col}
	}
	return out
}

func setNested(rec map[string]any, path []string, v any) {
	m := rec
	for _, p := range path[:len(path)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[p] = next
		}
		m = next
	}
	m[path[len(path)-1]] = v
}

func columnValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return decodeText(string(t))
	case string:
		return decodeText(t)
	default:
		return t
	}
}

func decodeText(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return s
	}
	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return s
	}
	return parsed
}

// topLevel blanks out parenthesised spans, string literals and quoted
// identifiers of q so only the outermost statement's clauses remain.
func topLevel(q string) string {
	var b strings.Builder
	depth := 0
	var quote rune
	for _, r := range q {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			r = ' '
		case r == '\'' || r == '"' || r == '`':
			quote = r
			r = ' '
		case r == '(':
			depth++
			r = ' '
		case r == ')':
			if depth > 0 {
				depth--
			}
			r = ' '
		case depth > 0:
			r = ' '
		}
		b.WriteRune(r)
	}
	return b.String()
}
