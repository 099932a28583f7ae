package query

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ohler55/ojg/jp"
)

// JSONExecutor evaluates JSONPath collection queries against a JSON document
// on disk. The file is read on every call so edits show up on the next
// rebuild. Each match becomes one record; matches that are not objects are
// wrapped as {"value": v}.
type JSONExecutor struct {
	path string
}

func NewJSONExecutor(path string) *JSONExecutor {
	return &JSONExecutor{path: path}
}

// Execute implements the collection QueryExecutor.
func (e *JSONExecutor) Execute(ctx context.Context, q string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(e.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", e.path, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Failure(fmt.Errorf("parse %s: %w", e.path, err)), nil
	}

	x, err := jp.ParseString(q)
	if err != nil {
		return Failure(fmt.Errorf("invalid jsonpath '%s': %w", q, err)), nil
	}

	matches := x.Get(doc)
	items := make([]any, 0, len(matches))
	for _, m := range matches {
		switch v := m.(type) {
		case map[string]any:
			items = append(items, v)
		default:
			items = append(items, map[string]any{"value": v})
		}
	}
	return &Result{Data: map[string]any{RootKey: map[string]any{KeyNodes: items}}}, nil
}
