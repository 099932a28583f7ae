// Package query runs collection queries against a data source and gives
// their results a typed shape.
package query

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/agentic-research/routegen/internal/record"
)

// Inner keys a collection result may be nested under.
const (
	KeyNodes = "nodes"
	KeyGroup = "group"
)

// ErrUnexpectedShape is returned by Extract when the data does not have
// exactly one top-level key holding exactly one list of records.
var ErrUnexpectedShape = errors.New("unexpected query result shape")

// Error is one query-level error message.
type Error struct {
	Message string `json:"message"`
}

// Result is what an executor hands back for one query.
type Result struct {
	Data   map[string]any `json:"data,omitempty"`
	Errors []Error        `json:"errors,omitempty"`
}

// Failure wraps a transport or driver error as a Result so callers only have
// to deal with one failure path.
func Failure(err error) *Result {
	return &Result{Errors: []Error{{Message: err.Error()}}}
}

// Failed reports whether the result carries errors or no data.
func (r *Result) Failed() bool {
	return r == nil || len(r.Errors) > 0 || len(r.Data) == 0
}

// Messages returns the error messages in order.
func (r *Result) Messages() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Message
	}
	return out
}

// Fingerprint is a stable digest of the result. Two results with equal
// fingerprints produce the same pages.
func (r *Result) Fingerprint() string {
	if r == nil {
		return ""
	}
	// encoding/json sorts map keys, which makes the output canonical.
	b, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Shape tells plain node lists and grouped results apart.
type Shape int

const (
	ShapeRecords Shape = iota + 1
	ShapeGroups
)

func (s Shape) String() string {
	switch s {
	case ShapeRecords:
		return "records"
	case ShapeGroups:
		return "groups"
	default:
		return "unknown"
	}
}

// Collection is the typed form of a collection query result:
//
//	{ <Root>: { <Key>: [ record, ... ] } }
type Collection struct {
	Shape Shape
	Root  string
	Key   string
	Items []record.Record
}

// Extract validates data and pulls out its record list. Any deviation from
// the one-root, one-list layout is an ErrUnexpectedShape.
func Extract(data map[string]any) (Collection, error) {
	root, inner, err := single(data)
	if err != nil {
		return Collection{}, fmt.Errorf("%w: data: %v", ErrUnexpectedShape, err)
	}
	fields, ok := inner.(map[string]any)
	if !ok {
		return Collection{}, fmt.Errorf("%w: %q is %T, want an object", ErrUnexpectedShape, root, inner)
	}
	key, list, err := single(fields)
	if err != nil {
		return Collection{}, fmt.Errorf("%w: %q: %v", ErrUnexpectedShape, root, err)
	}

	items, err := records(list)
	if err != nil {
		return Collection{}, fmt.Errorf("%w: %s.%s: %v", ErrUnexpectedShape, root, key, err)
	}

	shape := ShapeRecords
	if key == KeyGroup {
		shape = ShapeGroups
	}
	return Collection{Shape: shape, Root: root, Key: key, Items: items}, nil
}

func single(m map[string]any) (string, any, error) {
	if len(m) != 1 {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", nil, fmt.Errorf("want exactly one key, got %d %v", len(m), keys)
	}
	for k, v := range m {
		return k, v, nil
	}
	panic("unreachable")
}

func records(v any) ([]record.Record, error) {
	switch list := v.(type) {
	case []record.Record:
		return list, nil
	case []any:
		out := make([]record.Record, len(list))
		for i, item := range list {
			rec, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("item %d is %T, want an object", i, item)
			}
			out[i] = rec
		}
		return out, nil
	default:
		return nil, fmt.Errorf("got %T, want a list", v)
	}
}
