// Package record provides safe access to query-result records whose shape is
// not known until runtime.
package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"
)

// Record is one decoded query-result object.
type Record = map[string]any

// Kind discriminates the shapes a record value can take.
type Kind int

const (
	KindScalar Kind = iota + 1
	KindMap
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return "invalid"
	}
}

// Value is a tagged union over the decoded JSON shapes: a scalar
// (string, number, bool), a nested mapping, or a list.
// The zero Value is invalid and only appears alongside ok == false.
type Value struct {
	kind Kind
	raw  any
}

// Of wraps a decoded value. It reports false for nil, which is treated the
// same as a missing key.
func Of(v any) (Value, bool) {
	switch v.(type) {
	case nil:
		return Value{}, false
	case map[string]any:
		return Value{kind: KindMap, raw: v}, true
	case []any:
		return Value{kind: KindList, raw: v}, true
	default:
		return Value{kind: KindScalar, raw: v}, true
	}
}

// Kind returns the shape of the value.
func (v Value) Kind() Kind { return v.kind }

// Raw returns the underlying decoded value.
func (v Value) Raw() any { return v.raw }

// String coerces the value to a string. Integral floats print without a
// fractional part or exponent, lists join their elements with ",".
func (v Value) String() string {
	switch t := v.raw.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []byte:
		return string(t)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			ev, ok := Of(e)
			if ok {
				parts[i] = ev.String()
			}
		}
		return strings.Join(parts, ",")
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// Get looks up a dotted key ("parent.relativePath") in rec. Every level must
// exist; a missing intermediate level, a nil value or a malformed key yields
// ok == false. A purely numeric segment indexes a list; on a map it is an
// ordinary key ("stats.2023").
func Get(rec any, key string) (Value, bool) {
	segs, ok := splitKey(key)
	if !ok {
		return Value{}, false
	}
	cur := rec
	for _, seg := range segs {
		got := step(seg, cur).Get(cur)
		if len(got) == 0 || got[0] == nil {
			return Value{}, false
		}
		cur = got[0]
	}
	return Of(cur)
}

func splitKey(key string) ([]string, bool) {
	if key == "" {
		return nil, false
	}
	segs := strings.Split(key, ".")
	for _, seg := range segs {
		if seg == "" {
			return nil, false
		}
	}
	return segs, true
}

// step is the one-level expression for seg against v.
func step(seg string, v any) jp.Expr {
	if _, isList := v.([]any); isList {
		if n, err := strconv.Atoi(seg); err == nil && n >= 0 {
			return jp.R().N(n)
		}
	}
	return jp.R().C(seg)
}
