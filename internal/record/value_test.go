package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) Record {
	t.Helper()
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(s), &rec))
	return rec
}

func TestGet(t *testing.T) {
	rec := decode(t, `{
		"id": "p1",
		"sku": {"en": "Blue Hat"},
		"price": 12,
		"ratio": 0.5,
		"active": true,
		"gone": null,
		"tags": ["a", "b"],
		"stats": {"2023": "x", "0": "zero"},
		"rows": [{"sku": "r0"}, {"sku": "r1"}],
		"parent": {"relativePath": "posts/2023/a.md"}
	}`)

	tests := []struct {
		name   string
		key    string
		want   string
		kind   Kind
		wantOK bool
	}{
		{name: "top level", key: "id", want: "p1", kind: KindScalar, wantOK: true},
		{name: "nested", key: "sku.en", want: "Blue Hat", kind: KindScalar, wantOK: true},
		{name: "two levels", key: "parent.relativePath", want: "posts/2023/a.md", kind: KindScalar, wantOK: true},
		{name: "integer number", key: "price", want: "12", kind: KindScalar, wantOK: true},
		{name: "fractional number", key: "ratio", want: "0.5", kind: KindScalar, wantOK: true},
		{name: "bool", key: "active", want: "true", kind: KindScalar, wantOK: true},
		{name: "list index", key: "tags.1", want: "b", kind: KindScalar, wantOK: true},
		{name: "numeric map key", key: "stats.2023", want: "x", kind: KindScalar, wantOK: true},
		{name: "zero map key", key: "stats.0", want: "zero", kind: KindScalar, wantOK: true},
		{name: "index then key", key: "rows.1.sku", want: "r1", kind: KindScalar, wantOK: true},
		{name: "index out of range", key: "tags.5", wantOK: false},
		{name: "name on a list", key: "tags.first", wantOK: false},
		{name: "whole list", key: "tags", want: "a,b", kind: KindList, wantOK: true},
		{name: "map value", key: "sku", want: `{"en":"Blue Hat"}`, kind: KindMap, wantOK: true},
		{name: "missing leaf", key: "sku.fr", wantOK: false},
		{name: "missing intermediate", key: "missing.deeper.still", wantOK: false},
		{name: "through a scalar", key: "id.deeper", wantOK: false},
		{name: "null value", key: "gone", wantOK: false},
		{name: "empty key", key: "", wantOK: false},
		{name: "empty segment", key: "sku..en", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := Get(rec, tt.key)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestGet_NilRecord(t *testing.T) {
	_, ok := Get(nil, "id")
	assert.False(t, ok)
}

func TestOf(t *testing.T) {
	_, ok := Of(nil)
	assert.False(t, ok)

	v, ok := Of(int64(42))
	require.True(t, ok)
	assert.Equal(t, KindScalar, v.Kind())
	assert.Equal(t, "42", v.String())
	assert.Equal(t, int64(42), v.Raw())
}
