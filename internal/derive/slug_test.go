package derive

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/routegen/internal/record"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Blue Hat", "blue-hat"},
		{"a.md", "a-md"},
		{"Déjà Vu!", "deja-vu"},
		{"fooBar 123 $#%", "foo-bar-123"},
		{"I ♥ Dogs & Cats", "i-love-dogs-and-cats"},
		{"Straße", "strasse"},
		{"smørrebrød", "smorrebrod"},
		{"XMLHttpRequest", "xml-http-request"},
		{"APIs", "apis"},
		{"  --already--slug--  ", "already-slug"},
		{"", ""},
		{"日本語", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestSlugify_Idempotent(t *testing.T) {
	inputs := []string{
		"blue-hat", "a-md", "2023", "x", "foo-bar-123",
		"Blue Hat", "Déjà Vu!", "camelCaseValue", "posts/2023/a.md",
	}
	for _, in := range inputs {
		once := Slugify(in)
		assert.Equal(t, once, Slugify(once), "input %q", in)
	}
}

func TestSafeSlugify(t *testing.T) {
	value := func(v any) record.Value {
		t.Helper()
		rv, ok := record.Of(v)
		require.True(t, ok)
		return rv
	}

	assert.Equal(t, "posts/2023/a-md", SafeSlugify(value("posts/2023/a.md")))
	assert.Equal(t, "42", SafeSlugify(value(float64(42))))
	assert.Equal(t, "foo/bar", SafeSlugify(value("foo/bar/")))
	assert.Equal(t, "blue-hat", SafeSlugify(value("Blue Hat")))
}

func TestSafeSlugify_PreservesPartCount(t *testing.T) {
	for _, in := range []string{"foo/bar", "A/B/C", "One Two/three four/5", "x/y/z/w/v"} {
		rv, ok := record.Of(in)
		require.True(t, ok)
		out := SafeSlugify(rv)
		assert.Equal(t, strings.Count(in, "/"), strings.Count(out, "/"), "input %q -> %q", in, out)
	}
}
