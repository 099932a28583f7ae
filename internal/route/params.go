package route

import (
	"regexp"
	"strings"

	"github.com/agentic-research/routegen/internal/derive"
	"github.com/agentic-research/routegen/internal/record"
)

// CollectionParams matches urlPath against a collection URL template and
// returns the captured value of every placeholder, keyed by field path
// ("sku__en"). Placeholders may capture across "/" so that multi-segment
// values round-trip. A path that does not fit the template yields an empty
// map.
func CollectionParams(template, urlPath string) map[string]string {
	params := make(map[string]string)

	segs := derive.Segments(template)
	if len(segs) == 0 {
		return params
	}

	var (
		expr strings.Builder
		last int
	)
	expr.WriteString("^")
	for _, seg := range segs {
		expr.WriteString(regexp.QuoteMeta(template[last:seg.Start]))
		expr.WriteString("(.+?)")
		last = seg.End
	}
	expr.WriteString(regexp.QuoteMeta(template[last:]))
	expr.WriteString("$")

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return params
	}
	m := re.FindStringSubmatch(urlPath)
	if m == nil {
		return params
	}
	for i, seg := range segs {
		params[derive.FieldPath(seg.Expr)] = m[i+1]
	}
	return params
}

// ReverseLookup collects the raw record values behind every placeholder in
// componentPath, keyed by field path, plus the record's "id". The result is
// the page context a collection component's own query is run with. Fields
// the record does not have are left out.
func ReverseLookup(rec record.Record, componentPath string) map[string]any {
	out := make(map[string]any)
	if id, ok := record.Get(rec, "id"); ok {
		out["id"] = id.Raw()
	}
	for _, seg := range derive.Segments(componentPath) {
		field := derive.FieldPath(seg.Expr)
		if field == "" {
			continue
		}
		if v, ok := record.Get(rec, derive.FieldKey(seg.Expr)); ok {
			out[field] = v.Raw()
		}
	}
	return out
}
