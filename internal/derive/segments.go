// Package derive turns a collection route pattern such as
// "product/{Product.sku__en}.tsx" and one query-result record into a
// concrete path.
package derive

import "regexp"

var placeholderRe = regexp.MustCompile(`\{[^{}]+\}`)

// Segment is one placeholder occurrence in a pattern.
type Segment struct {
	Text  string // placeholder including braces, "{Product.sku__en}"
	Expr  string // inner field expression, "Product.sku__en"
	Start int    // byte offset of "{" in the pattern
	End   int    // byte offset just past "}"
}

// Segments returns every placeholder of pattern in order of appearance.
// Repeated placeholders are reported at each occurrence.
func Segments(pattern string) []Segment {
	locs := placeholderRe.FindAllStringIndex(pattern, -1)
	if len(locs) == 0 {
		return nil
	}
	segs := make([]Segment, 0, len(locs))
	for _, loc := range locs {
		text := pattern[loc[0]:loc[1]]
		segs = append(segs, Segment{
			Text:  text,
			Expr:  text[1 : len(text)-1],
			Start: loc[0],
			End:   loc[1],
		})
	}
	return segs
}
