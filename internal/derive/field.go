package derive

import (
	"regexp"
	"strings"
)

const fieldDelim = "__"

var unionRe = regexp.MustCompile(`\([^()]*\)`)

// FieldPath strips the type qualifier and any "(Union)" fragments from a
// field expression, keeping the "__" delimiters:
//
//	Product.sku__en                          -> sku__en
//	MarkdownRemark.parent__(File)__relativePath -> parent__relativePath
func FieldPath(expr string) string {
	if i := strings.IndexByte(expr, '.'); i >= 0 {
		expr = expr[i+1:]
	}
	expr = unionRe.ReplaceAllString(expr, "")
	for strings.Contains(expr, fieldDelim+fieldDelim) {
		expr = strings.ReplaceAll(expr, fieldDelim+fieldDelim, fieldDelim)
	}
	expr = strings.TrimPrefix(expr, fieldDelim)
	return strings.TrimSuffix(expr, fieldDelim)
}

// FieldKey converts a field expression to the dotted key used for record
// lookup ("parent.relativePath").
func FieldKey(expr string) string {
	return strings.ReplaceAll(FieldPath(expr), fieldDelim, ".")
}
