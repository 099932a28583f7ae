package collection

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/agentic-research/routegen/internal/derive"
	"github.com/agentic-research/routegen/internal/report"
)

var placeholderRe = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*\.[A-Za-z0-9_()|]+$`)

// PatternValidator checks every templated part of a pattern path: braces
// must be balanced and unnested, and every placeholder must read
// {Model.field} with a capitalized model name.
type PatternValidator struct {
	Reporter Reporter
}

// Valid implements Validator.
func (v PatternValidator) Valid(absPath string) bool {
	valid := true
	for _, part := range strings.Split(filepath.ToSlash(absPath), "/") {
		if !strings.ContainsAny(part, "{}") {
			continue
		}
		if err := checkPart(part); err != nil {
			valid = false
			v.warn(absPath, err)
		}
	}
	return valid
}

func (v PatternValidator) warn(absPath string, err error) {
	if v.Reporter == nil {
		return
	}
	v.Reporter.Warn(fmt.Sprintf("[%s] Collection page builder encountered an error parsing the filepath %s: %v",
		report.PrefixID(report.CodeCollectionPath), absPath, err))
}

// checkPart validates a single path part such as "{Product.sku}.tsx".
func checkPart(part string) error {
	depth := 0
	for _, r := range part {
		switch r {
		case '{':
			depth++
			if depth > 1 {
				return fmt.Errorf("%q has nested braces", part)
			}
		case '}':
			depth--
			if depth < 0 {
				return fmt.Errorf("%q closes a brace it never opened", part)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("%q has an unclosed brace", part)
	}

	segs := derive.Segments(part)
	if len(segs) != strings.Count(part, "{") {
		return fmt.Errorf("%q has an empty placeholder", part)
	}
	for _, seg := range segs {
		if !placeholderRe.MatchString(seg.Expr) {
			return fmt.Errorf("%s must look like {Model.field}, e.g. {Product.sku} or {File.parent__(Directory)__name}", seg.Text)
		}
	}
	return nil
}
