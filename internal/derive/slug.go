package derive

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/agentic-research/routegen/internal/record"
)

var (
	builtinReplacements = strings.NewReplacer(
		"&", " and ",
		"🦄", " unicorn ",
		"♥", " love ",
	)

	// Letters that do not decompose into a base letter plus combining marks.
	ligatures = strings.NewReplacer(
		"ß", "ss",
		"æ", "ae", "Æ", "AE",
		"œ", "oe", "Œ", "OE",
		"ø", "o", "Ø", "O",
		"đ", "d", "Đ", "D",
		"ð", "d", "Ð", "D",
		"ł", "l", "Ł", "L",
		"þ", "th", "Þ", "TH",
		"ı", "i",
	)

	decamelizeSteps = []struct {
		re   *regexp.Regexp
		repl string
	}{
		{regexp.MustCompile(`([A-Z]{2,})(\d+)`), "${1} ${2}"},
		{regexp.MustCompile(`([a-z\d]+)([A-Z]{2,})`), "${1} ${2}"},
		{regexp.MustCompile(`([a-z\d])([A-Z])`), "${1} ${2}"},
		// [a-rt-z] skips "s" so plural acronyms like "APIs" stay together.
		{regexp.MustCompile(`([A-Z]+)([A-Z][a-rt-z\d]+)`), "${1} ${2}"},
	}

	nonSlugRe = regexp.MustCompile(`[^a-z\d]+`)
)

// Slugify converts s into a lowercase, hyphen-separated, URL-safe token.
// Output only contains [a-z0-9-] and Slugify(Slugify(s)) == Slugify(s).
func Slugify(s string) string {
	s = builtinReplacements.Replace(s)
	s = transliterate(s)
	for _, step := range decamelizeSteps {
		s = step.re.ReplaceAllString(s, step.repl)
	}
	s = strings.ToLower(s)
	s = nonSlugRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func transliterate(s string) string {
	s = ligatures.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// SafeSlugify slugifies each "/"-separated part of the value independently so
// that values meant to be multi-segment paths keep their structure.
// A trailing "/" is stripped.
func SafeSlugify(v record.Value) string {
	parts := strings.Split(v.String(), "/")
	for i, p := range parts {
		parts[i] = Slugify(p)
	}
	return stripTrailingSlash(strings.Join(parts, "/"))
}

func stripTrailingSlash(s string) string {
	return strings.TrimRight(s, "/")
}
