package derive

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/agentic-research/routegen/internal/record"
)

var repeatedSlashes = regexp.MustCompile(`//+`)

// Options configures Derive.
type Options struct {
	// Logger receives a debug entry for every unresolved placeholder.
	// Nil discards.
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// Result is the outcome of deriving one record's path.
type Result struct {
	Path    string
	Errors  int      // placeholders that could not be resolved
	Missing []string // their literal text, in pattern order
}

// Derive substitutes every placeholder of pattern with the slugified value
// of its field in rec.
//
// Placeholders whose field is missing keep their literal text and bump
// Errors; they never stop the remaining placeholders from resolving.
// Substitution is positional, so a value that happens to contain another
// placeholder's text cannot be rewritten. Runs of "/" collapse to one.
func Derive(pattern string, rec record.Record, opts Options) Result {
	var (
		res  Result
		b    strings.Builder
		last int
	)
	log := opts.logger()

	for _, seg := range Segments(pattern) {
		b.WriteString(pattern[last:seg.Start])
		last = seg.End

		key := FieldKey(seg.Expr)
		v, ok := record.Get(rec, key)
		if !ok {
			res.Errors++
			res.Missing = append(res.Missing, seg.Text)
			if log.Enabled(context.Background(), slog.LevelDebug) {
				log.Debug("could not find value for placeholder",
					"placeholder", seg.Text, "key", key, "record", recordJSON(rec))
			}
			b.WriteString(seg.Text)
			continue
		}
		b.WriteString(stripTrailingSlash(SafeSlugify(v)))
	}
	b.WriteString(pattern[last:])

	res.Path = repeatedSlashes.ReplaceAllString(b.String(), "/")
	return res
}

func recordJSON(rec record.Record) string {
	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "<unprintable record>"
	}
	return string(out)
}
