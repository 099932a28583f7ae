package query

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// DefaultTags are the template tags a collection query may be written with.
var DefaultTags = []string{"graphql", "sql", "jsonpath"}

const taggedTemplateQuery = `(call_expression
  function: (identifier) @tag
  arguments: (template_string) @body)`

// LanguageForExt returns the tree-sitter grammar for a page component
// extension, or ok=false when the extension is not a component.
func LanguageForExt(ext string) (*sitter.Language, bool) {
	switch ext {
	case ".js", ".jsx", ".mjs":
		return javascript.GetLanguage(), true
	case ".ts":
		return typescript.GetLanguage(), true
	case ".tsx":
		return tsx.GetLanguage(), true
	default:
		return nil, false
	}
}

// SourceExtractor finds the collection query of a page component: the first
// tagged template literal whose tag is one of its tags, e.g.
//
//	export const query = sql`SELECT id, sku FROM products`
//
// Templates with ${} substitutions are skipped since their text is not known
// until runtime.
type SourceExtractor struct {
	tags   map[string]bool
	logger *slog.Logger
}

func NewSourceExtractor(tags []string, logger *slog.Logger) *SourceExtractor {
	if len(tags) == 0 {
		tags = DefaultTags
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	return &SourceExtractor{tags: set, logger: logger}
}

// Extract implements the collection QueryExtractor.
func (e *SourceExtractor) Extract(absPath string) (string, bool) {
	lang, ok := LanguageForExt(strings.ToLower(filepath.Ext(absPath)))
	if !ok {
		e.logger.Debug("no grammar for component", "path", absPath)
		return "", false
	}
	src, err := os.ReadFile(absPath)
	if err != nil {
		e.logger.Warn("read component", "path", absPath, "error", err)
		return "", false
	}
	q, ok, err := e.findQuery(context.Background(), lang, src, e.logger.With("path", absPath))
	if err != nil {
		e.logger.Warn("parse component", "path", absPath, "error", err)
		return "", false
	}
	return q, ok
}

// FindQuery parses src and returns the body of its first matching tagged
// template.
func (e *SourceExtractor) FindQuery(ctx context.Context, lang *sitter.Language, src []byte) (string, bool, error) {
	return e.findQuery(ctx, lang, src, e.logger)
}

func (e *SourceExtractor) findQuery(ctx context.Context, lang *sitter.Language, src []byte, log *slog.Logger) (string, bool, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return "", false, fmt.Errorf("parse: %w", err)
	}
	defer tree.Close()

	// tree-sitter recovers from errors, so a half-typed component still
	// yields its query when the template itself parsed.
	if serr := FirstSyntaxError(tree.RootNode()); serr != nil {
		log.Warn("component has syntax errors", "line", serr.Line+1, "column", serr.Column+1, "kind", serr.Kind)
	}

	q, err := sitter.NewQuery([]byte(taggedTemplateQuery), lang)
	if err != nil {
		return "", false, fmt.Errorf("compile query: %w", err)
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}

		var tag string
		var body *sitter.Node
		for _, c := range m.Captures {
			switch q.CaptureNameForId(c.Index) {
			case "tag":
				tag = c.Node.Content(src)
			case "body":
				body = c.Node
			}
		}
		if body == nil || !e.tags[tag] || hasSubstitution(body) {
			continue
		}

		text := strings.TrimSpace(strings.Trim(body.Content(src), "`"))
		if text == "" {
			continue
		}
		return text, true, nil
	}
	return "", false, nil
}

func hasSubstitution(n *sitter.Node) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if n.NamedChild(i).Type() == "template_substitution" {
			return true
		}
	}
	return false
}
