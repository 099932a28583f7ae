// Package route turns derived file paths into URL paths and recovers the
// parameters a collection page was generated from.
package route

import (
	"path"
	"strings"
)

const indexName = "index"

// CreatePath converts a pages-relative file path into a URL path. The file
// extension is dropped, an "index" file maps to its directory and the result
// always starts with "/".
//
//	blog/posts/a-md.tsx -> /blog/posts/a-md/
//	about/index.tsx     -> /about/
func CreatePath(filePath string, trailingSlash bool) string {
	dir, base := path.Split(filePath)
	name := base
	// An unresolved placeholder such as "{Product.sku}" is not an extension.
	if ext := path.Ext(base); ext != "" && !strings.Contains(ext, "}") {
		name = strings.TrimSuffix(base, ext)
	}
	if name == indexName {
		name = ""
	}

	p := path.Join("/", dir, name)
	if trailingSlash && p != "/" {
		p += "/"
	}
	return p
}

// MatchPath returns the client-side match path for a URL path containing
// bracketed parameters, or "" when the path is fully static.
//
//	/products/[id]/      -> /products/:id
//	/docs/[...slug]/     -> /docs/*slug
func MatchPath(urlPath string) string {
	if !strings.Contains(urlPath, "[") {
		return ""
	}

	var b strings.Builder
	for i := 0; i < len(urlPath); i++ {
		c := urlPath[i]
		if c != '[' {
			b.WriteByte(c)
			continue
		}
		end := strings.IndexByte(urlPath[i:], ']')
		if end < 0 {
			b.WriteString(urlPath[i:])
			break
		}
		name := urlPath[i+1 : i+end]
		if rest, ok := strings.CutPrefix(name, "..."); ok {
			b.WriteString("*" + rest)
		} else {
			b.WriteString(":" + name)
		}
		i += end
	}

	out := strings.TrimSuffix(b.String(), "/")
	if out == "" {
		return "/"
	}
	return out
}
