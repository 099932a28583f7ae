package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/routegen/internal/collection"
)

const productComponent = "export const query = jsonpath`$.products[*]`\n\n" +
	"export default function Product() {\n  return null\n}\n"

type project struct {
	dir, pages, data, out, manifest string
}

func newProject(t *testing.T) project {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	p := project{
		dir:      dir,
		pages:    filepath.Join(dir, "src", "pages"),
		data:     filepath.Join(dir, "data.json"),
		out:      filepath.Join(dir, "public"),
		manifest: filepath.Join(dir, ".routegen", "manifest.db"),
	}
	writeFile(t, filepath.Join(p.pages, "index.js"), "export default function Home() { return null }\n")
	writeFile(t, filepath.Join(p.pages, "product", "{Product.sku}.js"), productComponent)
	return p
}

func (p project) args(cmd string, extra ...string) []string {
	return append([]string{cmd,
		"--pages-dir", p.pages,
		"--data", p.data,
		"--output-dir", p.out,
		"--manifest", p.manifest,
	}, extra...)
}

func (p project) pageData(urlPath string) string {
	return filepath.Join(p.out, "page-data", filepath.FromSlash(urlPath), "page-data.json")
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestHelpCommand(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"build", "develop", "derive"} {
		assert.Contains(t, out, sub)
	}
}

func TestBuildCommand(t *testing.T) {
	p := newProject(t)
	writeFile(t, p.data, `{"products":[{"sku":"ABC-1","name":"Hat"},{"sku":"xyz 2","name":"Scarf"}]}`)

	out, err := run(t, p.args("build")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Created 2 page(s) from 1 collection route(s)")
	assert.FileExists(t, p.pageData("product/abc-1"))
	assert.FileExists(t, p.pageData("product/xyz-2"))
	assert.FileExists(t, p.manifest)

	raw, err := os.ReadFile(p.pageData("product/abc-1"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"path": "/product/abc-1/"`)
	assert.Contains(t, string(raw), `"sku": "ABC-1"`)
}

func TestBuildCommand_RemovesPagesOfPreviousRun(t *testing.T) {
	p := newProject(t)
	writeFile(t, p.data, `{"products":[{"sku":"a"},{"sku":"b"}]}`)
	_, err := run(t, p.args("build")...)
	require.NoError(t, err)
	require.FileExists(t, p.pageData("product/b"))

	writeFile(t, p.data, `{"products":[{"sku":"a"}]}`)
	out, err := run(t, p.args("build")...)
	require.NoError(t, err, out)
	assert.FileExists(t, p.pageData("product/a"))
	assert.NoFileExists(t, p.pageData("product/b"))
}

func TestBuildCommand_UnresolvedPlaceholderFails(t *testing.T) {
	p := newProject(t)
	writeFile(t, filepath.Join(p.pages, "tag", "{Product.tag}.js"), productComponent)
	writeFile(t, p.data, `{"products":[{"sku":"a"}]}`)

	_, err := run(t, p.args("build")...)
	require.Error(t, err)
	assert.ErrorIs(t, err, collection.ErrBuildFailed)
	assert.Contains(t, err.Error(), "tag/{Product.tag}.js")
	assert.FileExists(t, p.pageData("product/a"), "healthy routes are still written")
}

func TestBuildCommand_QueryErrorIsReported(t *testing.T) {
	p := newProject(t)
	writeFile(t, p.data, `{"products":`)

	out, err := run(t, p.args("build")...)
	require.NoError(t, err)
	assert.Contains(t, out, "routegen_12106")
	assert.Contains(t, out, "1 collection route(s) reported errors")
}

func TestBuildCommand_BadDataSource(t *testing.T) {
	p := newProject(t)
	_, err := run(t, "build", "--pages-dir", p.pages, "--data", "data.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported extension")
}

func TestDeriveCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	rec := filepath.Join(dir, "hat.json")
	writeFile(t, rec, `{"sku":"Blue Hat","parent":{"name":"Shop Notes"}}`)

	out, err := run(t, "derive", "product/{Product.sku}.js", rec)
	require.NoError(t, err)
	assert.Contains(t, out, "path:   /product/blue-hat/")
	assert.Contains(t, out, "errors: 0")

	out, err = run(t, "derive", "--trailing-slash=false", "{Post.parent__(File)__name}/{Post.title}.tsx", rec)
	require.NoError(t, err)
	assert.Contains(t, out, "errors: 1")
	assert.Contains(t, out, "missing: {Post.title}")
}

func TestDeriveCommand_BadRecord(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	rec := filepath.Join(dir, "bad.json")
	writeFile(t, rec, `{"sku":`)

	_, err := run(t, "derive", "product/{Product.sku}.js", rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode record")
}

func TestSourceFor(t *testing.T) {
	root := "/site/src/pages"
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"/site/src/pages/product/{Product.sku}.js", "product/{Product.sku}.js", true},
		{"/site/src/pages/{Product.category}/{Product.sku}.tsx", "{Product.category}/{Product.sku}.tsx", true},
		{"/site/src/pages/{Product.category}/index.ts", "{Product.category}/index.ts", true},
		{"/site/src/pages/about.js", "", false},
		{"/site/src/pages/product/{Product.sku}.md", "", false},
		{"/site/data/{Product.sku}.js", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			src, ok := sourceFor(root, tt.path)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, src.FilePath)
				assert.Equal(t, tt.path, src.AbsPath)
			}
		})
	}
}
