package pages

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/agentic-research/routegen/api"
)

const (
	pageDataDir  = "page-data"
	pageDataFile = "page-data.json"
)

// PageData is the document written for every page.
type PageData struct {
	Path      string     `json:"path"`
	MatchPath string     `json:"matchPath,omitempty"`
	Component string     `json:"component"`
	Result    PageResult `json:"result"`
}

type PageResult struct {
	PageContext api.PageContext `json:"pageContext"`
}

// DataWriter is a Sink that writes page-data/<path>/page-data.json files
// into a billy filesystem.
type DataWriter struct {
	fs billy.Filesystem
}

// NewDataWriter roots the writer at the page-data directory of fs.
func NewDataWriter(fs billy.Filesystem) (*DataWriter, error) {
	if err := fs.MkdirAll(pageDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", pageDataDir, err)
	}
	root, err := fs.Chroot(pageDataDir)
	if err != nil {
		return nil, fmt.Errorf("chroot %s: %w", pageDataDir, err)
	}
	return &DataWriter{fs: root}, nil
}

// DataFile returns the page-data file of a URL path, relative to the
// page-data directory.
func DataFile(urlPath string) string {
	dir := strings.Trim(urlPath, "/")
	if dir == "" {
		dir = "index"
	}
	return path.Join(dir, pageDataFile)
}

// Write implements Sink.
func (w *DataWriter) Write(p api.Page) error {
	doc := PageData{
		Path:      p.Path,
		MatchPath: p.MatchPath,
		Component: p.Component,
		Result:    PageResult{PageContext: p.Context},
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal page data for %s: %w", p.Path, err)
	}

	name := DataFile(p.Path)
	if err := w.fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", p.Path, err)
	}
	return util.WriteFile(w.fs, name, append(b, '\n'), 0o644)
}

// Remove implements Sink. Directories left empty are pruned up to the
// page-data root.
func (w *DataWriter) Remove(urlPath string) error {
	name := DataFile(urlPath)
	if err := w.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	for dir := path.Dir(name); dir != "." && dir != "/"; dir = path.Dir(dir) {
		entries, err := w.fs.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			break
		}
		if err := w.fs.Remove(dir); err != nil {
			break
		}
	}
	return nil
}

// Read loads the page data written for urlPath.
func (w *DataWriter) Read(urlPath string) (PageData, error) {
	var doc PageData
	b, err := util.ReadFile(w.fs, DataFile(urlPath))
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("parse page data for %s: %w", urlPath, err)
	}
	return doc, nil
}
