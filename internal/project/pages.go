package project

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jonathan/wiki-generator/internal/types"
)

// generatedPattern matches both generated formats.
const generatedPattern = "*.{wiki,html}"

// PageFile describes one file in a project's generated directory.
type PageFile struct {
	FileName   string    `json:"filename"`
	Title      string    `json:"title"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// ListGenerated returns generated pages sorted by file name.
func (s *Store) ListGenerated(id string) ([]PageFile, error) {
	dir := s.GeneratedDir(id)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return []PageFile{}, nil
	}

	fsys := os.DirFS(dir)
	names, err := doublestar.Glob(fsys, generatedPattern)
	if err != nil {
		return nil, &Error{ProjectID: id, Message: "failed to list generated pages", Cause: err}
	}
	sort.Strings(names)

	pages := make([]PageFile, 0, len(names))
	for _, name := range names {
		info, err := fs.Stat(fsys, name)
		if err != nil || info.IsDir() {
			continue
		}
		pages = append(pages, PageFile{
			FileName:   name,
			Title:      types.TitleFromFileName(name),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}
	return pages, nil
}

// ReadPage returns the content of a generated file.
func (s *Store) ReadPage(id, filename string) (string, error) {
	path, err := s.pagePath(id, filename)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", &Error{ProjectID: id, Message: "failed to read " + filename, Cause: err}
	}
	return string(data), nil
}

// ReadGenerated returns the generated content for title, and whether the file exists.
func (s *Store) ReadGenerated(id, title string, format types.Format) (string, bool, error) {
	content, err := s.ReadPage(id, types.PageFileName(title, format))
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return content, true, nil
}

// WritePage writes a generated page and returns its file name.
func (s *Store) WritePage(id string, page *types.GeneratedPage) (string, error) {
	name := page.FileName()
	path, err := s.pagePath(id, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", &Error{ProjectID: id, Message: "failed to create generated directory", Cause: err}
	}
	if err := os.WriteFile(path, []byte(page.Content), 0o644); err != nil {
		return "", &Error{ProjectID: id, Message: "failed to write " + name, Cause: err}
	}
	return name, nil
}

// pagePath resolves a generated file name, refusing anything that is not a plain
// .wiki or .html file name.
func (s *Store) pagePath(id, filename string) (string, error) {
	if !validID(id) {
		return "", ErrNotFound
	}
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", ErrInvalidFileName
	}
	ext := filepath.Ext(filename)
	if ext != types.FormatMediaWiki.Extension() && ext != types.FormatConfluence.Extension() {
		return "", ErrInvalidFileName
	}
	return filepath.Join(s.GeneratedDir(id), filename), nil
}
