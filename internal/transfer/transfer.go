// Package transfer moves expenses in and out of a workspace as CSV or JSON
// files.
package transfer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tally-dev/tally/internal/model"
)

// Format reads drafts from and writes expenses to one file format.
type Format interface {
	Name() string
	Extension() string
	Parse(r io.Reader) ([]model.Draft, error)
	Write(w io.Writer, list []model.Expense) error
}

// Registry holds named formats.
type Registry struct {
	formats map[string]Format
}

// NewRegistry creates an empty format registry.
func NewRegistry() *Registry {
	return &Registry{formats: make(map[string]Format)}
}

// Register adds a format. Panics on duplicate name.
func (r *Registry) Register(f Format) {
	key := strings.ToLower(f.Name())
	if _, ok := r.formats[key]; ok {
		panic("duplicate transfer format: " + key)
	}
	r.formats[key] = f
}

// Get returns the format named name, or nil.
func (r *Registry) Get(name string) Format {
	return r.formats[strings.ToLower(name)]
}

// Names returns the registered format names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.formats))
	for n := range r.formats {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ForPath picks the format whose extension matches path, or nil.
func (r *Registry) ForPath(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range r.formats {
		if f.Extension() == ext {
			return f
		}
	}
	return nil
}

// Resolve returns the named format, or the one matching path's extension
// when name is empty.
func (r *Registry) Resolve(name, path string) (Format, error) {
	if name != "" {
		if f := r.Get(name); f != nil {
			return f, nil
		}
		return nil, fmt.Errorf("unknown format %q (have %s)", name, strings.Join(r.Names(), ", "))
	}
	if f := r.ForPath(path); f != nil {
		return f, nil
	}
	return nil, fmt.Errorf("cannot tell the format of %s; use --format (%s)", filepath.Base(path), strings.Join(r.Names(), ", "))
}

// DefaultRegistry returns a registry with the built-in formats.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(CSVFormat{})
	r.Register(JSONFormat{})
	return r
}

// ReadFile parses the file at path with f.
func ReadFile(path string, f Format) ([]model.Draft, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer fh.Close()

	drafts, err := f.Parse(fh)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return drafts, nil
}

// importDir is the workspace drop folder scanned by `tally import`.
const importDir = "import"

// processedDir receives files once imported.
const processedDir = "import/processed"

// FileInfo describes a file waiting in the import folder.
type FileInfo struct {
	Name   string
	Path   string
	Format Format
}

// Scan returns files in <root>/import/ that some registered format can read.
func Scan(root string, reg *Registry) ([]FileInfo, error) {
	dir := filepath.Join(root, importDir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		f := reg.ForPath(e.Name())
		if f == nil {
			continue
		}
		files = append(files, FileInfo{
			Name:   e.Name(),
			Path:   filepath.Join(dir, e.Name()),
			Format: f,
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(root, fileName string) error {
	src := filepath.Join(root, importDir, fileName)
	dstDir := filepath.Join(root, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
