// Package vault is the storage collaborator: it owns path resolution,
// raw document I/O and file enumeration across one or more named roots.
//
// Nothing here interprets markdown. All enumeration for vault-wide
// scans (backlinks, tags, search) goes through this package, so an
// incremental index could later be substituted without touching any
// parsing logic.
package vault

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"
)

// Sentinel errors callers branch on.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Root is one named top-level directory of documents.
type Root struct {
	Name string
	Path string
}

// Service provides document I/O over an ordered set of roots.
type Service struct {
	roots  []Root
	filter *Filter
}

// New creates a Service. Root paths are made absolute; a nil filter
// gets the defaults.
func New(roots []Root, filter *Filter) *Service {
	if filter == nil {
		filter = NewFilter(nil)
	}
	abs := make([]Root, len(roots))
	for i, r := range roots {
		p, err := filepath.Abs(r.Path)
		if err != nil {
			p = r.Path
		}
		abs[i] = Root{Name: r.Name, Path: p}
	}
	return &Service{roots: abs, filter: filter}
}

// Roots returns the configured roots in order.
func (s *Service) Roots() []Root {
	return s.roots
}

// RootNames returns the configured root names in order.
func (s *Service) RootNames() []string {
	names := make([]string, len(s.roots))
	for i, r := range s.roots {
		names[i] = r.Name
	}
	return names
}

// rootPath maps a root name to its directory. An empty name selects
// the first configured root.
func (s *Service) rootPath(name string) (string, error) {
	if len(s.roots) == 0 {
		return "", fmt.Errorf("no roots configured")
	}
	if name == "" {
		return s.roots[0].Path, nil
	}
	for _, r := range s.roots {
		if r.Name == name {
			return r.Path, nil
		}
	}
	return "", fmt.Errorf("root %q: %w", name, ErrNotFound)
}

// Resolve turns a root-relative path into an absolute one, rejecting
// traversal outside the root and filtered paths.
func (s *Service) Resolve(root, rel string) (string, error) {
	base, err := s.rootPath(root)
	if err != nil {
		return "", err
	}

	rel = strings.TrimPrefix(strings.TrimSpace(rel), "/")
	full, err := filepath.Abs(filepath.Join(base, rel))
	if err != nil {
		return "", err
	}

	inside, err := filepath.Rel(base, full)
	if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes root: %s", rel)
	}
	if !s.filter.Allowed(rel) {
		return "", fmt.Errorf("access denied: %s", rel)
	}
	return full, nil
}

// Read returns a document's raw text.
func (s *Service) Read(root, rel string) (string, error) {
	full, err := s.Resolve(root, rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", rel, ErrNotFound)
		}
		return "", fmt.Errorf("read %s: %w", rel, err)
	}
	return string(data), nil
}

// Write stores a document's raw text in one atomic operation, creating
// parent directories as needed.
func (s *Service) Write(root, rel, content string) error {
	full, err := s.Resolve(root, rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := atomic.WriteFile(full, bytes.NewReader([]byte(content))); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

// Exists reports whether a document exists at the path.
func (s *Service) Exists(root, rel string) bool {
	full, err := s.Resolve(root, rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}

// Delete removes a document.
func (s *Service) Delete(root, rel string) error {
	full, err := s.Resolve(root, rel)
	if err != nil {
		return err
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", rel, ErrNotFound)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a document", rel)
	}
	return os.Remove(full)
}

// Move renames a document within a root, refusing to clobber an
// existing target unless overwrite is set.
func (s *Service) Move(root, oldRel, newRel string, overwrite bool) error {
	oldFull, err := s.Resolve(root, oldRel)
	if err != nil {
		return err
	}
	newFull, err := s.Resolve(root, newRel)
	if err != nil {
		return err
	}
	if _, err := os.Stat(oldFull); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", oldRel, ErrNotFound)
	}
	if !overwrite {
		if _, err := os.Stat(newFull); err == nil {
			return fmt.Errorf("target already exists: %s", newRel)
		}
	}
	if err := os.MkdirAll(filepath.Dir(newFull), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.Rename(oldFull, newFull)
}

// Listing is one directory level of a root.
type Listing struct {
	Files       []string `json:"files"`
	Directories []string `json:"directories"`
}

// ListDirectory lists one directory level, filtered and sorted.
func (s *Service) ListDirectory(root, rel string) (Listing, error) {
	if rel == "." {
		rel = ""
	}
	full, err := s.Resolve(root, rel)
	if err != nil {
		return Listing{}, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Listing{}, fmt.Errorf("directory %s: %w", rel, ErrNotFound)
		}
		return Listing{}, fmt.Errorf("list %s: %w", rel, err)
	}

	listing := Listing{Files: []string{}, Directories: []string{}}
	for _, entry := range entries {
		child := entry.Name()
		if rel != "" {
			child = rel + "/" + child
		}
		if !s.filter.Allowed(child) {
			continue
		}
		if entry.IsDir() {
			listing.Directories = append(listing.Directories, entry.Name())
		} else if entry.Type().IsRegular() {
			listing.Files = append(listing.Files, entry.Name())
		}
	}
	sort.Strings(listing.Files)
	sort.Strings(listing.Directories)
	return listing, nil
}

// MarkdownFiles returns every visible markdown document under a root,
// as sorted root-relative paths.
func (s *Service) MarkdownFiles(root string) ([]string, error) {
	return s.walk(root, func(rel string) bool {
		return strings.HasSuffix(strings.ToLower(rel), ".md")
	})
}

// AllFiles returns every visible file under a root, markdown or not.
func (s *Service) AllFiles(root string) ([]string, error) {
	return s.walk(root, func(string) bool { return true })
}

func (s *Service) walk(root string, keep func(rel string) bool) ([]string, error) {
	base, err := s.rootPath(root)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(base, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			return nil
		}
		rel, relErr := filepath.Rel(base, full)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = strings.ReplaceAll(rel, "\\", "/")
		if !s.filter.Allowed(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && d.Type().IsRegular() && keep(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
