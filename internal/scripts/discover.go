// Package scripts discovers the executable entry points shipped with the package.
package scripts

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-enry/go-enry/v2"
)

// DefaultDir is where entry points live, relative to the repository root.
const DefaultDir = "bin"

// Script is one installable entry point.
type Script struct {
	Name string `json:"name"`
	// Path is slash-separated and relative to the repository root.
	Path       string `json:"path"`
	Language   string `json:"language,omitempty"`
	Executable bool   `json:"executable"`
}

// Options controls discovery. Zero values select DefaultDir and "*".
type Options struct {
	Dir      string
	Patterns []string
}

// Skipped records a candidate dropped by a filter.
type Skipped struct {
	Path   string
	Filter string
}

// Discover lists entry points under root/opts.Dir matching any of the
// patterns, minus anything an exclusion filter rejects. Results are sorted
// by path and unique.
func Discover(root string, opts Options) ([]Script, []Skipped, error) {
	dir := opts.Dir
	if dir == "" {
		dir = DefaultDir
	}
	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = []string{"*"}
	}

	base := filepath.Join(root, dir)
	info, err := os.Stat(base)
	if err != nil {
		return nil, nil, fmt.Errorf("scripts: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("scripts: %s is not a directory", base)
	}

	fsys := os.DirFS(base)
	seen := make(map[string]bool)
	var matches []string
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, nil, fmt.Errorf("scripts: invalid pattern %q", pattern)
		}
		found, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, nil, fmt.Errorf("scripts: glob %q: %w", pattern, err)
		}
		for _, m := range found {
			if !seen[m] {
				seen[m] = true
				matches = append(matches, m)
			}
		}
	}
	sort.Strings(matches)

	var scripts []Script
	var skipped []Skipped
	for _, m := range matches {
		rel := path.Join(filepath.ToSlash(dir), m)
		name := path.Base(m)
		if by := excludedBy(name); by != "" {
			skipped = append(skipped, Skipped{Path: rel, Filter: by})
			continue
		}
		s, err := describe(fsys, m, name)
		if err != nil {
			return nil, nil, fmt.Errorf("scripts: %s: %w", rel, err)
		}
		s.Path = rel
		scripts = append(scripts, s)
	}
	return scripts, skipped, nil
}

// sniffLen bounds how much of each script is read for language detection.
const sniffLen = 8 << 10

func describe(fsys fs.FS, name, base string) (Script, error) {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return Script{}, err
	}
	f, err := fsys.Open(name)
	if err != nil {
		return Script{}, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Script{}, fmt.Errorf("read: %w", err)
	}
	head = head[:n]

	s := Script{
		Name:       base,
		Executable: info.Mode().Perm()&0o111 != 0,
	}
	if !enry.IsBinary(head) {
		s.Language = enry.GetLanguage(base, head)
	}
	return s, nil
}
