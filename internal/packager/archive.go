package packager

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/gzip"
)

// Excludes are never packaged, whatever package they sit in.
var Excludes = []string{
	"**/*~",
	"**/.*",
	"**/.*/**",
	"**/__pycache__/**",
	"**/*.py[co]",
}

func excluded(rel string) bool {
	for _, pattern := range Excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// packageFiles returns the regular files of every package directory, relative
// to root and sorted.
func packageFiles(root string, packages []string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var files []string
	for _, pkg := range packages {
		info, err := fs.Stat(fsys, pkg)
		if err != nil {
			return nil, fmt.Errorf("packager: package %q: %w", pkg, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("packager: package %q is not a directory", pkg)
		}
		// package paths may hold glob metacharacters, so match inside the
		// package rather than splicing its path into the pattern
		sub, err := fs.Sub(fsys, pkg)
		if err != nil {
			return nil, fmt.Errorf("packager: package %q: %w", pkg, err)
		}
		found, err := doublestar.Glob(sub, "**", doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("packager: package %q: %w", pkg, err)
		}
		for _, rel := range found {
			f := path.Join(pkg, rel)
			if excluded(f) || seen[f] {
				continue
			}
			seen[f] = true
			files = append(files, f)
		}
	}
	sort.Strings(files)
	return files, nil
}

// writeArchive writes a gzipped tarball rooted at prefix/ and returns the
// number of entries written. The file is created next to dst and renamed
// into place so a failed build never leaves a truncated archive.
func writeArchive(ctx context.Context, dst, prefix, root string, c *contents, mtime time.Time) (n int, err error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("packager: archive: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".dist-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("packager: archive: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	gz, err := gzip.NewWriterLevel(tmp, gzip.BestCompression)
	if err != nil {
		return 0, fmt.Errorf("packager: archive: %w", err)
	}
	tw := tar.NewWriter(gz)
	w := &tarWriter{tw: tw, prefix: prefix, mtime: mtime}

	if err := w.bytes("PKG-INFO", c.metadata, 0o644); err != nil {
		return 0, err
	}
	for _, rel := range c.files {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := w.file(rel, filepath.Join(root, filepath.FromSlash(rel)), 0); err != nil {
			return 0, err
		}
	}
	for _, s := range c.scripts {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := w.file(scriptPath(s), filepath.Join(root, filepath.FromSlash(s.Path)), 0o755); err != nil {
			return 0, err
		}
	}

	if err := tw.Close(); err != nil {
		return 0, fmt.Errorf("packager: archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("packager: archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("packager: archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return 0, fmt.Errorf("packager: archive: %w", err)
	}
	return w.n, nil
}

type tarWriter struct {
	tw     *tar.Writer
	prefix string
	mtime  time.Time
	n      int
}

func (w *tarWriter) header(name string, size int64, mode int64) *tar.Header {
	return &tar.Header{
		Name:     path.Join(w.prefix, name),
		Mode:     mode,
		Size:     size,
		ModTime:  w.mtime,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatPAX,
	}
}

func (w *tarWriter) bytes(name string, data []byte, mode int64) error {
	if err := w.tw.WriteHeader(w.header(name, int64(len(data)), mode)); err != nil {
		return fmt.Errorf("packager: archive %s: %w", name, err)
	}
	if _, err := w.tw.Write(data); err != nil {
		return fmt.Errorf("packager: archive %s: %w", name, err)
	}
	w.n++
	return nil
}

// file copies src into the archive under name. mode 0 keeps the source mode.
func (w *tarWriter) file(name, src string, mode fs.FileMode) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("packager: archive %s: %w", name, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("packager: archive %s: %w", name, err)
	}
	if mode == 0 {
		mode = info.Mode().Perm()
	}
	if err := w.tw.WriteHeader(w.header(name, info.Size(), int64(mode))); err != nil {
		return fmt.Errorf("packager: archive %s: %w", name, err)
	}
	if _, err := io.Copy(w.tw, f); err != nil {
		return fmt.Errorf("packager: archive %s: %w", name, err)
	}
	w.n++
	return nil
}

// copyFile copies src to dst, creating parent directories. mode 0 keeps the
// source mode.
func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("packager: install: %w", err)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("packager: install: %w", err)
	}
	if mode == 0 {
		mode = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("packager: install: %w", err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("packager: install: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("packager: install %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("packager: install %s: %w", dst, err)
	}
	return os.Chmod(dst, mode)
}
