// Package packager assembles distributions: it stamps the build, collects
// entry points and code packages, writes the archive or installs the files,
// and resets the stamp afterwards.
package packager

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/danielgruen/ngmixer/internal/manifest"
	"github.com/danielgruen/ngmixer/internal/provenance"
	"github.com/danielgruen/ngmixer/internal/scripts"
	"github.com/danielgruen/ngmixer/internal/stampfile"
)

// DefaultOutput is where archives are written, relative to Root.
const DefaultOutput = "dist"

// Builder packages the repository at Root according to Manifest.
type Builder struct {
	Root     string
	Manifest *manifest.Manifest
	Resolver provenance.Resolver
	// Output is the archive directory; relative paths are taken from Root.
	Output string
	Logger zerolog.Logger

	now func() time.Time
}

// NewBuilder returns a Builder resolving provenance with git unless the
// caller replaces Resolver.
func NewBuilder(root string, m *manifest.Manifest, logger zerolog.Logger) *Builder {
	r := provenance.GitResolver{Dir: root}
	if m.Stamp != nil {
		r.IncludeUntracked = m.Stamp.IncludeUntracked
	}
	return &Builder{
		Root:     root,
		Manifest: m,
		Resolver: r,
		Output:   DefaultOutput,
		Logger:   logger,
		now:      time.Now,
	}
}

// Result summarizes a finished build or install.
type Result struct {
	Stamp   provenance.Stamp
	Version string
	// Archive is set by Build, Prefix by Install.
	Archive string
	Prefix  string
	Scripts []scripts.Script
	Files   int
}

// Artifact returns the stamp artifact configured by the manifest, if any.
func (b *Builder) Artifact() (stampfile.Artifact, bool) {
	s := b.Manifest.Stamp
	if s == nil || s.Path == "" {
		return stampfile.Artifact{}, false
	}
	return stampfile.Artifact{
		Path:    filepath.Join(b.Root, filepath.FromSlash(s.Path)),
		Package: s.Package,
		Name:    s.Const,
	}, true
}

func (b *Builder) resolver() provenance.Resolver {
	abbrev := 0
	if b.Manifest.Stamp != nil {
		abbrev = b.Manifest.Stamp.Abbrev
	}
	return provenance.Abbreviated(b.Resolver, abbrev)
}

// stamped runs fn with the resolved stamp. With an artifact configured the
// artifact holds the stamp while fn runs and is reset afterwards, whatever
// the outcome.
func (b *Builder) stamped(ctx context.Context, fn func(provenance.Stamp) error) error {
	if a, ok := b.Artifact(); ok {
		return stampfile.Run(ctx, a, b.resolver(), b.Logger, fn)
	}
	stamp, err := b.resolver().Resolve(ctx)
	if err != nil {
		return err
	}
	return fn(stamp)
}

// collect gathers everything a distribution contains, keyed by the
// slash-separated path it is stored under.
func (b *Builder) collect(stamp provenance.Stamp) (*contents, error) {
	m := b.Manifest
	version, err := m.StampedVersion(stamp)
	if err != nil {
		return nil, fmt.Errorf("packager: %w", err)
	}
	found, skipped, err := scripts.Discover(b.Root, scripts.Options{Dir: m.Scripts.Dir, Patterns: m.Scripts.Patterns})
	if err != nil {
		return nil, fmt.Errorf("packager: %w", err)
	}
	for _, s := range skipped {
		b.Logger.Debug().Str("path", s.Path).Str("filter", s.Filter).Msg("Skipped entry point")
	}
	files, err := packageFiles(b.Root, m.Packages)
	if err != nil {
		return nil, err
	}
	fields, err := m.Metadata(stamp)
	if err != nil {
		return nil, fmt.Errorf("packager: %w", err)
	}
	return &contents{
		version:  version,
		metadata: manifest.RenderMetadata(fields),
		scripts:  found,
		files:    files,
	}, nil
}

type contents struct {
	version  string
	metadata []byte
	scripts  []scripts.Script
	files    []string
}

// Build writes <Output>/<name>-<version>.tar.gz.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	var res *Result
	err := b.stamped(ctx, func(stamp provenance.Stamp) error {
		c, err := b.collect(stamp)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		out := b.Output
		if out == "" {
			out = DefaultOutput
		}
		if !filepath.IsAbs(out) {
			out = filepath.Join(b.Root, out)
		}
		name := fmt.Sprintf("%s-%s", b.Manifest.Name, c.version)
		archive := filepath.Join(out, name+".tar.gz")
		n, err := writeArchive(ctx, archive, name, b.Root, c, b.clock())
		if err != nil {
			return err
		}
		res = &Result{Stamp: stamp, Version: c.version, Archive: archive, Scripts: c.scripts, Files: n}
		b.Logger.Info().
			Str("archive", archive).
			Str("version", c.version).
			Int("scripts", len(c.scripts)).
			Int("files", n).
			Msg("Built distribution")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Install copies entry points to <prefix>/bin and packages with their
// metadata to <prefix>/lib/<name>.
func (b *Builder) Install(ctx context.Context, prefix string) (*Result, error) {
	var res *Result
	err := b.stamped(ctx, func(stamp provenance.Stamp) error {
		c, err := b.collect(stamp)
		if err != nil {
			return err
		}
		lib := filepath.Join(prefix, "lib", b.Manifest.Name)
		n := 0
		for _, rel := range c.files {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := copyFile(filepath.Join(b.Root, filepath.FromSlash(rel)), filepath.Join(lib, filepath.FromSlash(rel)), 0); err != nil {
				return err
			}
			n++
		}
		for _, s := range c.scripts {
			if err := ctx.Err(); err != nil {
				return err
			}
			dst := filepath.Join(prefix, "bin", s.Name)
			if err := copyFile(filepath.Join(b.Root, filepath.FromSlash(s.Path)), dst, 0o755); err != nil {
				return err
			}
			n++
		}
		if err := os.MkdirAll(lib, 0o755); err != nil {
			return fmt.Errorf("packager: install: %w", err)
		}
		if err := os.WriteFile(filepath.Join(lib, "PKG-INFO"), c.metadata, 0o644); err != nil {
			return fmt.Errorf("packager: install: %w", err)
		}
		n++
		res = &Result{Stamp: stamp, Version: c.version, Prefix: prefix, Scripts: c.scripts, Files: n}
		b.Logger.Info().
			Str("prefix", prefix).
			Str("version", c.version).
			Int("scripts", len(c.scripts)).
			Int("files", n).
			Msg("Installed distribution")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (b *Builder) clock() time.Time {
	if b.now == nil {
		return time.Now()
	}
	return b.now()
}

// scriptPath is where an entry point is stored inside the archive.
func scriptPath(s scripts.Script) string {
	return path.Join("bin", s.Name)
}
