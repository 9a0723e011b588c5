// Package manifest holds the static package metadata recorded with every build.
package manifest

import (
	"fmt"
	"strings"

	"github.com/danielgruen/ngmixer/internal/provenance"
	"github.com/danielgruen/ngmixer/internal/semver"
)

// Manifest describes the distribution: metadata plus what goes into it.
type Manifest struct {
	Name        string        `yaml:"name" json:"name"`
	Version     string        `yaml:"version" json:"version"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
	License     string        `yaml:"license" json:"license"`
	Authors     []Author      `yaml:"authors" json:"authors"`
	Packages    []string      `yaml:"packages" json:"packages"`
	Scripts     ScriptsConfig `yaml:"scripts,omitempty" json:"scripts,omitempty"`
	Stamp       *StampConfig  `yaml:"stamp,omitempty" json:"stamp,omitempty"`
}

type Author struct {
	Name  string `yaml:"name" json:"name"`
	Email string `yaml:"email,omitempty" json:"email,omitempty"`
}

func (a Author) String() string {
	if a.Email == "" {
		return a.Name
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// ScriptsConfig locates the entry points. Empty fields fall back to the
// scripts package defaults.
type ScriptsConfig struct {
	Dir      string   `yaml:"dir,omitempty" json:"dir,omitempty"`
	Patterns []string `yaml:"patterns,omitempty" json:"patterns,omitempty"`
}

// StampConfig enables the generated stamp artifact.
type StampConfig struct {
	// Path is relative to the repository root.
	Path    string `yaml:"path" json:"path"`
	Package string `yaml:"package,omitempty" json:"package,omitempty"`
	Const   string `yaml:"const,omitempty" json:"const,omitempty"`
	// Abbrev shortens the revision; 0 keeps the full hash.
	Abbrev int `yaml:"abbrev,omitempty" json:"abbrev,omitempty"`
	// IncludeUntracked counts untracked files as dirty.
	IncludeUntracked bool `yaml:"include_untracked,omitempty" json:"include_untracked,omitempty"`
}

// Default returns the metadata ngmixer has always been published with.
func Default() *Manifest {
	return &Manifest{
		Name:        "ngmixer",
		Version:     "0.1.0",
		Description: "Run ngmix on data",
		License:     "GPL",
		Authors: []Author{
			{Name: "Matthew R. Becker", Email: "becker.mr@gmail.com"},
			{Name: "Erin Scott Sheldon", Email: "erin.sheldon@gmail.com"},
		},
		Packages: []string{"ngmixer", "ngmixer/imageio", "ngmixer/megamixer"},
		Scripts:  ScriptsConfig{Dir: "bin", Patterns: []string{"ngmixit", "*"}},
		Stamp:    &StampConfig{Path: "ngmixer/buildinfo/githash.go"},
	}
}

// Field is one PKG-INFO header.
type Field struct {
	Key   string
	Value string
}

// StampedVersion returns the declared version with the stamp as PEP 440 local
// segments: 0.1.0+gabc123.dirty. A neutral stamp yields the public version.
func (m *Manifest) StampedVersion(stamp provenance.Stamp) (string, error) {
	v, err := semver.Parse(m.Version)
	if err != nil {
		return "", err
	}
	if stamp.IsNeutral() {
		return v.Public(), nil
	}
	segments := []string{"g" + stamp.Revision}
	if stamp.Dirty {
		segments = append(segments, "dirty")
	}
	stamped, err := v.WithLocal(segments...)
	if err != nil {
		return "", err
	}
	return stamped.Canon(), nil
}

// Metadata returns the PKG-INFO fields for a build from stamp.
func (m *Manifest) Metadata(stamp provenance.Stamp) ([]Field, error) {
	version, err := m.StampedVersion(stamp)
	if err != nil {
		return nil, err
	}
	var names, emails []string
	for _, a := range m.Authors {
		names = append(names, a.Name)
		if a.Email != "" {
			emails = append(emails, a.String())
		}
	}
	fields := []Field{
		{"Metadata-Version", "2.1"},
		{"Name", m.Name},
		{"Version", version},
		{"Summary", m.Description},
		{"License", licenses.Normalize(m.License)},
		{"Author", strings.Join(names, ", ")},
		{"Author-email", strings.Join(emails, ", ")},
	}
	if !stamp.IsNeutral() {
		fields = append(fields, Field{"Revision", stamp.String()})
	}
	return fields, nil
}

// RenderMetadata formats fields as RFC 822 style headers.
func RenderMetadata(fields []Field) []byte {
	var b strings.Builder
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", f.Key, f.Value)
	}
	return []byte(b.String())
}

// Archive returns the base name of the distribution archive.
func (m *Manifest) Archive(stamp provenance.Stamp) (string, error) {
	version, err := m.StampedVersion(stamp)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s.tar.gz", m.Name, version), nil
}
