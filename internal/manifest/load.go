package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Candidates are the file names Find looks for, in order.
var Candidates = []string{"ngmixer.yaml", "ngmixer.yml", "ngmixer.json", "ngmixer.hcl"}

// ErrNotFound is returned by Find when no manifest exists in the directory.
var ErrNotFound = errors.New("no manifest found")

// Find returns the path of the first candidate manifest present in dir.
func Find(dir string) (string, error) {
	for _, name := range Candidates {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("manifest: %w", err)
		}
	}
	return "", fmt.Errorf("manifest: %s: %w (tried %s)", dir, ErrNotFound, strings.Join(Candidates, ", "))
}

// Load reads and validates the manifest at path. The format follows the
// extension: .yaml/.yml, .json or .hcl.
func Load(path string) (*Manifest, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	m, err := Decode(path, src)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Source = path
		}
		return nil, err
	}
	return m, nil
}

// Decode parses src according to the extension of filename without validating.
func Decode(filename string, src []byte) (*Manifest, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return decodeYAML(filename, src)
	case ".json":
		return decodeJSON(filename, src)
	case ".hcl":
		return decodeHCL(filename, src)
	}
	return nil, fmt.Errorf("manifest: %s: unsupported format %q", filename, filepath.Ext(filename))
}

func decodeYAML(filename string, src []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", filename, err)
	}
	return &m, nil
}

func decodeJSON(filename string, src []byte) (*Manifest, error) {
	var m Manifest
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", filename, err)
	}
	return &m, nil
}

// hclManifest mirrors Manifest with HCL blocks for the nested parts:
//
//	name    = "ngmixer"
//	version = env.NGMIXER_VERSION
//	author {
//	  name  = "Erin Scott Sheldon"
//	  email = "erin.sheldon@gmail.com"
//	}
//	stamp { path = "ngmixer/buildinfo/githash.go" }
type hclManifest struct {
	Name        string      `hcl:"name"`
	Version     string      `hcl:"version"`
	Description string      `hcl:"description,optional"`
	License     string      `hcl:"license"`
	Packages    []string    `hcl:"packages"`
	Authors     []hclAuthor `hcl:"author,block"`
	Scripts     *hclScripts `hcl:"scripts,block"`
	Stamp       *hclStamp   `hcl:"stamp,block"`
}

type hclAuthor struct {
	Name  string `hcl:"name"`
	Email string `hcl:"email,optional"`
}

type hclScripts struct {
	Dir      string   `hcl:"dir,optional"`
	Patterns []string `hcl:"patterns,optional"`
}

type hclStamp struct {
	Path             string `hcl:"path"`
	Package          string `hcl:"package,optional"`
	Const            string `hcl:"const,optional"`
	Abbrev           int    `hcl:"abbrev,optional"`
	IncludeUntracked bool   `hcl:"include_untracked,optional"`
}

func decodeHCL(filename string, src []byte) (*Manifest, error) {
	var h hclManifest
	if err := hclsimple.Decode(filename, src, evalContext(), &h); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", filename, err)
	}
	m := &Manifest{
		Name:        h.Name,
		Version:     h.Version,
		Description: h.Description,
		License:     h.License,
		Packages:    h.Packages,
	}
	for _, a := range h.Authors {
		m.Authors = append(m.Authors, Author(a))
	}
	if h.Scripts != nil {
		m.Scripts = ScriptsConfig(*h.Scripts)
	}
	if h.Stamp != nil {
		s := StampConfig(*h.Stamp)
		m.Stamp = &s
	}
	return m, nil
}

// evalContext exposes the process environment as the env object.
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vars)},
	}
}
