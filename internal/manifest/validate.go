package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/danielgruen/ngmixer/internal/license"
	"github.com/danielgruen/ngmixer/internal/semver"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "https://github.com/danielgruen/ngmixer/manifest.schema.json"

var (
	schema   = compileSchema()
	licenses = license.NewNormalizer()
)

func compileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.AssertFormat = true
	if err := c.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		panic(fmt.Sprintf("manifest: schema resource: %v", err))
	}
	return c.MustCompile(schemaURL)
}

// ErrInvalid is matched by every validation failure.
var ErrInvalid = errors.New("invalid manifest")

// ValidationError lists every problem found in a manifest.
type ValidationError struct {
	Source   string
	Problems []string
}

func (e *ValidationError) Error() string {
	src := e.Source
	if src == "" {
		src = "manifest"
	}
	return fmt.Sprintf("%s: %s", src, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// Validate checks m against the manifest schema, then checks that the version
// is PEP 440, that the license is one the normalizer recognizes, and that the
// stamp artifact is shipped in a package.
func (m *Manifest) Validate() error {
	var problems []string

	doc, err := toDocument(m)
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			problems = append(problems, schemaProblems(verr)...)
		} else {
			problems = append(problems, err.Error())
		}
	}

	if m.Version != "" {
		if _, err := semver.Parse(m.Version); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if m.License != "" && !licenses.IsKnown(m.License) {
		problems = append(problems, fmt.Sprintf("license %q is not a recognized SPDX identifier", m.License))
	}
	seen := make(map[string]bool)
	for _, p := range m.Packages {
		clean := path.Clean(p)
		if clean != p || strings.HasPrefix(clean, "../") {
			problems = append(problems, fmt.Sprintf("package path %q is not clean", p))
		}
		if seen[clean] {
			problems = append(problems, fmt.Sprintf("package %q listed twice", p))
		}
		seen[clean] = true
	}
	if m.Stamp != nil && m.Stamp.Path != "" && !m.ships(m.Stamp.Path) {
		problems = append(problems, fmt.Sprintf("stamp artifact %q is not inside any package", m.Stamp.Path))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ships reports whether the slash path p lies inside one of the packages.
func (m *Manifest) ships(p string) bool {
	p = path.Clean(p)
	for _, pkg := range m.Packages {
		pkg = path.Clean(pkg)
		if pkg == "." || strings.HasPrefix(p, pkg+"/") {
			return true
		}
	}
	return false
}

// toDocument round-trips m through JSON to get the generic form the schema
// validator walks.
func toDocument(m *Manifest) (interface{}, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("manifest: encode: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}
	return doc, nil
}

func schemaProblems(verr *jsonschema.ValidationError) []string {
	var out []string
	for _, e := range verr.BasicOutput().Errors {
		if e.Error == "" || strings.HasPrefix(e.Error, "doesn't validate with") {
			continue
		}
		loc := e.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		out = append(out, fmt.Sprintf("%s: %s", loc, e.Error))
	}
	if len(out) == 0 {
		out = append(out, verr.Error())
	}
	return out
}
