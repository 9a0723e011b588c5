// Package stampfile writes and resets the generated Go source file that
// carries the build stamp as a single string constant.
package stampfile

import (
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"text/template"
)

const (
	DefaultPackage = "buildinfo"
	DefaultName    = "GitHash"
	// Neutral is the placeholder committed to the repository.
	Neutral = ""
)

// ErrWriteFailure is matched by every failure to write the artifact.
var ErrWriteFailure = errors.New("stamp artifact write failed")

// ErrArtifactMissing is returned when a build would stamp an artifact that
// is not in the tree. Run "ngmixer-build reset" once to create it.
var ErrArtifactMissing = errors.New("stamp artifact does not exist")

// ErrConstNotFound is returned by Read when the file has no such constant.
var ErrConstNotFound = errors.New("stamp constant not found")

// WriteError reports a failed write of the artifact at Path.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("stampfile: write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() []error {
	return []error{ErrWriteFailure, e.Err}
}

var source = template.Must(template.New("stamp").Parse(`// Code generated by ngmixer-build. DO NOT EDIT.

package {{.Package}}

// {{.Name}} is the revision this tree was packaged from, empty outside a build.
const {{.Name}} = {{.Value}}
`))

// Artifact is a generated Go file declaring one string constant.
type Artifact struct {
	Path    string
	Package string
	Name    string
}

func (a Artifact) withDefaults() Artifact {
	if a.Package == "" {
		a.Package = DefaultPackage
	}
	if a.Name == "" {
		a.Name = DefaultName
	}
	return a
}

// Render returns the formatted source for value.
func (a Artifact) Render(value string) ([]byte, error) {
	a = a.withDefaults()
	var buf bytes.Buffer
	err := source.Execute(&buf, struct {
		Package, Name, Value string
	}{a.Package, a.Name, strconv.Quote(value)})
	if err != nil {
		return nil, err
	}
	return format.Source(buf.Bytes())
}

// Write replaces the artifact with one holding value. The file is written to a
// sibling temp file first and renamed into place.
func (a Artifact) Write(value string) error {
	src, err := a.Render(value)
	if err != nil {
		return &WriteError{Path: a.Path, Err: err}
	}
	dir := filepath.Dir(a.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &WriteError{Path: a.Path, Err: err}
	}
	tmp, err := os.CreateTemp(dir, ".stamp-*.go.tmp")
	if err != nil {
		return &WriteError{Path: a.Path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(src); err != nil {
		tmp.Close()
		return &WriteError{Path: a.Path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &WriteError{Path: a.Path, Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return &WriteError{Path: a.Path, Err: err}
	}
	if err := os.Rename(tmp.Name(), a.Path); err != nil {
		return &WriteError{Path: a.Path, Err: err}
	}
	return nil
}

// Exists reports whether the artifact file is present.
func (a Artifact) Exists() (bool, error) {
	info, err := os.Stat(a.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("stampfile: %s is not a regular file", a.Path)
	}
	return true, nil
}

// Reset writes the neutral placeholder.
func (a Artifact) Reset() error {
	return a.Write(Neutral)
}

// Read parses the artifact and returns the constant's value.
func (a Artifact) Read() (string, error) {
	a = a.withDefaults()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, a.Path, nil, 0)
	if err != nil {
		return "", fmt.Errorf("stampfile: read %s: %w", a.Path, err)
	}
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.CONST {
			continue
		}
		for _, spec := range gen.Specs {
			vs := spec.(*ast.ValueSpec)
			for i, name := range vs.Names {
				if name.Name != a.Name || i >= len(vs.Values) {
					continue
				}
				lit, ok := vs.Values[i].(*ast.BasicLit)
				if !ok || lit.Kind != token.STRING {
					return "", fmt.Errorf("stampfile: read %s: %s is not a string literal", a.Path, a.Name)
				}
				return strconv.Unquote(lit.Value)
			}
		}
	}
	return "", fmt.Errorf("stampfile: read %s: %s: %w", a.Path, a.Name, ErrConstNotFound)
}
