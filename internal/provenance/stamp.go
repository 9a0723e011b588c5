// Package provenance resolves the source-control revision a build is made from.
package provenance

import (
	"context"
	"strings"
)

// DirtySuffix is appended to the revision when the working tree has
// uncommitted changes.
const DirtySuffix = "-dirty"

// Stamp identifies the checkout a build was produced from. The zero value is
// the neutral stamp and renders as the empty string.
type Stamp struct {
	Revision string
	Dirty    bool
}

func (s Stamp) String() string {
	if s.Revision == "" {
		return ""
	}
	if s.Dirty {
		return s.Revision + DirtySuffix
	}
	return s.Revision
}

// IsNeutral reports whether the stamp carries no revision.
func (s Stamp) IsNeutral() bool {
	return s.Revision == ""
}

// Short returns a copy with the revision cut to n characters. n <= 0 keeps the
// full revision.
func (s Stamp) Short(n int) Stamp {
	if n > 0 && len(s.Revision) > n {
		s.Revision = s.Revision[:n]
	}
	return s
}

// Parse reverses String: "abc123-dirty" is revision abc123 with Dirty set.
func Parse(v string) Stamp {
	v = strings.TrimSpace(v)
	if rev, ok := strings.CutSuffix(v, DirtySuffix); ok && rev != "" {
		return Stamp{Revision: rev, Dirty: true}
	}
	return Stamp{Revision: v}
}

// Resolver produces the stamp of the current checkout.
type Resolver interface {
	Resolve(ctx context.Context) (Stamp, error)
}

// Static always resolves to the same stamp. A neutral Static is rejected, so a
// pinned revision can never silently stamp an empty value.
type Static struct {
	Stamp Stamp
}

func (s Static) Resolve(ctx context.Context) (Stamp, error) {
	if err := ctx.Err(); err != nil {
		return Stamp{}, &ProvenanceError{Op: "resolve", Err: err}
	}
	if s.Stamp.IsNeutral() {
		return Stamp{}, &ProvenanceError{Op: "resolve", Err: errEmptyRevision}
	}
	return s.Stamp, nil
}

// Abbreviated wraps r so every resolved revision is cut to n characters.
func Abbreviated(r Resolver, n int) Resolver {
	if n <= 0 {
		return r
	}
	return abbreviated{r: r, n: n}
}

type abbreviated struct {
	r Resolver
	n int
}

func (a abbreviated) Resolve(ctx context.Context) (Stamp, error) {
	s, err := a.r.Resolve(ctx)
	if err != nil {
		return Stamp{}, err
	}
	return s.Short(a.n), nil
}
