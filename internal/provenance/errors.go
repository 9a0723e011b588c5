package provenance

import (
	"errors"
	"fmt"
)

// ErrProvenanceUnavailable is matched by every resolution failure.
var ErrProvenanceUnavailable = errors.New("provenance unavailable")

var errEmptyRevision = errors.New("empty revision")

// ProvenanceError reports why the revision or dirty state could not be read.
type ProvenanceError struct {
	Op  string
	Dir string
	Err error
}

func (e *ProvenanceError) Error() string {
	if e.Dir != "" {
		return fmt.Sprintf("provenance: %s %s: %v", e.Op, e.Dir, e.Err)
	}
	return fmt.Sprintf("provenance: %s: %v", e.Op, e.Err)
}

func (e *ProvenanceError) Unwrap() []error {
	return []error{ErrProvenanceUnavailable, e.Err}
}
