// Package license normalizes declared license names and detects the license
// actually shipped in a source tree.
package license

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-enry/go-license-detector/v4/licensedb"
	"github.com/go-enry/go-license-detector/v4/licensedb/filer"
)

// ErrNotFound is returned when the tree contains no recognizable license file.
var ErrNotFound = errors.New("no license file found")

// Detection is one candidate license for a directory.
type Detection struct {
	SPDX       string
	Confidence float32
}

// Detect scans dir for license files and returns candidates ordered by
// descending confidence.
func Detect(dir string) ([]Detection, error) {
	f, err := filer.FromDirectory(dir)
	if err != nil {
		return nil, fmt.Errorf("license: open %s: %w", dir, err)
	}
	defer f.Close()

	matches, err := licensedb.Detect(f)
	if err != nil {
		if errors.Is(err, licensedb.ErrNoLicenseFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("license: detect in %s: %w", dir, err)
	}

	out := make([]Detection, 0, len(matches))
	for id, m := range matches {
		out = append(out, Detection{SPDX: id, Confidence: m.Confidence})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].SPDX < out[j].SPDX
	})
	return out, nil
}

// Best returns the highest-confidence detection in dir.
func Best(dir string) (Detection, error) {
	all, err := Detect(dir)
	if err != nil {
		return Detection{}, err
	}
	if len(all) == 0 {
		return Detection{}, ErrNotFound
	}
	return all[0], nil
}
