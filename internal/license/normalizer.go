package license

import (
	"sort"
	"strings"
)

// Normalizer maps free-form license names, as found in package metadata, to
// SPDX identifiers.
type Normalizer struct {
	mappings map[string]string
}

// NewNormalizer returns a normalizer with mappings for the licenses common in
// scientific Python and Go packages. Keys are lowercase.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		mappings: map[string]string{
			// GPL family; a bare "GPL" is read as version 3
			"gpl":                           "GPL-3.0",
			"gpl3":                          "GPL-3.0",
			"gplv3":                         "GPL-3.0",
			"gpl v3":                        "GPL-3.0",
			"gpl-3":                         "GPL-3.0",
			"gpl-3.0":                       "GPL-3.0",
			"gpl-3.0-only":                  "GPL-3.0",
			"gpl-3.0-or-later":              "GPL-3.0-or-later",
			"gnu general public license v3": "GPL-3.0",
			"gpl2":                          "GPL-2.0",
			"gplv2":                         "GPL-2.0",
			"gpl v2":                        "GPL-2.0",
			"gpl-2.0":                       "GPL-2.0",
			"gpl-2.0-only":                  "GPL-2.0",
			"gpl-2.0-or-later":              "GPL-2.0-or-later",
			"lgpl":                          "LGPL-3.0",
			"lgpl-3.0":                      "LGPL-3.0",
			"lgpl-2.1":                      "LGPL-2.1",

			// permissive
			"mit":                "MIT",
			"mit license":        "MIT",
			"expat":              "MIT",
			"bsd":                "BSD-3-Clause",
			"bsd-3-clause":       "BSD-3-Clause",
			"new bsd":            "BSD-3-Clause",
			"bsd-2-clause":       "BSD-2-Clause",
			"simplified bsd":     "BSD-2-Clause",
			"apache":             "Apache-2.0",
			"apache 2.0":         "Apache-2.0",
			"apache-2.0":         "Apache-2.0",
			"apache license 2.0": "Apache-2.0",
			"isc":                "ISC",
			"mpl-2.0":            "MPL-2.0",
			"unlicense":          "Unlicense",
			"cc0":                "CC0-1.0",
			"cc0-1.0":            "CC0-1.0",

			"proprietary": "Proprietary",
		},
	}
}

// Normalize returns the SPDX identifier for license, or the trimmed input if
// no mapping exists.
func (n *Normalizer) Normalize(license string) string {
	license = strings.Trim(strings.TrimSpace(license), `"'`)
	if license == "" {
		return ""
	}
	if spdx, ok := n.mappings[strings.ToLower(license)]; ok {
		return spdx
	}
	return license
}

// IsKnown reports whether license normalizes to an identifier in the table.
func (n *Normalizer) IsKnown(license string) bool {
	normalized := n.Normalize(license)
	if normalized == "" {
		return false
	}
	for _, spdx := range n.mappings {
		if spdx == normalized {
			return true
		}
	}
	return false
}

// Same reports whether two license names denote the same license family,
// ignoring the SPDX -only and -or-later qualifiers.
func (n *Normalizer) Same(a, b string) bool {
	a, b = family(n.Normalize(a)), family(n.Normalize(b))
	return a != "" && strings.EqualFold(a, b)
}

func family(spdx string) string {
	spdx = strings.TrimSuffix(spdx, "-only")
	spdx = strings.TrimSuffix(spdx, "-or-later")
	spdx = strings.TrimSuffix(spdx, "+")
	return spdx
}

// Supported returns the sorted set of SPDX identifiers the normalizer emits.
func (n *Normalizer) Supported() []string {
	seen := make(map[string]bool)
	var out []string
	for _, spdx := range n.mappings {
		if !seen[spdx] {
			seen[spdx] = true
			out = append(out, spdx)
		}
	}
	sort.Strings(out)
	return out
}
