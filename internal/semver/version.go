// Package semver parses and orders PEP 440 versions, the scheme the package
// metadata is published under.
package semver

import (
	"fmt"
	"strconv"
)

// ParseError represents a version parsing error
type ParseError struct {
	System  string
	Version string
	Reason  string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%s version parse error: %q: %s", e.System, e.Version, e.Reason)
}

func parseError(version, reason string) ParseError {
	return ParseError{System: "PEP 440", Version: version, Reason: reason}
}

// Normalize returns the canonical form of version, or version unchanged if it
// does not parse.
func Normalize(version string) string {
	v, err := Parse(version)
	if err != nil {
		return version
	}
	return v.Canon()
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// atoiOr parses s, treating an empty string as def. The regexp guarantees
// digits only.
func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
