// Package version provides build-time version information injected via ldflags.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/danielgruen/ngmixer/internal/buildinfo"
)

// These variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/danielgruen/ngmixer/internal/version.Commit=$(git rev-parse HEAD) ..."
//
// `ngmixer-build ldflags` prints the full set for the current checkout.
var (
	Version = "dev"
	Commit  = ""
	Date    = "unknown"
	Dirty   = ""
)

// DirtySuffix marks a revision built from a modified working tree.
const DirtySuffix = "-dirty"

// readBuildInfo and packagedHash are swapped out in tests.
var (
	readBuildInfo = debug.ReadBuildInfo
	packagedHash  = buildinfo.GitHash
)

// Revision returns the commit the binary was built from and whether the tree
// was dirty. Injected values win over a stamp written into
// internal/buildinfo by `ngmixer-build stamp`, which wins over the
// toolchain's embedded vcs settings.
func Revision() (string, bool) {
	if Commit != "" {
		return Commit, Dirty == "true"
	}
	if packagedHash != "" {
		rev, dirty := strings.CutSuffix(packagedHash, DirtySuffix)
		return rev, dirty
	}
	info, ok := readBuildInfo()
	if !ok {
		return "", false
	}
	var rev string
	var modified bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}
	return rev, modified
}

// String returns the revision with the dirty suffix, or "dev" when unknown.
func String() string {
	rev, dirty := Revision()
	if rev == "" {
		return "dev"
	}
	if dirty {
		return rev + DirtySuffix
	}
	return rev
}

// Full returns a formatted version string including commit and build date.
func Full() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, String(), Date)
}
