package packager

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"

	"github.com/danielgruen/ngmixer/internal/provenance"
)

// VersionPackage is the package, relative to the module path, whose variables
// carry the build stamp.
const VersionPackage = "internal/version"

// LDFlags returns the -X linker flags stamping a Go build of the module at
// root with version, stamp and date. This replaces writing the stamp into a
// tracked file: nothing in the tree changes.
func LDFlags(root, version string, stamp provenance.Stamp, date time.Time) ([]string, error) {
	if stamp.IsNeutral() {
		return nil, &provenance.ProvenanceError{Op: "ldflags", Dir: root, Err: fmt.Errorf("neutral stamp")}
	}
	modPath, err := ModulePath(root)
	if err != nil {
		return nil, err
	}
	pkg := modPath + "/" + VersionPackage
	return []string{
		"-X", pkg + ".Version=" + version,
		"-X", pkg + ".Commit=" + stamp.Revision,
		"-X", pkg + ".Dirty=" + strconv.FormatBool(stamp.Dirty),
		"-X", pkg + ".Date=" + date.UTC().Format(time.RFC3339),
	}, nil
}

// JoinFlags renders flags as one -ldflags argument.
func JoinFlags(flags []string) string {
	return strings.Join(flags, " ")
}

// ModulePath reads the module path from root/go.mod.
func ModulePath(root string) (string, error) {
	gomod := filepath.Join(root, "go.mod")
	data, err := os.ReadFile(gomod)
	if err != nil {
		return "", fmt.Errorf("packager: %w", err)
	}
	modPath := modfile.ModulePath(data)
	if modPath == "" {
		return "", fmt.Errorf("packager: %s: no module directive", gomod)
	}
	if err := module.CheckImportPath(modPath); err != nil {
		return "", fmt.Errorf("packager: %s: %w", gomod, err)
	}
	return modPath, nil
}
