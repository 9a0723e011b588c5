package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielgruen/ngmixer/internal/stampfile"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// flag variables keep their values between Execute calls
	resetFlags()
	t.Cleanup(resetFlags)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags() {
	dirFlag, manifestFlag, logLevelFlag = ".", "", ""
	printOnly, prefixFlag, outputFlag = false, "", ""
}

func TestStampShowReset(t *testing.T) {
	root := t.TempDir()
	t.Setenv("NGMIXER_REVISION", "abc123-dirty")
	t.Setenv("NGMIXER_MANIFEST", "")
	artifact := filepath.Join(root, "ngmixer", "buildinfo", "githash.go")

	out, err := run(t, "--dir", root, "stamp", "--print")
	require.NoError(t, err)
	assert.Equal(t, "abc123-dirty\n", out)
	_, err = os.Stat(artifact)
	assert.True(t, os.IsNotExist(err), "--print must not write")

	_, err = run(t, "--dir", root, "stamp")
	assert.ErrorIs(t, err, stampfile.ErrArtifactMissing)
	_, err = os.Stat(artifact)
	assert.True(t, os.IsNotExist(err), "stamp must not create the artifact")

	_, err = run(t, "--dir", root, "reset")
	require.NoError(t, err)
	out, err = run(t, "--dir", root, "show")
	require.NoError(t, err)
	assert.Equal(t, "(neutral)\n", out)

	out, err = run(t, "--dir", root, "stamp")
	require.NoError(t, err)
	assert.Equal(t, "abc123-dirty\n", out)

	out, err = run(t, "--dir", root, "show")
	require.NoError(t, err)
	assert.Equal(t, "abc123-dirty\n", out)

	_, err = run(t, "--dir", root, "reset")
	require.NoError(t, err)

	out, err = run(t, "--dir", root, "show")
	require.NoError(t, err)
	assert.Equal(t, "(neutral)\n", out)
}

// newCheckout lays out a minimal ngmixer tree with a neutral stamp artifact
// and commits it. It returns the root and HEAD hash.
func newCheckout(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"bin/ngmixit":                   "#!/usr/bin/env python\nimport ngmixer\n",
		"bin/ngmixit~":                  "#!/usr/bin/env python\n",
		"ngmixer/__init__.py":           "",
		"ngmixer/imageio/__init__.py":   "",
		"ngmixer/megamixer/__init__.py": "",
	}
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o755))
	}
	_, err := run(t, "--dir", root, "reset")
	require.NoError(t, err)

	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	for rel := range files {
		_, err = wt.Add(rel)
		require.NoError(t, err)
	}
	_, err = wt.Add("ngmixer/buildinfo/githash.go")
	require.NoError(t, err)
	hash, err := wt.Commit("import", &git.CommitOptions{
		Author: &object.Signature{Name: "ngmixer", Email: "ngmixer@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return root, hash.String()
}

func TestPackageCommand(t *testing.T) {
	t.Setenv("NGMIXER_REVISION", "")
	t.Setenv("NGMIXER_MANIFEST", "")
	t.Setenv("NGMIXER_INCLUDE_UNTRACKED", "")
	root, head := newCheckout(t)
	cwd := t.TempDir()
	t.Chdir(cwd)

	out, err := run(t, "--dir", root, "package", "-o", "out")
	require.NoError(t, err)
	want := filepath.Join(cwd, "out", "ngmixer-0.1.0+g"+head+".tar.gz")
	assert.Equal(t, want+"\n", out)
	_, err = os.Stat(want)
	assert.NoError(t, err)

	out, err = run(t, "--dir", root, "show")
	require.NoError(t, err)
	assert.Equal(t, "(neutral)\n", out)
}

func TestInstallCommand(t *testing.T) {
	t.Setenv("NGMIXER_MANIFEST", "")
	root, _ := newCheckout(t)
	t.Setenv("NGMIXER_REVISION", "def456")
	prefix := t.TempDir()

	out, err := run(t, "--dir", root, "install", "--prefix", prefix)
	require.NoError(t, err)
	assert.Equal(t, "ngmixit\n", out)

	_, err = os.Stat(filepath.Join(prefix, "bin", "ngmixit"))
	assert.NoError(t, err)
	installed, err := stampfile.Artifact{Path: filepath.Join(prefix, "lib", "ngmixer", "ngmixer", "buildinfo", "githash.go")}.Read()
	require.NoError(t, err)
	assert.Equal(t, "def456", installed)

	out, err = run(t, "--dir", root, "show")
	require.NoError(t, err)
	assert.Equal(t, "(neutral)\n", out)
}

func TestLDFlagsCommand(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module github.com/danielgruen/ngmixer\n"), 0o644))
	t.Setenv("NGMIXER_REVISION", "def456")
	t.Setenv("NGMIXER_MANIFEST", "")

	out, err := run(t, "--dir", root, "ldflags")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "-X github.com/danielgruen/ngmixer/internal/version.Version=0.1.0 "))
	assert.Contains(t, out, "version.Commit=def456 ")
	assert.Contains(t, out, "version.Dirty=false ")
}

func TestScriptsCommand(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "bin", "ngmixit"), []byte("#!/usr/bin/env python\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "bin", "ngmixit~"), []byte("#!/usr/bin/env python\n"), 0o755))
	t.Setenv("NGMIXER_MANIFEST", "")

	out, err := run(t, "--dir", root, "scripts")
	require.NoError(t, err)
	assert.Contains(t, out, "bin/ngmixit ")
	assert.NotContains(t, out, "ngmixit~")
}

func TestInstallRequiresPrefix(t *testing.T) {
	t.Setenv("NGMIXER_MANIFEST", "")
	_, err := run(t, "--dir", t.TempDir(), "install")
	assert.Error(t, err)
}
