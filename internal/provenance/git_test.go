package provenance

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initRepo creates a repository with one committed file and returns its
// directory and HEAD hash.
func initRepo(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "setup.cfg"), []byte("[metadata]\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("setup.cfg")
	require.NoError(t, err)
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "ngmixer", Email: "ngmixer@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir, hash.String()
}

func TestGitResolverClean(t *testing.T) {
	dir, head := initRepo(t)

	s, err := GitResolver{Dir: dir}.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, head, s.Revision)
	assert.False(t, s.Dirty)
	assert.Equal(t, head, s.String())
}

func TestGitResolverModifiedTrackedFile(t *testing.T) {
	dir, head := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "setup.cfg"), []byte("[metadata]\nname = ngmixer\n"), 0o644))

	s, err := GitResolver{Dir: dir}.Resolve(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Dirty)
	assert.Equal(t, head+"-dirty", s.String())
}

func TestGitResolverUntracked(t *testing.T) {
	dir, _ := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("notes"), 0o644))

	s, err := GitResolver{Dir: dir}.Resolve(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Dirty, "untracked files are ignored by default")

	s, err = GitResolver{Dir: dir, IncludeUntracked: true}.Resolve(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Dirty)
}

func TestGitResolverSubdirectory(t *testing.T) {
	dir, head := initRepo(t)
	sub := filepath.Join(dir, "bin")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	s, err := GitResolver{Dir: sub}.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, head, s.Revision)
}

func TestGitResolverFailures(t *testing.T) {
	t.Run("not a repository", func(t *testing.T) {
		_, err := GitResolver{Dir: t.TempDir()}.Resolve(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProvenanceUnavailable)

		var perr *ProvenanceError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "open repository", perr.Op)
	})

	t.Run("no commits", func(t *testing.T) {
		dir := t.TempDir()
		_, err := git.PlainInit(dir, false)
		require.NoError(t, err)

		_, err = GitResolver{Dir: dir}.Resolve(context.Background())
		assert.ErrorIs(t, err, ErrProvenanceUnavailable)
	})

	t.Run("cancelled", func(t *testing.T) {
		dir, _ := initRepo(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := GitResolver{Dir: dir}.Resolve(ctx)
		assert.ErrorIs(t, err, ErrProvenanceUnavailable)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
