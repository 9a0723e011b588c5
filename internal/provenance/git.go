package provenance

import (
	"context"
	"errors"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// GitResolver reads HEAD and worktree status of the repository containing Dir.
type GitResolver struct {
	Dir string
	// IncludeUntracked counts untracked files as uncommitted changes.
	IncludeUntracked bool
}

func (g GitResolver) Resolve(ctx context.Context) (Stamp, error) {
	if err := ctx.Err(); err != nil {
		return Stamp{}, g.fail("resolve", err)
	}
	repo, err := git.PlainOpenWithOptions(g.Dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return Stamp{}, g.fail("open repository", err)
	}
	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return Stamp{}, g.fail("read HEAD", errors.New("repository has no commits"))
		}
		return Stamp{}, g.fail("read HEAD", err)
	}
	if err := ctx.Err(); err != nil {
		return Stamp{}, g.fail("resolve", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return Stamp{}, g.fail("worktree", err)
	}
	status, err := wt.Status()
	if err != nil {
		return Stamp{}, g.fail("status", err)
	}
	return Stamp{
		Revision: head.Hash().String(),
		Dirty:    isDirty(status, g.IncludeUntracked),
	}, nil
}

func (g GitResolver) fail(op string, err error) error {
	return &ProvenanceError{Op: op, Dir: g.Dir, Err: err}
}

func isDirty(status git.Status, includeUntracked bool) bool {
	for _, fs := range status {
		if fs.Staging == git.Untracked && fs.Worktree == git.Untracked {
			if includeUntracked {
				return true
			}
			continue
		}
		if fs.Staging != git.Unmodified || fs.Worktree != git.Unmodified {
			return true
		}
	}
	return false
}
