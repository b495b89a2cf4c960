package overlay

import (
	"context"
	"errors"
	"iter"

	"go.abhg.dev/vbr/internal/git"
)

// GitRefSource adapts a [*git.Repository] to [RefSource].
type GitRefSource struct {
	Repo *git.Repository
	Ctx  context.Context
}

var _ RefSource = (*GitRefSource)(nil)

// FindReference resolves name against the repository's real refs.
func (g *GitRefSource) FindReference(name string) (Reference, bool, error) {
	info, err := g.Repo.Reference(g.ctx(), name)
	if errors.Is(err, git.ErrNotExist) {
		return Reference{}, false, nil
	}
	if err != nil {
		return Reference{}, false, err
	}
	return Reference{Target: info.Target, Symbolic: info.Symbolic}, true, nil
}

// ReferencesPrefixed lists the repository's real refs starting with
// prefix.
func (g *GitRefSource) ReferencesPrefixed(prefix string) iter.Seq2[RefEntry, error] {
	return func(yield func(RefEntry, error) bool) {
		for info, err := range g.Repo.References(g.ctx(), prefix) {
			if err != nil {
				yield(RefEntry{}, err)
				return
			}
			entry := RefEntry{
				Name:      info.Name,
				Reference: Reference{Target: info.Target, Symbolic: info.Symbolic},
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}

func (g *GitRefSource) ctx() context.Context {
	if g.Ctx != nil {
		return g.Ctx
	}
	return context.Background()
}

// GitWorktreeSource adapts a [*git.Repository] to [WorktreeSource].
type GitWorktreeSource struct {
	Repo *git.Repository
	Ctx  context.Context
}

var _ WorktreeSource = (*GitWorktreeSource)(nil)

// Worktrees lists the repository's worktrees, main worktree first, as
// reported by git-worktree-list with HEAD already resolved.
func (g *GitWorktreeSource) Worktrees() iter.Seq2[WorktreeHead, error] {
	ctx := g.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	return func(yield func(WorktreeHead, error) bool) {
		for item, err := range g.Repo.Worktrees(ctx) {
			if err != nil {
				yield(WorktreeHead{}, err)
				return
			}
			head := WorktreeHead{
				Path:     item.Path,
				Branch:   item.Branch,
				Head:     string(item.Head),
				Detached: item.Detached,
			}
			if !yield(head, nil) {
				return
			}
		}
	}
}
