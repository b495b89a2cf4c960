// Package oplog records periodic snapshots of the repository's working
// tree, index, and operation metadata as a hidden commit chain, so an
// operation that goes wrong can be undone by checking an earlier
// snapshot back out.
//
// The chain lives off a ref that git log --all never shows, kept alive
// across garbage collection by a synthetic reflog entry rather than by
// being reachable from any branch.
package oplog

import (
	"context"
	"iter"

	"go.abhg.dev/vbr/internal/git"
)

// HeadRef is the ref holding the tip of the snapshot chain.
const HeadRef = "refs/vbr/oplog"

// Repo is the slice of repository operations the oplog needs. It
// exists so callers can fake it in tests without standing up a real
// repository.
type Repo interface {
	MakeTree(ctx context.Context, ents iter.Seq[git.TreeEntry]) (git.Hash, error)
	ReadCommit(ctx context.Context, commitish string) (*git.CommitObject, error)
	CommitTree(ctx context.Context, req git.CommitTreeRequest) (git.Hash, error)
	ListTree(ctx context.Context, tree git.Hash, opts git.ListTreeOptions) (iter.Seq2[git.TreeEntry, error], error)
	SetRef(ctx context.Context, req git.SetRefRequest) error
	Reference(ctx context.Context, name string) (*git.ReferenceInfo, error)

	// GitDir is the absolute path to the repository's .git directory,
	// used only to write the reflog entry that pins the chain against
	// garbage collection.
	GitDir() string
}

// GitRepo adapts a [*git.Repository] to [Repo].
type GitRepo struct {
	Repo *git.Repository
}

var _ Repo = GitRepo{}

func (g GitRepo) MakeTree(ctx context.Context, ents iter.Seq[git.TreeEntry]) (git.Hash, error) {
	return g.Repo.MakeTree(ctx, ents)
}

func (g GitRepo) ReadCommit(ctx context.Context, commitish string) (*git.CommitObject, error) {
	return g.Repo.ReadCommit(ctx, commitish)
}

func (g GitRepo) CommitTree(ctx context.Context, req git.CommitTreeRequest) (git.Hash, error) {
	return g.Repo.CommitTree(ctx, req)
}

func (g GitRepo) ListTree(ctx context.Context, tree git.Hash, opts git.ListTreeOptions) (iter.Seq2[git.TreeEntry, error], error) {
	return g.Repo.ListTree(ctx, tree, opts)
}

func (g GitRepo) SetRef(ctx context.Context, req git.SetRefRequest) error {
	return g.Repo.SetRef(ctx, req)
}

func (g GitRepo) Reference(ctx context.Context, name string) (*git.ReferenceInfo, error) {
	return g.Repo.Reference(ctx, name)
}

func (g GitRepo) GitDir() string {
	return g.Repo.GitDir()
}
