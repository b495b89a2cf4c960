// Package rebase implements the cherry-pick and merge engine that
// replays a plan of commits onto a new base, one step at a time.
// Conflicts are never fatal: a step that cannot be auto-merged cleanly
// produces a conflicted commit whose tree carries the base, both
// sides, and a best-effort auto-resolution as first-class data, so a
// later step can keep building on top of it.
package rebase

import (
	"context"
	"iter"

	"go.abhg.dev/vbr/internal/git"
)

// Repo is the slice of [*git.Repository] the engine needs. It exists
// so callers can fake it in tests without standing up a real
// repository.
type Repo interface {
	ReadCommit(ctx context.Context, commitish string) (*git.CommitObject, error)
	MergeBase(ctx context.Context, a, b string) (git.Hash, error)
	MergeTree(ctx context.Context, req git.MergeTreeRequest) (git.Hash, error)
	ListTree(ctx context.Context, tree git.Hash, opts git.ListTreeOptions) (iter.Seq2[git.TreeEntry, error], error)
	MakeTree(ctx context.Context, ents iter.Seq[git.TreeEntry]) (git.Hash, error)
	UpdateTree(ctx context.Context, req git.UpdateTreeRequest) (git.Hash, error)
	CommitTree(ctx context.Context, req git.CommitTreeRequest) (git.Hash, error)
}

var _ Repo = (*git.Repository)(nil)
