// Package checkout swaps a worktree's contents from one tree to
// another without disturbing paths the swap has no business touching,
// even when those paths are themselves mid-conflict in the index.
package checkout

import (
	"context"
	"iter"

	"go.abhg.dev/vbr/internal/git"
)

// Repo is the slice of worktree operations [SafeCheckout] needs. It
// exists so callers can fake it in tests without standing up a real
// repository and working directory.
type Repo interface {
	DiffTree(ctx context.Context, fromTree, toTree string) iter.Seq2[git.FileStatus, error]
	DiffTreeWork(ctx context.Context, treeish string) iter.Seq2[git.FileStatus, error]
	CheckoutFiles(ctx context.Context, req *git.CheckoutFilesRequest) error
	RemoveFiles(ctx context.Context, req *git.RemoveFilesRequest) error
	SetRef(ctx context.Context, req git.SetRefRequest) error

	// RootDir is the absolute path to the worktree's root directory,
	// used only to detect and clear directory/file blockers before a
	// checkout.
	RootDir() string
}

// GitRepo adapts a [*git.Worktree] to [Repo].
type GitRepo struct {
	WT *git.Worktree
}

var _ Repo = GitRepo{}

func (g GitRepo) DiffTree(ctx context.Context, fromTree, toTree string) iter.Seq2[git.FileStatus, error] {
	return g.WT.Repository().DiffTree(ctx, fromTree, toTree)
}

func (g GitRepo) DiffTreeWork(ctx context.Context, treeish string) iter.Seq2[git.FileStatus, error] {
	return g.WT.DiffTreeWork(ctx, treeish)
}

func (g GitRepo) CheckoutFiles(ctx context.Context, req *git.CheckoutFilesRequest) error {
	return g.WT.CheckoutFiles(ctx, req)
}

func (g GitRepo) RemoveFiles(ctx context.Context, req *git.RemoveFilesRequest) error {
	return g.WT.RemoveFiles(ctx, req)
}

func (g GitRepo) SetRef(ctx context.Context, req git.SetRefRequest) error {
	return g.WT.Repository().SetRef(ctx, req)
}

func (g GitRepo) RootDir() string {
	return g.WT.RootDir()
}
