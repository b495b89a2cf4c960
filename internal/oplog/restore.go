package oplog

import (
	"context"
	"fmt"

	"go.abhg.dev/vbr/internal/checkout"
	"go.abhg.dev/vbr/internal/git"
)

// Entries is the three subtrees recorded by a snapshot commit.
type Entries struct {
	WorktreeTree, IndexTree, MetadataTree git.Hash
}

// Read looks up a snapshot commit and reports its three recorded
// subtrees.
func Read(ctx context.Context, repo Repo, snapshot git.Hash) (*Entries, Message, error) {
	commit, err := repo.ReadCommit(ctx, snapshot.String())
	if err != nil {
		return nil, Message{}, fmt.Errorf("read snapshot %s: %w", snapshot.Short(), err)
	}

	msg, err := ParseMessage(commit)
	if err != nil {
		return nil, Message{}, err
	}

	entries, err := repo.ListTree(ctx, commit.Tree, git.ListTreeOptions{})
	if err != nil {
		return nil, Message{}, fmt.Errorf("list snapshot tree: %w", err)
	}

	var out Entries
	for ent, err := range entries {
		if err != nil {
			return nil, Message{}, fmt.Errorf("list snapshot tree: %w", err)
		}
		switch ent.Name {
		case worktreeEntry:
			out.WorktreeTree = ent.Hash
		case indexEntry:
			out.IndexTree = ent.Hash
		case metadataEntry:
			out.MetadataTree = ent.Hash
		}
	}

	return &out, msg, nil
}

// Restore checks the working tree out from fromTree to the worktree
// state recorded by the given snapshot, per the same safe-checkout
// rules as any other tree swap: paths the swap doesn't need to touch
// are left alone, and paths that are both affected and carry
// uncommitted changes are refused unless opts.AllowConflicts is set.
//
// The snapshot's recorded index and metadata subtrees are returned
// unchecked out: replaying the index, and any assignment or vbranch
// state recorded in the metadata subtree, is the caller's
// responsibility.
func Restore(ctx context.Context, oplogRepo Repo, wtRepo checkout.Repo, fromTree git.Hash, snapshot git.Hash, opts checkout.Options) (*checkout.Result, *Entries, error) {
	entries, _, err := Read(ctx, oplogRepo, snapshot)
	if err != nil {
		return nil, nil, err
	}

	if entries.WorktreeTree == "" {
		return nil, nil, fmt.Errorf("snapshot %s: no recorded worktree state", snapshot.Short())
	}

	result, err := checkout.SafeCheckout(ctx, wtRepo, fromTree, entries.WorktreeTree, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("restore snapshot %s: %w", snapshot.Short(), err)
	}

	return result, entries, nil
}
