package checkout

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.abhg.dev/vbr/internal/git"
	"go.abhg.dev/vbr/internal/vberrors"
)

// RefUpdate asks [SafeCheckout] to point Ref at NewHash once the tree
// swap succeeds.
type RefUpdate struct {
	Ref     string
	OldHash git.Hash
	NewHash git.Hash
}

// Options configures [SafeCheckout].
type Options struct {
	// AllowConflicts permits overwriting paths that both differ
	// between FromTree and ToTree and carry uncommitted worktree
	// changes. The default is to refuse.
	AllowConflicts bool

	// UpdateRef, if set, is applied after the tree swap succeeds.
	UpdateRef *RefUpdate
}

// HeadUpdate records a ref [SafeCheckout] moved.
type HeadUpdate struct {
	Ref    string
	NewOID git.Hash
}

// Result reports what [SafeCheckout] did.
type Result struct {
	NumDeletedFiles        int
	NumAddedOrUpdatedFiles int
	HeadUpdate             *HeadUpdate
}

// SafeCheckout swaps the worktree's contents from fromTree to toTree.
//
// It touches only the paths that actually differ between the two
// trees; every other path is left exactly as it is, in both the index
// and the working tree, even if that path is itself conflicted. That
// is the core guarantee: files the caller has been working on that
// are irrelevant to this tree swap are never disturbed.
//
// If a path the swap must touch also carries uncommitted worktree
// changes relative to fromTree, SafeCheckout refuses unless
// opts.AllowConflicts is set.
func SafeCheckout(ctx context.Context, repo Repo, fromTree, toTree git.Hash, opts Options) (*Result, error) {
	affected, err := diffPresence(repo.DiffTree(ctx, fromTree.String(), toTree.String()))
	if err != nil {
		return nil, fmt.Errorf("diff %s..%s: %w", fromTree, toTree, err)
	}

	dirty, err := diffPresence(repo.DiffTreeWork(ctx, fromTree.String()))
	if err != nil {
		return nil, fmt.Errorf("diff worktree against %s: %w", fromTree, err)
	}

	var conflicting []string
	for path := range affected {
		if _, ok := dirty[path]; ok {
			conflicting = append(conflicting, path)
		}
	}
	if len(conflicting) > 0 && !opts.AllowConflicts {
		sort.Strings(conflicting)
		return nil, vberrors.New(vberrors.Conflict,
			"refusing to overwrite conflicting paths: %s", strings.Join(conflicting, ", "))
	}

	var toRemove, toWrite []string
	for path, presentInToTree := range affected {
		if presentInToTree {
			toWrite = append(toWrite, path)
		} else {
			toRemove = append(toRemove, path)
		}
	}
	sort.Strings(toRemove)
	sort.Strings(toWrite)

	// Remove stale paths, and any directory/file blockers they leave
	// behind, before writing anything: a type change from file to
	// directory or back is two separate paths in P, and the removal
	// must land before the write no matter which order diff-tree
	// reported them in.
	if len(toRemove) > 0 {
		if err := repo.RemoveFiles(ctx, &git.RemoveFilesRequest{
			Pathspecs:     toRemove,
			IgnoreUnmatch: true,
		}); err != nil {
			return nil, fmt.Errorf("remove stale paths: %w", err)
		}
	}

	for _, path := range toWrite {
		if err := clearDirectoryBlocker(repo.RootDir(), path); err != nil {
			return nil, fmt.Errorf("clear blocker at %s: %w", path, err)
		}
	}

	if len(toWrite) > 0 {
		if err := repo.CheckoutFiles(ctx, &git.CheckoutFilesRequest{
			Pathspecs: toWrite,
			TreeIsh:   toTree.String(),
			Overlay:   true,
		}); err != nil {
			return nil, fmt.Errorf("checkout %s: %w", toTree, err)
		}
	}

	result := &Result{
		NumDeletedFiles:        len(toRemove),
		NumAddedOrUpdatedFiles: len(toWrite),
	}

	if u := opts.UpdateRef; u != nil {
		if err := repo.SetRef(ctx, git.SetRefRequest{Ref: u.Ref, Hash: u.NewHash, OldHash: u.OldHash}); err != nil {
			return nil, fmt.Errorf("update %s: %w", u.Ref, err)
		}
		result.HeadUpdate = &HeadUpdate{Ref: u.Ref, NewOID: u.NewHash}
	}

	return result, nil
}

// diffPresence collects the paths a diff touches, recording whether
// each one exists on the diff's destination side.
func diffPresence(entries iter.Seq2[git.FileStatus, error]) (map[string]bool, error) {
	presence := make(map[string]bool)
	for fs, err := range entries {
		if err != nil {
			return nil, err
		}
		presence[fs.Path] = fs.Status != string(git.FileDeleted)
	}
	return presence, nil
}

// clearDirectoryBlocker removes a directory standing at path in the
// worktree, if there is one, so a later checkout can write a blob
// there: git-checkout refuses to turn an existing directory into a
// regular file.
func clearDirectoryBlocker(rootDir, path string) error {
	full := filepath.Join(rootDir, filepath.FromSlash(path))
	info, err := os.Lstat(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	if !info.IsDir() {
		return nil
	}
	return os.RemoveAll(full)
}
