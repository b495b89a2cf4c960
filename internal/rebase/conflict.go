package rebase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.abhg.dev/vbr/internal/git"
)

// Reserved top-level tree prefixes inside a conflicted commit.
const (
	AutoResolutionDir = ".auto-resolution"
	ConflictBaseDir   = ".conflict-base-0"
	ConflictSideADir  = ".conflict-side-0"
	ConflictSideBDir  = ".conflict-side-1"
)

// ConflictTrailerKey is the commit message trailer recording that a
// commit's tree uses the conflict layout above, so the flag survives
// round-trips through tools that only look at trailers.
const ConflictTrailerKey = "gitbutler-has-conflicts"

// emptyTreeHash is the well-known hash of the empty Git tree.
const emptyTreeHash git.Hash = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

func hasConflictTrailer(body string) bool {
	want := ConflictTrailerKey + ": 1"
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == want {
			return true
		}
	}
	return false
}

func appendConflictTrailer(msg string) string {
	trailer := ConflictTrailerKey + ": 1"
	if msg == "" {
		return trailer
	}
	return strings.TrimRight(msg, "\n") + "\n\n" + trailer
}

// findSubtree looks for a direct child tree of tree named name.
func findSubtree(ctx context.Context, repo Repo, tree git.Hash, name string) (git.Hash, bool, error) {
	entries, err := repo.ListTree(ctx, tree, git.ListTreeOptions{})
	if err != nil {
		return git.ZeroHash, false, fmt.Errorf("list %s: %w", tree, err)
	}
	for ent, err := range entries {
		if err != nil {
			return git.ZeroHash, false, fmt.Errorf("list %s: %w", tree, err)
		}
		if ent.Name == name && ent.Type == git.TreeType {
			return ent.Hash, true, nil
		}
	}
	return git.ZeroHash, false, nil
}

// overlaySubtree returns the hash of fullTree with every blob under
// subtree written at its real, subtree-relative path.
func overlaySubtree(ctx context.Context, repo Repo, fullTree, subtree git.Hash) (git.Hash, error) {
	entries, err := repo.ListTree(ctx, subtree, git.ListTreeOptions{Recurse: true})
	if err != nil {
		return git.ZeroHash, fmt.Errorf("list %s: %w", subtree, err)
	}

	var listErr error
	writes := func(yield func(git.BlobInfo) bool) {
		for ent, err := range entries {
			if err != nil {
				listErr = err
				return
			}
			if !yield(git.BlobInfo{Mode: ent.Mode, Hash: ent.Hash, Path: ent.Name}) {
				return
			}
		}
	}

	tree, err := repo.UpdateTree(ctx, git.UpdateTreeRequest{Tree: fullTree, Writes: writes})
	if err != nil {
		return git.ZeroHash, fmt.Errorf("overlay %s onto %s: %w", subtree, fullTree, err)
	}
	if listErr != nil {
		return git.ZeroHash, fmt.Errorf("list %s: %w", subtree, listErr)
	}
	return tree, nil
}

// conflictSides buckets a [git.MergeTreeConflictError]'s per-stage
// entries by path, in sorted path order.
func conflictSides(confErr *git.MergeTreeConflictError) (paths []string, byPath map[string]map[git.ConflictStage]git.MergeTreeConflictFile) {
	byPath = make(map[string]map[git.ConflictStage]git.MergeTreeConflictFile)
	for _, f := range confErr.Files {
		if _, ok := byPath[f.Path]; !ok {
			paths = append(paths, f.Path)
			byPath[f.Path] = make(map[git.ConflictStage]git.MergeTreeConflictFile)
		}
		byPath[f.Path][f.Stage] = f
	}
	sort.Strings(paths)
	return paths, byPath
}

// buildConflictedCommit assembles the reserved conflict tree layout
// from a failed merge-tree's per-path stages and commits it with
// parents [ours, theirs].
func (e *Engine) buildConflictedCommit(
	ctx context.Context,
	ours, theirs git.Hash,
	mergedTree git.Hash,
	confErr *git.MergeTreeConflictError,
	message string,
) (git.Hash, error) {
	paths, byPath := conflictSides(confErr)

	var autoWrites, baseBlobs, sideABlobs, sideBBlobs []git.BlobInfo
	for _, p := range paths {
		stages := byPath[p]
		if f, ok := stages[git.ConflictStageOurs]; ok {
			autoWrites = append(autoWrites, git.BlobInfo{Mode: f.Mode, Hash: f.Object, Path: p})
			sideABlobs = append(sideABlobs, git.BlobInfo{Mode: f.Mode, Hash: f.Object, Path: p})
		}
		if f, ok := stages[git.ConflictStageBase]; ok {
			baseBlobs = append(baseBlobs, git.BlobInfo{Mode: f.Mode, Hash: f.Object, Path: p})
		}
		if f, ok := stages[git.ConflictStageTheirs]; ok {
			sideBBlobs = append(sideBBlobs, git.BlobInfo{Mode: f.Mode, Hash: f.Object, Path: p})
		}
	}

	autoResTree, err := e.Repo.UpdateTree(ctx, git.UpdateTreeRequest{Tree: mergedTree, Writes: sliceSeq(autoWrites)})
	if err != nil {
		return git.ZeroHash, fmt.Errorf("build auto-resolution: %w", err)
	}

	baseTree, err := git.MakeTreeRecursive(ctx, e.Repo, sliceSeq(baseBlobs))
	if err != nil {
		return git.ZeroHash, fmt.Errorf("build %s: %w", ConflictBaseDir, err)
	}
	sideATree, err := git.MakeTreeRecursive(ctx, e.Repo, sliceSeq(sideABlobs))
	if err != nil {
		return git.ZeroHash, fmt.Errorf("build %s: %w", ConflictSideADir, err)
	}
	sideBTree, err := git.MakeTreeRecursive(ctx, e.Repo, sliceSeq(sideBBlobs))
	if err != nil {
		return git.ZeroHash, fmt.Errorf("build %s: %w", ConflictSideBDir, err)
	}

	rootTree, err := e.Repo.MakeTree(ctx, sliceSeq([]git.TreeEntry{
		{Mode: git.DirMode, Type: git.TreeType, Hash: autoResTree, Name: AutoResolutionDir},
		{Mode: git.DirMode, Type: git.TreeType, Hash: baseTree, Name: ConflictBaseDir},
		{Mode: git.DirMode, Type: git.TreeType, Hash: sideATree, Name: ConflictSideADir},
		{Mode: git.DirMode, Type: git.TreeType, Hash: sideBTree, Name: ConflictSideBDir},
	}))
	if err != nil {
		return git.ZeroHash, fmt.Errorf("build conflict tree: %w", err)
	}

	return e.Repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree:      rootTree,
		Message:   appendConflictTrailer(message),
		Parents:   []git.Hash{ours, theirs},
		Author:    e.Author,
		Committer: e.Committer,
		GPGSign:   e.GPGSign,
	})
}

func sliceSeq[T any](s []T) func(yield func(T) bool) {
	return func(yield func(T) bool) {
		for _, v := range s {
			if !yield(v) {
				return
			}
		}
	}
}
