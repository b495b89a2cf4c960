package rebase

import (
	"context"
	"errors"
	"fmt"

	"go.abhg.dev/vbr/internal/git"
)

// StepKind identifies what a [Step] does.
type StepKind int

const (
	// StepPick cherry-picks CommitID onto the current head.
	StepPick StepKind = iota

	// StepMerge merges MergeCommitID into the current head, producing
	// a two-parent commit.
	StepMerge

	// StepReference carries ReferenceCommitID forward unchanged: it
	// becomes the new head as-is, with no new commit created. Used to
	// splice an out-of-band commit (already parented correctly by the
	// caller) into the middle of a plan.
	StepReference
)

// Step is one entry in a [Plan].
type Step struct {
	// Role names this step for the caller, echoed back in the
	// resulting [MappingEntry.Role]. Plan mutation helpers locate steps
	// by CommitID, not Role, and carry Role over to the steps they
	// produce.
	Role string

	Kind StepKind

	// CommitID is the commit to cherry-pick. Set for StepPick.
	CommitID git.Hash

	// NewMessage overrides the picked commit's message. Empty keeps
	// the original.
	NewMessage string

	// MergeCommitID is the commit to merge in. Set for StepMerge.
	MergeCommitID string
	// NameA and NameB label the two sides of the merge in its commit
	// message.
	NameA, NameB string

	// ReferenceCommitID is the commit to carry forward. Set for
	// StepReference.
	ReferenceCommitID git.Hash
}

// Plan is a sequence of steps to replay starting from Base.
type Plan struct {
	Base  git.Hash
	Steps []Step
}

// MappingEntry records how one plan step's input commit maps to its
// output commit.
type MappingEntry struct {
	Role string
	Old  git.Hash
	New  git.Hash
}

// Output is the result of running a [Plan].
type Output struct {
	Head    git.Hash
	Mapping []MappingEntry
}

// Engine replays rebase plans against a repository.
type Engine struct {
	Repo Repo

	// Author and Committer sign commits the engine creates. Nil means
	// the current user, as git-commit-tree would use.
	Author, Committer *git.Signature

	GPGSign bool
}

// Run replays plan, returning the new head and an old-to-new commit
// mapping for every step.
func (e *Engine) Run(ctx context.Context, plan Plan) (*Output, error) {
	onto := plan.Base
	out := &Output{}

	for _, step := range plan.Steps {
		var (
			oldOID, newOID git.Hash
			err            error
		)

		switch step.Kind {
		case StepPick:
			oldOID = step.CommitID
			newOID, err = e.pick(ctx, step, onto)
		case StepMerge:
			oldOID = git.Hash(step.MergeCommitID)
			newOID, err = e.merge(ctx, step, onto)
		case StepReference:
			oldOID = step.ReferenceCommitID
			newOID = step.ReferenceCommitID
		default:
			return nil, fmt.Errorf("step %q: unknown step kind %d", step.Role, step.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", step.Role, err)
		}

		out.Mapping = append(out.Mapping, MappingEntry{Role: step.Role, Old: oldOID, New: newOID})
		onto = newOID
	}

	out.Head = onto
	return out, nil
}

// pick cherry-picks step.CommitID onto onto, producing a clean commit
// or, on conflict, a conflicted commit per the composition invariant:
// if onto is itself conflicted, its .auto-resolution tree stands in
// for its raw tree, and a conflicted picked commit contributes the
// trees described at conflictAwareTree and pickBase.
func (e *Engine) pick(ctx context.Context, step Step, onto git.Hash) (git.Hash, error) {
	commit, err := e.Repo.ReadCommit(ctx, step.CommitID.String())
	if err != nil {
		return git.ZeroHash, fmt.Errorf("read %s: %w", step.CommitID, err)
	}

	oursish, err := e.oursTree(ctx, onto)
	if err != nil {
		return git.ZeroHash, err
	}
	theirsish, err := e.conflictAwareTree(ctx, commit)
	if err != nil {
		return git.ZeroHash, err
	}
	baseish, err := e.pickBase(ctx, commit)
	if err != nil {
		return git.ZeroHash, err
	}

	treeHash, err := e.Repo.MergeTree(ctx, git.MergeTreeRequest{
		MergeBase: baseish,
		Branch1:   oursish,
		Branch2:   theirsish,
	})

	msg := step.NewMessage
	if msg == "" {
		msg = commit.Message()
	}

	var confErr *git.MergeTreeConflictError
	if errors.As(err, &confErr) {
		return e.buildConflictedCommit(ctx, onto, commit.Hash, treeHash, confErr, msg)
	}
	if err != nil {
		return git.ZeroHash, fmt.Errorf("merge-tree: %w", err)
	}

	return e.Repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree:      treeHash,
		Message:   msg,
		Parents:   []git.Hash{onto},
		Author:    e.Author,
		Committer: e.Committer,
		GPGSign:   e.GPGSign,
	})
}

// merge produces a two-parent merge of onto and step.MergeCommitID,
// gitbutler_merge_commits style: base is their real merge-base, not a
// recorded conflict base, since neither side is assumed derived from
// the other.
func (e *Engine) merge(ctx context.Context, step Step, onto git.Hash) (git.Hash, error) {
	other, err := e.Repo.ReadCommit(ctx, step.MergeCommitID)
	if err != nil {
		return git.ZeroHash, fmt.Errorf("read %s: %w", step.MergeCommitID, err)
	}

	oursish, err := e.oursTree(ctx, onto)
	if err != nil {
		return git.ZeroHash, err
	}
	theirsish, err := e.conflictAwareTree(ctx, other)
	if err != nil {
		return git.ZeroHash, err
	}

	base, err := e.Repo.MergeBase(ctx, onto.String(), other.Hash.String())
	if err != nil {
		base = emptyTreeHash
	}

	treeHash, err := e.Repo.MergeTree(ctx, git.MergeTreeRequest{
		MergeBase: base.String(),
		Branch1:   oursish,
		Branch2:   theirsish,
	})

	msg := mergeMessage(step)

	var confErr *git.MergeTreeConflictError
	if errors.As(err, &confErr) {
		return e.buildConflictedCommit(ctx, onto, other.Hash, treeHash, confErr, msg)
	}
	if err != nil {
		return git.ZeroHash, fmt.Errorf("merge-tree: %w", err)
	}

	return e.Repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree:      treeHash,
		Message:   msg,
		Parents:   []git.Hash{onto, other.Hash},
		Author:    e.Author,
		Committer: e.Committer,
		GPGSign:   e.GPGSign,
	})
}

func mergeMessage(step Step) string {
	a, b := step.NameA, step.NameB
	if a == "" {
		a = "ours"
	}
	if b == "" {
		b = "theirs"
	}
	return fmt.Sprintf("Merge %s into %s", b, a)
}

// oursTree resolves the "ours" side of a merge rooted at commitHash:
// its .auto-resolution tree if it's conflicted, its own tree
// otherwise.
func (e *Engine) oursTree(ctx context.Context, commitHash git.Hash) (string, error) {
	c, err := e.Repo.ReadCommit(ctx, commitHash.String())
	if err != nil {
		return "", fmt.Errorf("read %s: %w", commitHash, err)
	}
	if !hasConflictTrailer(c.Body) {
		return commitHash.String(), nil
	}
	autoRes, ok, err := findSubtree(ctx, e.Repo, c.Tree, AutoResolutionDir)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("commit %s is flagged conflicted but has no %s subtree", commitHash, AutoResolutionDir)
	}
	return autoRes.String(), nil
}

// conflictAwareTree resolves the logical incoming content of c: if c
// is conflicted, its .conflict-side-1 overlaid onto its
// .auto-resolution (resurrecting "theirs" as it stood when the
// conflict was recorded); otherwise c's own tree.
func (e *Engine) conflictAwareTree(ctx context.Context, c *git.CommitObject) (string, error) {
	if !hasConflictTrailer(c.Body) {
		return c.Hash.String(), nil
	}

	autoRes, ok, err := findSubtree(ctx, e.Repo, c.Tree, AutoResolutionDir)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("commit %s is flagged conflicted but has no %s subtree", c.Hash, AutoResolutionDir)
	}

	side1, ok, err := findSubtree(ctx, e.Repo, c.Tree, ConflictSideBDir)
	if err != nil {
		return "", err
	}
	if !ok {
		return autoRes.String(), nil
	}

	resurrected, err := overlaySubtree(ctx, e.Repo, autoRes, side1)
	if err != nil {
		return "", err
	}
	return resurrected.String(), nil
}

// pickBase resolves the merge base to use when cherry-picking c: its
// recorded .conflict-base-0 overlaid onto its .auto-resolution if c is
// conflicted and carries one, else c's first parent, else the empty
// tree for a root commit.
func (e *Engine) pickBase(ctx context.Context, c *git.CommitObject) (string, error) {
	if hasConflictTrailer(c.Body) {
		autoRes, ok, err := findSubtree(ctx, e.Repo, c.Tree, AutoResolutionDir)
		if err != nil {
			return "", err
		}
		if ok {
			baseSub, ok, err := findSubtree(ctx, e.Repo, c.Tree, ConflictBaseDir)
			if err != nil {
				return "", err
			}
			if ok {
				resurrected, err := overlaySubtree(ctx, e.Repo, autoRes, baseSub)
				if err != nil {
					return "", err
				}
				return resurrected.String(), nil
			}
		}
	}

	if len(c.Parents) > 0 {
		return c.Parents[0].String(), nil
	}
	return emptyTreeHash.String(), nil
}
