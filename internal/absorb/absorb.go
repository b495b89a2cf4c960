// Package absorb plans where a worktree's uncommitted hunks should land
// among the stacks materialized in a workspace, turning hunk
// assignments and locks into a sequence of per-commit amendments.
package absorb

import (
	"sort"

	"go.abhg.dev/vbr/internal/hunk"
	"go.abhg.dev/vbr/internal/vberrors"
)

// StackInfo describes one stack available as an absorption target.
type StackInfo struct {
	ID string

	// CommitIDs lists the stack's commits, tip first (newest to
	// oldest). Empty means the stack has no commits yet.
	CommitIDs []string
}

// AssignedHunk pairs a worktree hunk with its current assignment
// state.
type AssignedHunk struct {
	Hunk       hunk.Hunk
	Assignment hunk.Assignment
}

// FileHunks groups the hunks landing in a single file of one
// absorption.
type FileHunks struct {
	Path  string
	Hunks []hunk.Hunk
}

// CommitAbsorption is one commit's share of an absorption plan.
type CommitAbsorption struct {
	StackID  string
	CommitID string
	Files    []FileHunks
	Reason   string
}

// BlankCommitFunc creates a new, empty commit on the named stack's
// first branch, returning its commit id. Planner calls this at most
// once per empty stack that ends up needing a target.
type BlankCommitFunc func(stackID string) (commitID string, err error)

// Planner computes absorption plans against a fixed set of stacks.
type Planner struct {
	// Stacks lists the candidate target stacks, leftmost first. The
	// first stack is the default target for unassigned, unlocked
	// hunks.
	Stacks []StackInfo

	// NewBlankCommit is consulted when a hunk would target a stack
	// that has no commits yet.
	NewBlankCommit BlankCommitFunc
}

// Plan computes the absorption of hunks, already filtered by whatever
// target directive (branch, tree changes, explicit hunk list, or "all")
// the caller is honoring.
//
// The returned list is sorted parent-first within each stack, so that
// replaying it as a sequence of rebase picks applies amendments in
// application order.
func (p *Planner) Plan(hunks []AssignedHunk) ([]CommitAbsorption, error) {
	if len(p.Stacks) == 0 {
		return nil, vberrors.New(vberrors.NotFound, "no stacks available for absorption")
	}

	byStack := make(map[string]*StackInfo, len(p.Stacks))
	order := make(map[string]int, len(p.Stacks))
	for i := range p.Stacks {
		byStack[p.Stacks[i].ID] = &p.Stacks[i]
		order[p.Stacks[i].ID] = i
	}

	tipOf := func(stackID string) (string, error) {
		si, ok := byStack[stackID]
		if !ok {
			return "", vberrors.New(vberrors.NotFound, "unknown stack %q", stackID)
		}
		if len(si.CommitIDs) > 0 {
			return si.CommitIDs[0], nil
		}
		if p.NewBlankCommit == nil {
			return "", vberrors.New(vberrors.Corrupt,
				"stack %q has no commits and no blank-commit factory is configured", stackID)
		}
		id, err := p.NewBlankCommit(stackID)
		if err != nil {
			return "", vberrors.Wrap(vberrors.ExternalFailure, err, "create blank commit for stack %q", stackID)
		}
		si.CommitIDs = []string{id}
		return id, nil
	}

	type target struct {
		stackID, commitID, reason string
	}

	groups := make(map[target][]hunk.Hunk)
	var groupOrder []target
	groupIndex := make(map[target]int)

	for _, ah := range hunks {
		a := ah.Assignment
		if a.Ambiguous() {
			return nil, vberrors.New(vberrors.AmbiguousLock,
				"hunk %v has locks on more than one stack", a.Key())
		}

		var t target
		switch {
		case func() bool { lock, ok := a.SingleLock(); return ok && !lock.Target.Unknown }():
			lock, _ := a.SingleLock()
			t = target{stackID: lock.Target.StackID, commitID: lock.CommitID, reason: "lock dependency"}

		case a.StackID != "":
			commitID, err := tipOf(a.StackID)
			if err != nil {
				return nil, err
			}
			t = target{stackID: a.StackID, commitID: commitID, reason: "stack assignment"}

		default:
			stackID := p.Stacks[0].ID
			commitID, err := tipOf(stackID)
			if err != nil {
				return nil, err
			}
			t = target{stackID: stackID, commitID: commitID, reason: "default stack"}
		}

		if _, ok := groups[t]; !ok {
			groupIndex[t] = len(groupOrder)
			groupOrder = append(groupOrder, t)
		}
		groups[t] = append(groups[t], ah.Hunk)
	}

	sort.SliceStable(groupOrder, func(i, j int) bool {
		gi, gj := groupOrder[i], groupOrder[j]
		si, sj := order[gi.stackID], order[gj.stackID]
		if si != sj {
			return si < sj
		}
		return commitRank(byStack[gi.stackID], gi.commitID) < commitRank(byStack[gj.stackID], gj.commitID)
	})

	out := make([]CommitAbsorption, 0, len(groupOrder))
	for _, t := range groupOrder {
		out = append(out, CommitAbsorption{
			StackID:  t.stackID,
			CommitID: t.commitID,
			Files:    filesOf(groups[t]),
			Reason:   t.reason,
		})
	}
	return out, nil
}

// commitRank returns a commit's position in its stack counted from the
// root: the oldest commit is 1 and the tip (newest) is len(CommitIDs).
// Unknown commits (targeted by a lock onto a commit id this Planner
// wasn't told about) get -1, so they sort before every known commit.
func commitRank(si *StackInfo, commitID string) int {
	if si == nil {
		return -1
	}
	for i, id := range si.CommitIDs {
		if id == commitID {
			return len(si.CommitIDs) - i
		}
	}
	return -1
}

func filesOf(hunks []hunk.Hunk) []FileHunks {
	byPath := make(map[string][]hunk.Hunk)
	var paths []string
	for _, h := range hunks {
		if _, ok := byPath[h.Path]; !ok {
			paths = append(paths, h.Path)
		}
		byPath[h.Path] = append(byPath[h.Path], h)
	}
	sort.Strings(paths)

	out := make([]FileHunks, len(paths))
	for i, p := range paths {
		out[i] = FileHunks{Path: p, Hunks: byPath[p]}
	}
	return out
}
