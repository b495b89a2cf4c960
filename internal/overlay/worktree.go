package overlay

import (
	"errors"
	"fmt"
	"iter"
)

// WorktreeHead is one worktree's resolved HEAD: either Branch names
// the checked-out local branch and Head is the commit it points to, or
// Branch is empty and the worktree is in a detached HEAD state.
type WorktreeHead struct {
	Path     string
	Branch   string
	Head     string
	Detached bool
}

// WorktreeSource lists a repository's worktrees with HEAD already
// resolved through any symbolic chain, main worktree first.
type WorktreeSource interface {
	Worktrees() iter.Seq2[WorktreeHead, error]
}

// WorktreeBranches resolves the branch (or detached commit) checked
// out in every worktree, honoring ref overrides on the main
// repository's HEAD only: a linked worktree's HEAD is reported exactly
// as wts reports it, since overrides recorded against this overlay
// describe a hypothetical state of the main checkout, not of trees
// linked in from elsewhere.
//
// If an override rewrites what the main worktree's HEAD symbolically
// points to, that's a ref rename the overlay can't represent safely,
// and WorktreeBranches fails rather than silently acting on it.
func (o *Overlay[B, W]) WorktreeBranches(wts WorktreeSource) ([]WorktreeHead, error) {
	var out []WorktreeHead
	main := true
	for wt, err := range wts.Worktrees() {
		if err != nil {
			return nil, fmt.Errorf("list worktrees: %w", err)
		}

		if main {
			resolved, err := o.resolveMainHead(wt)
			if err != nil {
				return nil, fmt.Errorf("worktree %s: %w", wt.Path, err)
			}
			wt = resolved
			main = false
		}
		out = append(out, wt)
	}
	return out, nil
}

// resolveMainHead applies any override recorded against "HEAD" or the
// branch it points to, to the main worktree's already-resolved head.
func (o *Overlay[B, W]) resolveMainHead(real WorktreeHead) (WorktreeHead, error) {
	headOverride, headOverridden := o.overridingRefs["HEAD"]
	if !headOverridden {
		if real.Branch == "" {
			return real, nil
		}
		return o.applyBranchRefOverride(real)
	}

	if headOverride.deleted {
		return WorktreeHead{}, errors.New(`"HEAD": overridden to absent`)
	}

	if !headOverride.ref.Symbolic {
		return WorktreeHead{Path: real.Path, Detached: true, Head: headOverride.ref.Target}, nil
	}

	if real.Branch == "" {
		return WorktreeHead{}, errors.New(`"HEAD": override makes a detached HEAD symbolic`)
	}

	realBranchRef := "refs/heads/" + real.Branch
	if headOverride.ref.Target != realBranchRef {
		return WorktreeHead{}, fmt.Errorf("%q: override rewrites symbolic target from %q to %q", "HEAD", realBranchRef, headOverride.ref.Target)
	}

	return o.applyBranchRefOverride(real)
}

// applyBranchRefOverride reports real's head, unless the branch ref it
// names has itself been overridden.
func (o *Overlay[B, W]) applyBranchRefOverride(real WorktreeHead) (WorktreeHead, error) {
	branchRef := "refs/heads/" + real.Branch
	override, ok := o.overridingRefs[branchRef]
	if !ok {
		return real, nil
	}
	if override.deleted {
		return WorktreeHead{}, fmt.Errorf("%q: overridden to absent while checked out", branchRef)
	}
	if override.ref.Symbolic {
		return WorktreeHead{}, fmt.Errorf("%q: override points it at another ref, cannot follow", branchRef)
	}
	return WorktreeHead{Path: real.Path, Branch: real.Branch, Head: override.ref.Target}, nil
}
