// Package workspace projects a commit [segment.Graph] rooted at a
// workspace tip into the set of stacks materialized in that workspace:
// one contiguous run of commits per branch, from the workspace tip down
// to trunk.
package workspace

import (
	"go.abhg.dev/vbr/internal/segment"
)

// Kind classifies how a workspace's entrypoint commit relates to
// recorded workspace metadata.
type Kind int

const (
	// Managed workspaces have metadata and the commit it names still
	// exists in the graph.
	Managed Kind = iota

	// ManagedMissingWorkspaceCommit workspaces have metadata, but the
	// commit it names is no longer reachable.
	ManagedMissingWorkspaceCommit

	// AdHoc workspaces have no recorded metadata at all: a plain
	// working tree the engine has not been told to manage.
	AdHoc
)

func (k Kind) String() string {
	switch k {
	case Managed:
		return "managed"
	case ManagedMissingWorkspaceCommit:
		return "managed-missing-workspace-commit"
	case AdHoc:
		return "ad-hoc"
	default:
		return "unknown"
	}
}

// Metadata reports recorded workspace-tracking state for commits.
type Metadata interface {
	// HasMetadata reports whether oid has workspace metadata recorded
	// against it.
	HasMetadata(oid string) bool

	// CommitExists reports whether oid is still a reachable commit.
	CommitExists(oid string) bool
}

// RemoteCommit is a commit that exists on a branch's remote tracking
// ref.
type RemoteCommit struct {
	OID string

	// ChangeID, if known, identifies the logical change the commit
	// represents across rewrites (amends, rebases).
	ChangeID string
}

// RemoteSource resolves the commits on a branch's remote tracking ref,
// given the ref name the caller associated with a stack root.
type RemoteSource interface {
	RemoteOnlyCommits(remoteRef string) ([]RemoteCommit, error)
}

// StackSegment is one contiguous run of a stack's commits, aligned to a
// single [segment.Segment].
type StackSegment struct {
	Commits []segment.Commit

	// RemoteOnly holds commits present on the remote tracking ref but
	// not locally, attached to the topmost segment of a stack.
	RemoteOnly []RemoteCommit

	// RequiresForce reports whether pushing this segment's branch
	// would need to overwrite its remote tracking ref: a local commit
	// has a rewritten twin on the remote, or a remote-only commit has
	// already been passed locally.
	RequiresForce bool
}

// Stack is the full set of commits, topmost branch to trunk boundary,
// rooted at one direct child of the workspace tip.
type Stack struct {
	Root     segment.Location
	Segments []*StackSegment
}

// Commits returns every local commit in the stack, topmost first.
func (s *Stack) Commits() []segment.Commit {
	var out []segment.Commit
	for _, seg := range s.Segments {
		out = append(out, seg.Commits...)
	}
	return out
}

// Projection is the full result of projecting a workspace.
type Projection struct {
	Kind   Kind
	Stacks []*Stack
}

// RemoteRefLookup resolves the remote tracking ref associated with a
// stack's root commit, if any.
type RemoteRefLookup func(root segment.Location) (remoteRef string, ok bool)

// ChangeIDLookup resolves the change id recorded against a local oid,
// if any.
type ChangeIDLookup func(oid string) (changeID string, ok bool)

// Options configures [Project].
type Options struct {
	// Metadata reports workspace-tracking state. Nil means AdHoc.
	Metadata Metadata

	// TargetSegments names segment indexes that lie on the
	// integration target's own path: direct children of the
	// workspace tip inside these segments are never candidate stack
	// roots, and a stack's descent stops on crossing into one.
	TargetSegments map[int]bool

	// RemoteRef and Remote, if both set, are used to attach
	// remote-only commits to each stack (step 4 of the projection
	// algorithm).
	RemoteRef RemoteRefLookup
	Remote    RemoteSource

	// ChangeID resolves a local commit's change id, used to detect
	// rewritten twins on the remote when computing RequiresForce.
	ChangeID ChangeIDLookup
}

// Project builds the workspace projection of g, whose entrypoint is
// the workspace tip.
func Project(g *segment.Graph, opts Options) *Projection {
	p := &Projection{Kind: kindOf(g, opts.Metadata)}

	claimed := make(map[string]bool) // commits already attributed as remote-only elsewhere

	for _, root := range candidateRoots(g, opts.TargetSegments) {
		stack := buildStack(g, root, opts.TargetSegments)
		attachRemote(stack, opts, claimed)
		p.Stacks = append(p.Stacks, stack)
	}

	return p
}

func kindOf(g *segment.Graph, md Metadata) Kind {
	if md == nil || len(g.Segments) == 0 {
		return AdHoc
	}

	ep := g.Entrypoint
	if ep.SegmentIndex >= len(g.Segments) {
		return AdHoc
	}
	seg := g.Segments[ep.SegmentIndex]
	if ep.CommitIndex >= len(seg.Commits) {
		return AdHoc
	}
	oid := seg.Commits[ep.CommitIndex].OID

	switch {
	case md.HasMetadata(oid) && md.CommitExists(oid):
		return Managed
	case md.HasMetadata(oid):
		return ManagedMissingWorkspaceCommit
	default:
		return AdHoc
	}
}

// candidateRoots finds each direct child of the workspace tip that
// does not lie on the target path.
func candidateRoots(g *segment.Graph, targetSegs map[int]bool) []segment.Location {
	ep := g.Entrypoint
	var roots []segment.Location
	for _, e := range g.Edges {
		if e.FromSegment != ep.SegmentIndex || e.FromIndex != ep.CommitIndex {
			continue
		}
		if targetSegs[e.ToSegment] {
			continue
		}
		roots = append(roots, segment.Location{SegmentIndex: e.ToSegment, CommitIndex: 0})
	}
	return roots
}

// firstParentLocation returns the location of loc's first parent,
// whether that is the next commit in the same segment or the target of
// an outgoing edge at the end of the segment.
func firstParentLocation(g *segment.Graph, loc segment.Location) (segment.Location, bool) {
	seg := g.Segments[loc.SegmentIndex]
	if loc.CommitIndex+1 < len(seg.Commits) {
		return segment.Location{SegmentIndex: loc.SegmentIndex, CommitIndex: loc.CommitIndex + 1}, true
	}

	best := -1
	for _, e := range g.Edges {
		if e.FromSegment != loc.SegmentIndex || e.FromIndex != loc.CommitIndex {
			continue
		}
		if best == -1 || e.ToSegment < best {
			best = e.ToSegment
		}
	}
	if best == -1 {
		return segment.Location{}, false
	}
	return segment.Location{SegmentIndex: best, CommitIndex: 0}, true
}

// buildStack descends first-parent from root, aggregating segments
// into a StackSegment each, until a target-path boundary, an Integrated
// commit, or the end of the graph is reached.
func buildStack(g *segment.Graph, root segment.Location, targetSegs map[int]bool) *Stack {
	st := &Stack{Root: root}

	loc := root
	curIdx := -1
	var cur *StackSegment
	for {
		seg := g.Segments[loc.SegmentIndex]
		c := seg.Commits[loc.CommitIndex]
		if c.Flags.Integrated {
			break
		}

		if loc.SegmentIndex != curIdx {
			cur = &StackSegment{}
			st.Segments = append(st.Segments, cur)
			curIdx = loc.SegmentIndex
		}
		cur.Commits = append(cur.Commits, c)

		next, ok := firstParentLocation(g, loc)
		if !ok {
			break
		}
		if targetSegs[next.SegmentIndex] {
			break
		}
		loc = next
	}

	return st
}

// attachRemote implements steps 4-6 of the projection algorithm: attach
// remote-only commits to the topmost segment of the stack, deduping
// against commits already claimed by an earlier (childmost) stack, and
// computing RequiresForce.
func attachRemote(stack *Stack, opts Options, claimed map[string]bool) {
	if opts.RemoteRef == nil || opts.Remote == nil || len(stack.Segments) == 0 {
		return
	}
	ref, ok := opts.RemoteRef(stack.Root)
	if !ok {
		return
	}
	remoteCommits, err := opts.Remote.RemoteOnlyCommits(ref)
	if err != nil || len(remoteCommits) == 0 {
		return
	}

	local := make(map[string]bool)
	localChangeIDs := make(map[string]bool)
	for _, c := range stack.Commits() {
		local[c.OID] = true
		if opts.ChangeID != nil {
			if id, ok := opts.ChangeID(c.OID); ok {
				localChangeIDs[id] = true
			}
		}
	}

	top := stack.Segments[0]
	var requiresForce bool
	for _, rc := range remoteCommits {
		if local[rc.OID] {
			continue
		}
		if rc.ChangeID != "" && localChangeIDs[rc.ChangeID] {
			// The local stack already carries a rewritten twin of
			// this remote commit: not missing, but the branch will
			// need a force-push to reconcile.
			requiresForce = true
			continue
		}
		if claimed[rc.OID] {
			// An earlier (childmost) stack already attributed this
			// commit to itself.
			requiresForce = true
			continue
		}
		claimed[rc.OID] = true
		top.RemoteOnly = append(top.RemoteOnly, rc)
	}

	top.RequiresForce = requiresForce
}
