// Package segment builds the commit graph that the rest of the engine
// reasons about: a set of entry points (branch tips, the target branch,
// remote tracking refs) are walked back through history and grouped into
// contiguous runs of commits called segments, linked by parent edges.
package segment

import (
	"context"
	"errors"
	"fmt"

	"go.abhg.dev/container/ring"
)

// ErrMissingObject is returned by a [CommitSource] when a commit object
// cannot be read, typically because it lies past the boundary of a
// shallow clone. Build treats this as a root commit rather than a
// fatal error.
var ErrMissingObject = errors.New("commit object missing")

// Segmentation selects where a walk splits off a new [Segment].
type Segmentation int

const (
	// AtMergeCommits starts a new segment at each parent of a merge
	// commit, including the first parent.
	AtMergeCommits Segmentation = iota

	// FirstParentPriority continues the current segment through a
	// merge commit's first parent; every other parent starts a new
	// segment.
	FirstParentPriority
)

// EntryKind classifies why an [Entry] was seeded into the walk, and
// which flag it contributes to commits reachable from it.
type EntryKind int

const (
	// Plain entries contribute no flags; they exist only to be
	// represented in the output graph (e.g. the workspace tip itself).
	Plain EntryKind = iota

	// Workspace entries mark commits reachable from a workspace tip.
	Workspace

	// Target marks commits reachable from the integration target
	// branch (trunk).
	Target

	// Remote marks commits reachable from any remote tracking ref.
	Remote

	// MatchingRemote marks commits reachable from a branch's own
	// tracking ref specifically.
	MatchingRemote
)

// Entry is a single walk starting point.
type Entry struct {
	// TipOID is the commit the walk starts from.
	TipOID string

	// RefName is the ref that resolved to TipOID, if any.
	RefName string

	// Kind says which reachability flag this entry contributes.
	Kind EntryKind
}

// CommitSource resolves a commit's parents. Callers backed by a real
// repository typically implement this with a commit-graph-accelerated
// lookup; tests can supply a plain map.
type CommitSource interface {
	ParentOIDs(ctx context.Context, oid string) ([]string, error)
}

// Flags records which entry points can reach a commit.
type Flags struct {
	InWorkspace               bool
	Integrated                bool
	ReachableByRemote         bool
	ReachableByMatchingRemote bool
}

// merge ORs o into f.
func (f *Flags) merge(o Flags) {
	f.InWorkspace = f.InWorkspace || o.InWorkspace
	f.Integrated = f.Integrated || o.Integrated
	f.ReachableByRemote = f.ReachableByRemote || o.ReachableByRemote
	f.ReachableByMatchingRemote = f.ReachableByMatchingRemote || o.ReachableByMatchingRemote
}

func flagsFor(kind EntryKind) Flags {
	switch kind {
	case Workspace:
		return Flags{InWorkspace: true}
	case Target:
		return Flags{Integrated: true}
	case Remote:
		return Flags{ReachableByRemote: true}
	case MatchingRemote:
		return Flags{ReachableByMatchingRemote: true}
	default:
		return Flags{}
	}
}

// Commit is a single node of a [Segment].
type Commit struct {
	OID     string
	Parents []string
	Flags   Flags
}

// Segment is a contiguous run of commits collected along one path of
// the walk, newest first.
type Segment struct {
	Commits []Commit

	// EarlyEnd reports whether this segment's walk stopped before
	// reaching a root, either because the hard commit limit was hit
	// or because a parent object was missing (a shallow clone).
	EarlyEnd bool
}

// Edge connects the commit at FromSegment[FromIndex] to its parent,
// which is the first commit of ToSegment.
type Edge struct {
	FromSegment int
	FromIndex   int
	ToSegment   int
}

// Location names a single commit's position in the output graph.
type Location struct {
	SegmentIndex int
	CommitIndex  int
}

// Graph is the output of [Build].
type Graph struct {
	Segments []*Segment
	Edges    []Edge

	// Entrypoint is the location of the first entry's tip commit.
	Entrypoint Location

	// HardLimitHit reports whether any segment's walk was truncated
	// by Options.HardLimit.
	HardLimitHit bool
}

// Options configures [Build].
type Options struct {
	// Segmentation selects how merge commits split the walk into
	// new segments.
	Segmentation Segmentation

	// HardLimit caps the total number of commits collected across
	// all segments. Zero means unlimited.
	HardLimit int

	// RefsByOID, if set, marks commits that are themselves some
	// other ref's tip. A commit present here (other than an entry's
	// own tip) ends the current segment, even with a single parent,
	// so that ref boundaries are visible in the output.
	RefsByOID map[string]string
}

type queueItem struct {
	oid   string
	flags Flags
	// seg is the segment this oid is collected into: either the one
	// it continues, or one newly started for it.
	seg *segBuilder
}

type segBuilder struct {
	index    int
	commits  []Commit
	earlyEnd bool
}

// Build walks history backward from entries, grouping commits into
// segments per opts.Segmentation, and returns the resulting graph.
//
// The first element of entries determines Graph.Entrypoint.
func Build(ctx context.Context, src CommitSource, entries []Entry, opts Options) (*Graph, error) {
	if len(entries) == 0 {
		return &Graph{}, nil
	}

	g := &Graph{}
	visited := make(map[string]Location, 64)
	segs := make(map[int]*segBuilder)
	nextSegIndex := 0
	newSeg := func() *segBuilder {
		sb := &segBuilder{index: nextSegIndex}
		segs[sb.index] = sb
		nextSegIndex++
		return sb
	}

	totalCollected := 0

	var q ring.Q[queueItem]
	for i, e := range entries {
		sb := newSeg()
		q.Push(queueItem{oid: e.TipOID, flags: flagsFor(e.Kind), seg: sb})
		if i == 0 {
			g.Entrypoint = Location{SegmentIndex: sb.index, CommitIndex: 0}
		}
	}

	for !q.Empty() {
		item := q.Pop()
		sb := item.seg

		if loc, ok := visited[item.oid]; ok {
			// Already collected elsewhere; connect and merge flags
			// onto the existing commit instead of recollecting it.
			existing := segs[loc.SegmentIndex]
			existing.commits[loc.CommitIndex].Flags.merge(item.flags)
			if len(sb.commits) > 0 {
				g.Edges = append(g.Edges, Edge{
					FromSegment: sb.index,
					FromIndex:   len(sb.commits) - 1,
					ToSegment:   loc.SegmentIndex,
				})
			}
			continue
		}

		if opts.HardLimit > 0 && totalCollected >= opts.HardLimit {
			sb.earlyEnd = true
			g.HardLimitHit = true
			continue
		}

		parents, err := src.ParentOIDs(ctx, item.oid)
		if err != nil {
			if errors.Is(err, ErrMissingObject) {
				idx := len(sb.commits)
				sb.commits = append(sb.commits, Commit{OID: item.oid, Flags: item.flags})
				visited[item.oid] = Location{SegmentIndex: sb.index, CommitIndex: idx}
				totalCollected++
				sb.earlyEnd = true
				continue
			}
			return nil, fmt.Errorf("read parents of %s: %w", item.oid, err)
		}

		idx := len(sb.commits)
		sb.commits = append(sb.commits, Commit{OID: item.oid, Parents: parents, Flags: item.flags})
		visited[item.oid] = Location{SegmentIndex: sb.index, CommitIndex: idx}
		totalCollected++

		if len(parents) == 0 {
			continue
		}

		if ref, boundary := opts.RefsByOID[item.oid]; boundary && ref != "" && idx > 0 {
			// A ref landed mid-walk: split here regardless of
			// segmentation mode, so the boundary is visible.
			for _, p := range parents {
				ns := newSeg()
				g.Edges = append(g.Edges, Edge{FromSegment: sb.index, FromIndex: idx, ToSegment: ns.index})
				q.Push(queueItem{oid: p, flags: item.flags, seg: ns})
			}
			continue
		}

		switch opts.Segmentation {
		case FirstParentPriority:
			q.Push(queueItem{oid: parents[0], flags: item.flags, seg: sb})
			for _, p := range parents[1:] {
				ns := newSeg()
				g.Edges = append(g.Edges, Edge{FromSegment: sb.index, FromIndex: idx, ToSegment: ns.index})
				q.Push(queueItem{oid: p, flags: item.flags, seg: ns})
			}
		default: // AtMergeCommits
			if len(parents) == 1 {
				q.Push(queueItem{oid: parents[0], flags: item.flags, seg: sb})
				continue
			}
			for _, p := range parents {
				ns := newSeg()
				g.Edges = append(g.Edges, Edge{FromSegment: sb.index, FromIndex: idx, ToSegment: ns.index})
				q.Push(queueItem{oid: p, flags: item.flags, seg: ns})
			}
		}
	}

	g.Segments = make([]*Segment, nextSegIndex)
	for i, sb := range segs {
		g.Segments[i] = &Segment{Commits: sb.commits, EarlyEnd: sb.earlyEnd}
	}
	return g, nil
}
