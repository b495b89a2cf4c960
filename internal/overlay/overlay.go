// Package overlay layers in-memory ref and metadata overrides on top of
// a real repository, so callers can reason about a hypothetical state
// of the world (a workspace being assembled, a rebase plan being
// previewed) without writing anything to disk until it's ready.
//
// Every lookup checks three layers in order: refs or metadata this
// overlay has been told to override, then the real repository, then
// refs or metadata this overlay adds without overriding anything real.
// The first layer to have an answer wins.
package overlay

import (
	"fmt"
	"iter"
	"sort"
	"strings"
)

// Reference is a single ref: either a direct pointer to an object, or
// a symbolic pointer to another ref (as HEAD usually is).
type Reference struct {
	Target   string
	Symbolic bool
}

// RefEntry is one named ref, as yielded by [RefSource.ReferencesPrefixed]
// and [Overlay.ReferencesPrefixed].
type RefEntry struct {
	Name string
	Reference
}

// RefSource resolves refs against the real repository.
type RefSource interface {
	FindReference(name string) (Reference, bool, error)
	ReferencesPrefixed(prefix string) iter.Seq2[RefEntry, error]
}

type refOverride struct {
	ref     Reference
	deleted bool
}

// Overlay layers ref and metadata overrides on top of a [RefSource]
// and a pair of metadata sources, one for branches and one for
// workspaces. B and W are whatever value types the caller's metadata
// store uses for those two kinds of record.
type Overlay[B, W any] struct {
	refs       RefSource
	branches   BranchMetadataSource[B]
	workspaces WorkspaceMetadataSource[W]

	overridingRefs    map[string]refOverride
	nonOverridingRefs map[string]Reference

	overridingBranches    map[string]metadataOverride[B]
	nonOverridingBranches map[string]B

	overridingWorkspaces    map[string]metadataOverride[W]
	nonOverridingWorkspaces map[string]W
}

// New builds an overlay on top of refs, branches, and workspaces. Any
// of the three may be nil, in which case that layer always reports
// nothing, and the overlay's own overriding and non-overriding layers
// are all there is.
func New[B, W any](refs RefSource, branches BranchMetadataSource[B], workspaces WorkspaceMetadataSource[W]) *Overlay[B, W] {
	return &Overlay[B, W]{
		refs:       refs,
		branches:   branches,
		workspaces: workspaces,
	}
}

// OverrideReference makes name resolve to ref regardless of what the
// real repository says.
func (o *Overlay[B, W]) OverrideReference(name string, ref Reference) {
	if o.overridingRefs == nil {
		o.overridingRefs = make(map[string]refOverride)
	}
	o.overridingRefs[name] = refOverride{ref: ref}
}

// OverrideReferenceAbsent makes name resolve to nothing, even if the
// real repository has it.
func (o *Overlay[B, W]) OverrideReferenceAbsent(name string) {
	if o.overridingRefs == nil {
		o.overridingRefs = make(map[string]refOverride)
	}
	o.overridingRefs[name] = refOverride{deleted: true}
}

// AddNonOverridingReference adds ref under name, visible only if
// neither an override nor the real repository already has an answer
// for name.
func (o *Overlay[B, W]) AddNonOverridingReference(name string, ref Reference) {
	if o.nonOverridingRefs == nil {
		o.nonOverridingRefs = make(map[string]Reference)
	}
	o.nonOverridingRefs[name] = ref
}

// FindReference resolves name through the three ref layers in order.
func (o *Overlay[B, W]) FindReference(name string) (Reference, bool, error) {
	if entry, ok := o.overridingRefs[name]; ok {
		if entry.deleted {
			return Reference{}, false, nil
		}
		return entry.ref, true, nil
	}

	if o.refs != nil {
		if ref, ok, err := o.refs.FindReference(name); err != nil {
			return Reference{}, false, fmt.Errorf("find reference %s: %w", name, err)
		} else if ok {
			return ref, true, nil
		}
	}

	if ref, ok := o.nonOverridingRefs[name]; ok {
		return ref, true, nil
	}
	return Reference{}, false, nil
}

// ReferencesPrefixed yields every ref whose name starts with prefix,
// across all three layers, deduplicated by name (the same three-layer
// precedence as [Overlay.FindReference] applies per name), layer by
// layer: overriding refs sorted by name, then the real repository's
// refs in the order it yields them, then non-overriding refs sorted by
// name.
func (o *Overlay[B, W]) ReferencesPrefixed(prefix string) iter.Seq2[RefEntry, error] {
	return func(yield func(RefEntry, error) bool) {
		seen := make(map[string]bool)

		for _, name := range sortedPrefixed(o.overridingRefs, prefix) {
			seen[name] = true
			entry := o.overridingRefs[name]
			if entry.deleted {
				continue
			}
			if !yield(RefEntry{Name: name, Reference: entry.ref}, nil) {
				return
			}
		}

		if o.refs != nil {
			for entry, err := range o.refs.ReferencesPrefixed(prefix) {
				if err != nil {
					yield(RefEntry{}, fmt.Errorf("references prefixed %s: %w", prefix, err))
					return
				}
				if seen[entry.Name] {
					continue
				}
				seen[entry.Name] = true
				if !yield(entry, nil) {
					return
				}
			}
		}

		for _, name := range sortedPrefixed(o.nonOverridingRefs, prefix) {
			if seen[name] {
				continue
			}
			seen[name] = true
			if !yield(RefEntry{Name: name, Reference: o.nonOverridingRefs[name]}, nil) {
				return
			}
		}
	}
}

func sortedPrefixed[V any](m map[string]V, prefix string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
