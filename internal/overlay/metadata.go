package overlay

import (
	"fmt"
	"iter"
	"sort"
)

type metadataOverride[T any] struct {
	value   T
	deleted bool
}

// BranchMetadataSource resolves recorded branch metadata against the
// real metadata store.
type BranchMetadataSource[B any] interface {
	BranchMetadata(name string) (B, bool, error)
}

// WorkspaceMetadataSource resolves recorded workspace metadata against
// the real metadata store.
type WorkspaceMetadataSource[W any] interface {
	WorkspaceMetadata(name string) (W, bool, error)
	IterWorkspaces() iter.Seq2[string, W]
}

// OverrideBranchMetadata makes name resolve to v regardless of what
// the real metadata store says.
func (o *Overlay[B, W]) OverrideBranchMetadata(name string, v B) {
	if o.overridingBranches == nil {
		o.overridingBranches = make(map[string]metadataOverride[B])
	}
	o.overridingBranches[name] = metadataOverride[B]{value: v}
}

// OverrideBranchMetadataAbsent makes name resolve to nothing, even if
// the real metadata store has it.
func (o *Overlay[B, W]) OverrideBranchMetadataAbsent(name string) {
	if o.overridingBranches == nil {
		o.overridingBranches = make(map[string]metadataOverride[B])
	}
	o.overridingBranches[name] = metadataOverride[B]{deleted: true}
}

// AddNonOverridingBranchMetadata adds v under name, visible only if
// neither an override nor the real metadata store already has an
// answer for name.
func (o *Overlay[B, W]) AddNonOverridingBranchMetadata(name string, v B) {
	if o.nonOverridingBranches == nil {
		o.nonOverridingBranches = make(map[string]B)
	}
	o.nonOverridingBranches[name] = v
}

// BranchMetadata resolves name through the three branch-metadata
// layers in order.
func (o *Overlay[B, W]) BranchMetadata(name string) (B, bool, error) {
	if entry, ok := o.overridingBranches[name]; ok {
		if entry.deleted {
			var zero B
			return zero, false, nil
		}
		return entry.value, true, nil
	}

	if o.branches != nil {
		if v, ok, err := o.branches.BranchMetadata(name); err != nil {
			var zero B
			return zero, false, fmt.Errorf("branch metadata %s: %w", name, err)
		} else if ok {
			return v, true, nil
		}
	}

	if v, ok := o.nonOverridingBranches[name]; ok {
		return v, true, nil
	}
	var zero B
	return zero, false, nil
}

// OverrideWorkspaceMetadata makes name resolve to v regardless of what
// the real metadata store says.
func (o *Overlay[B, W]) OverrideWorkspaceMetadata(name string, v W) {
	if o.overridingWorkspaces == nil {
		o.overridingWorkspaces = make(map[string]metadataOverride[W])
	}
	o.overridingWorkspaces[name] = metadataOverride[W]{value: v}
}

// OverrideWorkspaceMetadataAbsent makes name resolve to nothing, even
// if the real metadata store has it.
func (o *Overlay[B, W]) OverrideWorkspaceMetadataAbsent(name string) {
	if o.overridingWorkspaces == nil {
		o.overridingWorkspaces = make(map[string]metadataOverride[W])
	}
	o.overridingWorkspaces[name] = metadataOverride[W]{deleted: true}
}

// AddNonOverridingWorkspaceMetadata adds v under name, visible only if
// neither an override nor the real metadata store already has an
// answer for name.
func (o *Overlay[B, W]) AddNonOverridingWorkspaceMetadata(name string, v W) {
	if o.nonOverridingWorkspaces == nil {
		o.nonOverridingWorkspaces = make(map[string]W)
	}
	o.nonOverridingWorkspaces[name] = v
}

// WorkspaceMetadata resolves name through the three
// workspace-metadata layers in order.
func (o *Overlay[B, W]) WorkspaceMetadata(name string) (W, bool, error) {
	if entry, ok := o.overridingWorkspaces[name]; ok {
		if entry.deleted {
			var zero W
			return zero, false, nil
		}
		return entry.value, true, nil
	}

	if o.workspaces != nil {
		if v, ok, err := o.workspaces.WorkspaceMetadata(name); err != nil {
			var zero W
			return zero, false, fmt.Errorf("workspace metadata %s: %w", name, err)
		} else if ok {
			return v, true, nil
		}
	}

	if v, ok := o.nonOverridingWorkspaces[name]; ok {
		return v, true, nil
	}
	var zero W
	return zero, false, nil
}

// IterWorkspaces yields every recorded workspace across all three
// layers, deduplicated by name (the same precedence as
// [Overlay.WorkspaceMetadata] applies per name), layer by layer:
// overriding entries sorted by name, then the real source's entries in
// the order it yields them, then non-overriding entries sorted by name.
func (o *Overlay[B, W]) IterWorkspaces() iter.Seq2[string, W] {
	return func(yield func(string, W) bool) {
		seen := make(map[string]bool)

		names := make([]string, 0, len(o.overridingWorkspaces))
		for name := range o.overridingWorkspaces {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			seen[name] = true
			entry := o.overridingWorkspaces[name]
			if entry.deleted {
				continue
			}
			if !yield(name, entry.value) {
				return
			}
		}

		if o.workspaces != nil {
			for name, v := range o.workspaces.IterWorkspaces() {
				if seen[name] {
					continue
				}
				seen[name] = true
				if !yield(name, v) {
					return
				}
			}
		}

		rest := make([]string, 0, len(o.nonOverridingWorkspaces))
		for name := range o.nonOverridingWorkspaces {
			if !seen[name] {
				rest = append(rest, name)
			}
		}
		sort.Strings(rest)
		for _, name := range rest {
			seen[name] = true
			if !yield(name, o.nonOverridingWorkspaces[name]) {
				return
			}
		}
	}
}
