package state

import (
	"context"

	"go.abhg.dev/vbr/internal/hunk"
)

// HunkStore adapts a [*Store] to [hunk.Store], whose methods take no
// context: the context to use for every operation is fixed at
// construction time instead of being threaded through each call.
type HunkStore struct {
	store *Store
	ctx   context.Context
}

var _ hunk.Store = (*HunkStore)(nil)

// NewHunkStore returns a [hunk.Store] backed by store, using ctx for
// every read and write it performs.
func NewHunkStore(ctx context.Context, store *Store) *HunkStore {
	return &HunkStore{store: store, ctx: ctx}
}

// Assignments implements [hunk.Store].
func (h *HunkStore) Assignments() (map[hunk.Key]hunk.Assignment, error) {
	return h.store.Assignments(h.ctx)
}

// SetAssignments implements [hunk.Store].
func (h *HunkStore) SetAssignments(next map[hunk.Key]hunk.Assignment) error {
	return h.store.SetAssignments(h.ctx, next, "")
}
