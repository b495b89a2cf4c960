package state_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.abhg.dev/vbr/internal/hunk"
	"go.abhg.dev/vbr/internal/state"
)

func TestSetAssignments_roundTrips(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	key := hunk.Key{Path: "a.go", Header: hunk.Header{OldStart: 1, OldLines: 2, NewStart: 1, NewLines: 3}}
	assignment := hunk.Assignment{
		Path:    key.Path,
		Header:  key.Header,
		StackID: "s1",
		HunkLocks: []hunk.Lock{
			{CommitID: "c1", Target: hunk.LockTarget{StackID: "s1"}},
			{CommitID: "c2", Target: hunk.LockTarget{Unknown: true}},
		},
	}

	require.NoError(t, store.SetAssignments(ctx, map[hunk.Key]hunk.Assignment{key: assignment}, ""))

	got, err := store.Assignments(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)

	gotAssignment, ok := got[key]
	require.True(t, ok)
	assert.Equal(t, "s1", gotAssignment.StackID)
	require.Len(t, gotAssignment.HunkLocks, 2)
	assert.Equal(t, "c1", gotAssignment.HunkLocks[0].CommitID)
	assert.Equal(t, "s1", gotAssignment.HunkLocks[0].Target.StackID)
	assert.True(t, gotAssignment.HunkLocks[1].Target.Unknown)
}

func TestSetAssignments_fullReplaceDropsRemovedKeys(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	key1 := hunk.Key{Path: "a.go", Header: hunk.Header{OldStart: 1, OldLines: 1, NewStart: 1, NewLines: 1}}
	key2 := hunk.Key{Path: "b.go", Header: hunk.Header{OldStart: 5, OldLines: 1, NewStart: 5, NewLines: 1}}

	require.NoError(t, store.SetAssignments(ctx, map[hunk.Key]hunk.Assignment{
		key1: {Path: key1.Path, Header: key1.Header, StackID: "s1"},
		key2: {Path: key2.Path, Header: key2.Header, StackID: "s2"},
	}, ""))

	require.NoError(t, store.SetAssignments(ctx, map[hunk.Key]hunk.Assignment{
		key1: {Path: key1.Path, Header: key1.Header, StackID: "s1"},
	}, ""))

	got, err := store.Assignments(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	_, ok := got[key1]
	assert.True(t, ok)
	_, ok = got[key2]
	assert.False(t, ok)
}

func TestHunkStore_adaptsContextFreeInterface(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	hs := state.NewHunkStore(ctx, store)

	key := hunk.Key{Path: "a.go", Header: hunk.Header{OldStart: 1, OldLines: 1, NewStart: 1, NewLines: 1}}
	require.NoError(t, hs.SetAssignments(map[hunk.Key]hunk.Assignment{
		key: {Path: key.Path, Header: key.Header, StackID: "s1"},
	}))

	got, err := hs.Assignments()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[key].StackID)
}
