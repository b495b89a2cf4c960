package state_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.abhg.dev/vbr/internal/state"
)

func newTestStore(t *testing.T) *state.Store {
	t.Helper()
	ctx := context.Background()
	store, err := state.Init(ctx, state.InitRequest{
		DB:                      newTestDB(),
		DefaultTargetBranchName: "main",
	})
	require.NoError(t, err)
	return store
}

func TestPutStack_andGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.PutStack(ctx, state.PutStackRequest{
		ID:             "s1",
		SourceRefname:  "refs/heads/feature",
		UpstreamRemote: "origin",
		UpstreamBranch: "feature",
		SortOrder:      1,
		InWorkspace:    true,
	}, ""))

	got, err := store.Stack(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, "refs/heads/feature", got.SourceRefname)
	assert.True(t, got.InWorkspace)
}

func TestStack_notTracked(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Stack(ctx, "missing")
	assert.ErrorIs(t, err, state.ErrStackNotExist)
}

func TestPutStack_preservesLegacyAcrossUpdates(t *testing.T) {
	ctx := context.Background()
	db := newTestDB()
	store, err := state.Init(ctx, state.InitRequest{DB: db, DefaultTargetBranchName: "main"})
	require.NoError(t, err)

	require.NoError(t, store.PutStack(ctx, state.PutStackRequest{ID: "s1"}, ""))

	// Simulate a repository carrying over fields from the superseded
	// stacked-PR schema by writing the record underneath the store.
	legacy := map[string]string{"series": "old-series"}
	require.NoError(t, db.Set(ctx, "stacks/s1/stack", map[string]any{"legacy": legacy}, ""))
	got, err := store.Stack(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, legacy, got.Legacy)

	require.NoError(t, store.PutStack(ctx, state.PutStackRequest{
		ID:        "s1",
		SortOrder: 3,
	}, ""))

	got2, err := store.Stack(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, got2.SortOrder)
	assert.Equal(t, legacy, got2.Legacy)
}

func TestListStacks_sortedAndDeduplicated(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.PutStack(ctx, state.PutStackRequest{ID: "b"}, ""))
	require.NoError(t, store.PutStack(ctx, state.PutStackRequest{ID: "a"}, ""))
	require.NoError(t, store.PutStackHead(ctx, state.PutStackHeadRequest{
		StackID: "a", Position: 0, Name: "feature-a",
	}, ""))

	ids, err := store.ListStacks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestStackHeads_putOrderAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.PutStack(ctx, state.PutStackRequest{ID: "s1"}, ""))
	require.NoError(t, store.PutStackHead(ctx, state.PutStackHeadRequest{
		StackID: "s1", Position: 1, Name: "feature-2", HeadSHA: "sha2",
	}, ""))
	require.NoError(t, store.PutStackHead(ctx, state.PutStackHeadRequest{
		StackID: "s1", Position: 0, Name: "feature-1", HeadSHA: "sha1",
	}, ""))

	ordered, err := store.OrderedStackHeads(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, "feature-1", ordered[0].Name)
	assert.Equal(t, "feature-2", ordered[1].Name)

	require.NoError(t, store.DeleteStackHead(ctx, "s1", 0, ""))

	heads, err := store.StackHeads(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, heads, 1)
	_, ok := heads[0]
	assert.False(t, ok)
}

func TestDeleteStack_removesHeadsAndTarget(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.PutStack(ctx, state.PutStackRequest{ID: "s1"}, ""))
	require.NoError(t, store.PutStackHead(ctx, state.PutStackHeadRequest{
		StackID: "s1", Position: 0, Name: "feature-1",
	}, ""))
	require.NoError(t, store.PutStackTarget(ctx, "s1", state.StackTarget{
		RemoteName: "origin", BranchName: "release",
	}, ""))

	require.NoError(t, store.DeleteStack(ctx, "s1", ""))

	_, err := store.Stack(ctx, "s1")
	assert.ErrorIs(t, err, state.ErrStackNotExist)

	heads, err := store.StackHeads(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, heads)

	_, err = store.StackTarget(ctx, "s1")
	assert.ErrorIs(t, err, state.ErrStackTargetNotExist)
}

func TestStackTarget_fallsBackToNotExist(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.PutStack(ctx, state.PutStackRequest{ID: "s1"}, ""))

	_, err := store.StackTarget(ctx, "s1")
	assert.ErrorIs(t, err, state.ErrStackTargetNotExist)

	require.NoError(t, store.PutStackTarget(ctx, "s1", state.StackTarget{
		RemoteName: "origin",
		BranchName: "release/1.0",
		SHA:        "abc123",
	}, ""))

	target, err := store.StackTarget(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "release/1.0", target.BranchName)

	require.NoError(t, store.DeleteStackTarget(ctx, "s1", ""))
	_, err = store.StackTarget(ctx, "s1")
	assert.ErrorIs(t, err, state.ErrStackTargetNotExist)
}

func TestPutStackTarget_requiresBranchName(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.PutStackTarget(ctx, "s1", state.StackTarget{RemoteName: "origin"}, "")
	require.Error(t, err)
}
