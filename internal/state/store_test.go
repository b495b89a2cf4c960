package state_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.abhg.dev/vbr/internal/spice/state/storage"
	"go.abhg.dev/vbr/internal/state"
)

func newTestDB() *storage.DB {
	return storage.NewDB(make(storage.MapBackend))
}

func TestInit_requiresDefaultTargetBranchName(t *testing.T) {
	_, err := state.Init(context.Background(), state.InitRequest{DB: newTestDB()})
	require.Error(t, err)
}

func TestOpen_uninitializedErrors(t *testing.T) {
	_, err := state.Open(context.Background(), newTestDB(), nil)
	assert.ErrorIs(t, err, state.ErrUninitialized)
}

func TestInitThenOpen(t *testing.T) {
	ctx := context.Background()
	db := newTestDB()

	_, err := state.Init(ctx, state.InitRequest{
		DB:                      db,
		DefaultTargetRemoteName: "origin",
		DefaultTargetBranchName: "main",
		DefaultTargetSHA:        "deadbeef",
	})
	require.NoError(t, err)

	store, err := state.Open(ctx, db, nil)
	require.NoError(t, err)

	target, err := store.DefaultTarget(ctx)
	require.NoError(t, err)
	assert.Equal(t, "origin", target.RemoteName)
	assert.Equal(t, "main", target.BranchName)
	assert.Equal(t, "deadbeef", target.SHA)
}

func TestInit_resetClearsExistingState(t *testing.T) {
	ctx := context.Background()
	db := newTestDB()

	store, err := state.Init(ctx, state.InitRequest{
		DB:                      db,
		DefaultTargetBranchName: "main",
	})
	require.NoError(t, err)

	require.NoError(t, store.PutStack(ctx, state.PutStackRequest{ID: "s1"}, ""))

	_, err = state.Init(ctx, state.InitRequest{
		DB:                      db,
		DefaultTargetBranchName: "develop",
		Reset:                   true,
	})
	require.NoError(t, err)

	store2, err := state.Open(ctx, db, nil)
	require.NoError(t, err)

	ids, err := store2.ListStacks(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	target, err := store2.DefaultTarget(ctx)
	require.NoError(t, err)
	assert.Equal(t, "develop", target.BranchName)
}

func TestSetDefaultTarget_leavesUnspecifiedFieldsAlone(t *testing.T) {
	ctx := context.Background()
	db := newTestDB()

	store, err := state.Init(ctx, state.InitRequest{
		DB:                      db,
		DefaultTargetRemoteName: "origin",
		DefaultTargetBranchName: "main",
		DefaultTargetSHA:        "sha1",
	})
	require.NoError(t, err)

	require.NoError(t, store.SetDefaultTarget(ctx, state.SetDefaultTargetRequest{
		SHA: "sha2",
	}, ""))

	target, err := store.DefaultTarget(ctx)
	require.NoError(t, err)
	assert.Equal(t, "origin", target.RemoteName)
	assert.Equal(t, "main", target.BranchName)
	assert.Equal(t, "sha2", target.SHA)
}

func TestSetDefaultTarget_unsetClearsField(t *testing.T) {
	ctx := context.Background()
	db := newTestDB()

	store, err := state.Init(ctx, state.InitRequest{
		DB:                      db,
		DefaultTargetRemoteName: "origin",
		DefaultTargetBranchName: "main",
		DefaultTargetSHA:        "sha1",
	})
	require.NoError(t, err)

	require.NoError(t, store.SetDefaultTarget(ctx, state.SetDefaultTargetRequest{
		PushRemoteName: "upstream",
	}, ""))
	require.NoError(t, store.SetDefaultTarget(ctx, state.SetDefaultTargetRequest{
		PushRemoteName: state.Unset,
	}, ""))

	target, err := store.DefaultTarget(ctx)
	require.NoError(t, err)
	assert.Empty(t, target.PushRemoteName)
}

func TestSetDefaultTarget_cannotClearBranchName(t *testing.T) {
	ctx := context.Background()
	db := newTestDB()

	store, err := state.Init(ctx, state.InitRequest{
		DB:                      db,
		DefaultTargetBranchName: "main",
	})
	require.NoError(t, err)

	err = store.SetDefaultTarget(ctx, state.SetDefaultTargetRequest{
		BranchName: state.Unset,
	}, "")
	require.Error(t, err)
}
