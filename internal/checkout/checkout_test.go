package checkout_test

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.abhg.dev/vbr/internal/checkout"
	"go.abhg.dev/vbr/internal/git"
	"go.abhg.dev/vbr/internal/vberrors"
)

type fakeRepo struct {
	root string

	fromTo map[string]git.FileStatus
	dirty  map[string]git.FileStatus

	removed       []string
	checkedOut    []string
	checkedOutTo  string
	setRefRequest *git.SetRefRequest
}

func (f *fakeRepo) DiffTree(context.Context, string, string) iter.Seq2[git.FileStatus, error] {
	return mapSeq(f.fromTo)
}

func (f *fakeRepo) DiffTreeWork(context.Context, string) iter.Seq2[git.FileStatus, error] {
	return mapSeq(f.dirty)
}

func mapSeq(m map[string]git.FileStatus) iter.Seq2[git.FileStatus, error] {
	return func(yield func(git.FileStatus, error) bool) {
		for _, fs := range m {
			if !yield(fs, nil) {
				return
			}
		}
	}
}

func (f *fakeRepo) RemoveFiles(_ context.Context, req *git.RemoveFilesRequest) error {
	f.removed = append(f.removed, req.Pathspecs...)
	for _, p := range req.Pathspecs {
		_ = os.Remove(filepath.Join(f.root, p))
	}
	return nil
}

func (f *fakeRepo) CheckoutFiles(_ context.Context, req *git.CheckoutFilesRequest) error {
	f.checkedOut = append(f.checkedOut, req.Pathspecs...)
	f.checkedOutTo = req.TreeIsh
	for _, p := range req.Pathspecs {
		full := filepath.Join(f.root, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(full, []byte(p), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeRepo) SetRef(_ context.Context, req git.SetRefRequest) error {
	f.setRefRequest = &req
	return nil
}

func (f *fakeRepo) RootDir() string { return f.root }

func TestSafeCheckout_cleanSwap(t *testing.T) {
	repo := &fakeRepo{
		root: t.TempDir(),
		fromTo: map[string]git.FileStatus{
			"a.txt": {Status: "M", Path: "a.txt"},
			"b.txt": {Status: "D", Path: "b.txt"},
		},
	}

	result, err := checkout.SafeCheckout(context.Background(), repo, "from-tree", "to-tree", checkout.Options{})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"b.txt"}, repo.removed)
	assert.ElementsMatch(t, []string{"a.txt"}, repo.checkedOut)
	assert.Equal(t, "to-tree", repo.checkedOutTo)
	assert.Equal(t, 1, result.NumDeletedFiles)
	assert.Equal(t, 1, result.NumAddedOrUpdatedFiles)
	assert.Nil(t, result.HeadUpdate)
}

func TestSafeCheckout_refusesConflictingPaths(t *testing.T) {
	repo := &fakeRepo{
		root: t.TempDir(),
		fromTo: map[string]git.FileStatus{
			"a.txt": {Status: "M", Path: "a.txt"},
		},
		dirty: map[string]git.FileStatus{
			"a.txt": {Status: "M", Path: "a.txt"},
		},
	}

	_, err := checkout.SafeCheckout(context.Background(), repo, "from-tree", "to-tree", checkout.Options{})
	require.Error(t, err)
	assert.True(t, vberrors.Is(err, vberrors.Conflict))
	assert.Empty(t, repo.removed)
	assert.Empty(t, repo.checkedOut)
}

func TestSafeCheckout_allowConflictsOverrides(t *testing.T) {
	repo := &fakeRepo{
		root: t.TempDir(),
		fromTo: map[string]git.FileStatus{
			"a.txt": {Status: "M", Path: "a.txt"},
		},
		dirty: map[string]git.FileStatus{
			"a.txt": {Status: "M", Path: "a.txt"},
		},
	}

	result, err := checkout.SafeCheckout(context.Background(), repo, "from-tree", "to-tree", checkout.Options{
		AllowConflicts: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.NumAddedOrUpdatedFiles)
}

func TestSafeCheckout_clearsDirectoryFileBlocker(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "foo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "foo", "bar"), []byte("bar"), 0o644))

	repo := &fakeRepo{
		root: root,
		fromTo: map[string]git.FileStatus{
			"foo/bar": {Status: "D", Path: "foo/bar"},
			"foo":     {Status: "A", Path: "foo"},
		},
	}

	result, err := checkout.SafeCheckout(context.Background(), repo, "from-tree", "to-tree", checkout.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.NumDeletedFiles)
	assert.Equal(t, 1, result.NumAddedOrUpdatedFiles)

	info, err := os.Lstat(filepath.Join(root, "foo"))
	require.NoError(t, err)
	assert.False(t, info.IsDir(), "foo should now be a regular file, not the old directory")
}

func TestSafeCheckout_updatesRefOnSuccess(t *testing.T) {
	repo := &fakeRepo{root: t.TempDir()}

	result, err := checkout.SafeCheckout(context.Background(), repo, "from-tree", "to-tree", checkout.Options{
		UpdateRef: &checkout.RefUpdate{Ref: "refs/heads/main", OldHash: "old", NewHash: "new"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.HeadUpdate)
	assert.Equal(t, "refs/heads/main", result.HeadUpdate.Ref)
	assert.Equal(t, git.Hash("new"), result.HeadUpdate.NewOID)
	require.NotNil(t, repo.setRefRequest)
	assert.Equal(t, git.Hash("old"), repo.setRefRequest.OldHash)
}
