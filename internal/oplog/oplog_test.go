package oplog_test

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.abhg.dev/vbr/internal/checkout"
	"go.abhg.dev/vbr/internal/git"
	"go.abhg.dev/vbr/internal/oplog"
)

type fakeRepo struct {
	gitDir string

	trees   map[git.Hash][]git.TreeEntry
	commits map[git.Hash]*git.CommitObject
	refs    map[string]*git.ReferenceInfo

	setRefCalls []git.SetRefRequest

	seq int
}

func newFakeRepo(t *testing.T) *fakeRepo {
	return &fakeRepo{
		gitDir:  t.TempDir(),
		trees:   make(map[git.Hash][]git.TreeEntry),
		commits: make(map[git.Hash]*git.CommitObject),
		refs:    make(map[string]*git.ReferenceInfo),
	}
}

func (f *fakeRepo) next(prefix string) git.Hash {
	f.seq++
	return git.Hash(fmt.Sprintf("%s-%d", prefix, f.seq))
}

func (f *fakeRepo) MakeTree(_ context.Context, ents iter.Seq[git.TreeEntry]) (git.Hash, error) {
	var collected []git.TreeEntry
	for ent := range ents {
		collected = append(collected, ent)
	}
	hash := f.next("tree")
	f.trees[hash] = collected
	return hash, nil
}

func (f *fakeRepo) ReadCommit(_ context.Context, commitish string) (*git.CommitObject, error) {
	c, ok := f.commits[git.Hash(commitish)]
	if !ok {
		return nil, fmt.Errorf("no such commit: %s", commitish)
	}
	return c, nil
}

func (f *fakeRepo) CommitTree(_ context.Context, req git.CommitTreeRequest) (git.Hash, error) {
	hash := f.next("commit")
	subject, body, _ := strings.Cut(req.Message, "\n\n")
	f.commits[hash] = &git.CommitObject{
		Hash:    hash,
		Tree:    req.Tree,
		Parents: req.Parents,
		Subject: subject,
		Body:    body,
	}
	return hash, nil
}

func (f *fakeRepo) ListTree(_ context.Context, tree git.Hash, _ git.ListTreeOptions) (iter.Seq2[git.TreeEntry, error], error) {
	entries := f.trees[tree]
	return func(yield func(git.TreeEntry, error) bool) {
		for _, ent := range entries {
			if !yield(ent, nil) {
				return
			}
		}
	}, nil
}

func (f *fakeRepo) SetRef(_ context.Context, req git.SetRefRequest) error {
	f.setRefCalls = append(f.setRefCalls, req)

	cur, exists := f.refs[req.Ref]
	if req.OldHash != "" {
		curTarget := git.ZeroHash
		if exists {
			curTarget = git.Hash(cur.Target)
		}
		if curTarget != req.OldHash {
			return fmt.Errorf("ref %s: expected old %s, got %s", req.Ref, req.OldHash, curTarget)
		}
	}

	f.refs[req.Ref] = &git.ReferenceInfo{Name: req.Ref, Target: string(req.Hash)}
	return nil
}

func (f *fakeRepo) Reference(_ context.Context, name string) (*git.ReferenceInfo, error) {
	ref, ok := f.refs[name]
	if !ok {
		return nil, git.ErrNotExist
	}
	return ref, nil
}

func (f *fakeRepo) GitDir() string {
	return f.gitDir
}

func entryNamed(entries []git.TreeEntry, name string) (git.TreeEntry, bool) {
	for _, ent := range entries {
		if ent.Name == name {
			return ent, true
		}
	}
	return git.TreeEntry{}, false
}

func TestCreate_firstSnapshotHasNoParent(t *testing.T) {
	repo := newFakeRepo(t)

	snap, err := oplog.Create(context.Background(), repo, oplog.CreateRequest{
		OperationKind: "rebase",
		WorktreeTree:  "wt-tree-1",
		IndexTree:     "idx-tree-1",
	})
	require.NoError(t, err)

	commit := repo.commits[snap]
	require.NotNil(t, commit)
	assert.Empty(t, commit.Parents)

	entries := repo.trees[commit.Tree]
	wt, ok := entryNamed(entries, ".worktree")
	require.True(t, ok)
	assert.Equal(t, git.Hash("wt-tree-1"), wt.Hash)

	idx, ok := entryNamed(entries, ".index")
	require.True(t, ok)
	assert.Equal(t, git.Hash("idx-tree-1"), idx.Hash)

	_, ok = entryNamed(entries, ".metadata")
	assert.False(t, ok, "empty metadata tree is omitted")

	head, hadOne, err := oplog.Head(context.Background(), repo)
	require.NoError(t, err)
	require.True(t, hadOne)
	assert.Equal(t, snap, head)
}

func TestCreate_chainsOntoPreviousSnapshot(t *testing.T) {
	repo := newFakeRepo(t)
	ctx := context.Background()

	first, err := oplog.Create(ctx, repo, oplog.CreateRequest{
		OperationKind: "rebase",
		WorktreeTree:  "wt-1",
	})
	require.NoError(t, err)

	second, err := oplog.Create(ctx, repo, oplog.CreateRequest{
		OperationKind: "squash",
		WorktreeTree:  "wt-2",
	})
	require.NoError(t, err)

	commit := repo.commits[second]
	require.Len(t, commit.Parents, 1)
	assert.Equal(t, first, commit.Parents[0])

	require.Len(t, repo.setRefCalls, 2)
	assert.Equal(t, git.ZeroHash, repo.setRefCalls[0].OldHash)
	assert.Equal(t, first, repo.setRefCalls[1].OldHash)
}

func TestCreate_messageRoundTrips(t *testing.T) {
	repo := newFakeRepo(t)

	snap, err := oplog.Create(context.Background(), repo, oplog.CreateRequest{
		OperationKind: "restack",
		WorktreeTree:  "wt-1",
		Details:       map[string]any{"branch": "feature"},
	})
	require.NoError(t, err)

	commit := repo.commits[snap]
	msg, err := oplog.ParseMessage(commit)
	require.NoError(t, err)
	assert.Equal(t, "restack", msg.OperationKind)
	assert.False(t, msg.Timestamp.IsZero())
	assert.Equal(t, map[string]any{"branch": "feature"}, msg.Details)
}

func TestCreate_pinsReflogAgainstGC(t *testing.T) {
	repo := newFakeRepo(t)
	ctx := context.Background()

	first, err := oplog.Create(ctx, repo, oplog.CreateRequest{OperationKind: "rebase", WorktreeTree: "wt-1"})
	require.NoError(t, err)

	second, err := oplog.Create(ctx, repo, oplog.CreateRequest{OperationKind: "squash", WorktreeTree: "wt-2"})
	require.NoError(t, err)

	logPath := filepath.Join(repo.gitDir, "logs", "refs", "vbr", "oplog")
	raw, err := os.ReadFile(logPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	// Two snapshots, two lines each.
	require.Len(t, lines, 4)

	// Last pin's second line resets to the second snapshot.
	lastLine := lines[3]
	fields := strings.Fields(lastLine)
	require.GreaterOrEqual(t, len(fields), 2)
	assert.Equal(t, string(first), fields[0])
	assert.Equal(t, string(second), fields[1])
	assert.Contains(t, lastLine, "reset: moving to "+string(second))
}

func TestHead_absentBeforeFirstSnapshot(t *testing.T) {
	repo := newFakeRepo(t)
	_, ok, err := oplog.Head(context.Background(), repo)
	require.NoError(t, err)
	assert.False(t, ok)
}

type fakeCheckoutRepo struct {
	root string

	fromTo map[string]git.FileStatus
	dirty  map[string]git.FileStatus

	checkedOutTo string
}

func (f *fakeCheckoutRepo) DiffTree(context.Context, string, string) iter.Seq2[git.FileStatus, error] {
	return mapSeq(f.fromTo)
}

func (f *fakeCheckoutRepo) DiffTreeWork(context.Context, string) iter.Seq2[git.FileStatus, error] {
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

func (f *fakeCheckoutRepo) RemoveFiles(context.Context, *git.RemoveFilesRequest) error { return nil }

func (f *fakeCheckoutRepo) CheckoutFiles(_ context.Context, req *git.CheckoutFilesRequest) error {
	f.checkedOutTo = req.TreeIsh
	return nil
}

func (f *fakeCheckoutRepo) SetRef(context.Context, git.SetRefRequest) error { return nil }

func (f *fakeCheckoutRepo) RootDir() string { return f.root }

var _ checkout.Repo = (*fakeCheckoutRepo)(nil)

func TestRestore_checksOutRecordedWorktreeTree(t *testing.T) {
	repo := newFakeRepo(t)
	ctx := context.Background()

	snap, err := oplog.Create(ctx, repo, oplog.CreateRequest{
		OperationKind: "rebase",
		WorktreeTree:  "wt-snapshot",
		IndexTree:     "idx-snapshot",
		MetadataTree:  "meta-snapshot",
	})
	require.NoError(t, err)

	wtRepo := &fakeCheckoutRepo{
		root: t.TempDir(),
		fromTo: map[string]git.FileStatus{
			"a.txt": {Status: "A", Path: "a.txt"},
		},
	}

	result, entries, err := oplog.Restore(ctx, repo, wtRepo, "current-tree", snap, checkout.Options{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "wt-snapshot", wtRepo.checkedOutTo)
	assert.Equal(t, git.Hash("idx-snapshot"), entries.IndexTree)
	assert.Equal(t, git.Hash("meta-snapshot"), entries.MetadataTree)
}

func TestRestore_missingSnapshotErrors(t *testing.T) {
	repo := newFakeRepo(t)
	wtRepo := &fakeCheckoutRepo{root: t.TempDir()}

	_, _, err := oplog.Restore(context.Background(), repo, wtRepo, "current-tree", "no-such-snapshot", checkout.Options{})
	require.Error(t, err)
}
