package oplog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	"go.abhg.dev/vbr/internal/git"
)

// Reserved top-level names under a snapshot commit's tree. They're
// dot-prefixed the same way the rebase engine's conflict trees are, so
// a snapshot's tree never collides with a real path at the repository
// root.
const (
	worktreeEntry = ".worktree"
	indexEntry    = ".index"
	metadataEntry = ".metadata"
)

// Message is the structured body of a snapshot commit.
type Message struct {
	// OperationKind names the operation the snapshot was taken
	// around, e.g. "rebase", "squash", "restack".
	OperationKind string `json:"operation_kind"`

	// Timestamp is when the snapshot was taken.
	Timestamp time.Time `json:"timestamp"`

	// Details carries operation-specific context, e.g. the branches
	// and commits involved.
	Details any `json:"details,omitempty"`
}

// CreateRequest describes a new snapshot.
type CreateRequest struct {
	// OperationKind and Details become the snapshot commit's
	// [Message].
	OperationKind string
	Details       any

	// Timestamp is recorded in the commit message and used, along
	// with [Signature], to pin the chain's reflog entry. Defaults to
	// the current time if zero.
	Timestamp time.Time

	// WorktreeTree, IndexTree, and MetadataTree are the root trees of
	// the three states the snapshot captures: the working tree, the
	// index, and whatever operation-specific metadata blobs the
	// caller wants preserved alongside it (assignment and vbranch
	// state, typically).
	WorktreeTree, IndexTree, MetadataTree git.Hash

	// Signature signs both the snapshot commit and the reflog entry
	// that pins it. Defaults to a fixed identity if zero.
	Signature git.Signature
}

// DefaultSignature is used to sign snapshot commits and their pinning
// reflog entries when the caller doesn't provide one.
var DefaultSignature = git.Signature{
	Name:  "vbr-oplog",
	Email: "vbr-oplog@localhost",
}

// Head returns the tip of the snapshot chain, or false if no snapshot
// has been taken yet.
func Head(ctx context.Context, repo Repo) (git.Hash, bool, error) {
	ref, err := repo.Reference(ctx, HeadRef)
	if errors.Is(err, git.ErrNotExist) {
		return git.ZeroHash, false, nil
	}
	if err != nil {
		return git.ZeroHash, false, fmt.Errorf("read %s: %w", HeadRef, err)
	}
	if ref.Symbolic {
		return git.ZeroHash, false, fmt.Errorf("%s: unexpectedly symbolic", HeadRef)
	}
	return git.Hash(ref.Target), true, nil
}

// Create records a new snapshot, chaining it onto the current tip of
// the snapshot chain (if any), and returns the new snapshot's hash.
func Create(ctx context.Context, repo Repo, req CreateRequest) (git.Hash, error) {
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}
	sig := req.Signature
	if sig.Name == "" {
		sig = DefaultSignature
	}
	if sig.Time.IsZero() {
		sig.Time = req.Timestamp
	}

	prevHead, hadPrev, err := Head(ctx, repo)
	if err != nil {
		return git.ZeroHash, err
	}

	tree, err := repo.MakeTree(ctx, snapshotTreeEntries(req))
	if err != nil {
		return git.ZeroHash, fmt.Errorf("build snapshot tree: %w", err)
	}

	msg := Message{
		OperationKind: req.OperationKind,
		Timestamp:     req.Timestamp,
		Details:       req.Details,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return git.ZeroHash, fmt.Errorf("marshal snapshot message: %w", err)
	}

	var parents []git.Hash
	if hadPrev {
		parents = []git.Hash{prevHead}
	}

	commitMsg := git.CommitMessage{
		Subject: fmt.Sprintf("oplog: %s", req.OperationKind),
		Body:    string(body),
	}
	snapshot, err := repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree:      tree,
		Message:   commitMsg.String(),
		Parents:   parents,
		Author:    &sig,
		Committer: &sig,
	})
	if err != nil {
		return git.ZeroHash, fmt.Errorf("commit snapshot: %w", err)
	}

	oldHash := git.ZeroHash
	if hadPrev {
		oldHash = prevHead
	}
	if err := repo.SetRef(ctx, git.SetRefRequest{
		Ref:     HeadRef,
		Hash:    snapshot,
		OldHash: oldHash,
	}); err != nil {
		return git.ZeroHash, fmt.Errorf("update %s: %w", HeadRef, err)
	}

	if err := pinReflog(repo.GitDir(), HeadRef, prevHead, snapshot, sig, req.Timestamp); err != nil {
		return git.ZeroHash, fmt.Errorf("pin %s against gc: %w", HeadRef, err)
	}

	return snapshot, nil
}

func snapshotTreeEntries(req CreateRequest) iter.Seq[git.TreeEntry] {
	return func(yield func(git.TreeEntry) bool) {
		entries := []git.TreeEntry{
			{Mode: git.DirMode, Type: git.TreeType, Hash: req.WorktreeTree, Name: worktreeEntry},
			{Mode: git.DirMode, Type: git.TreeType, Hash: req.IndexTree, Name: indexEntry},
			{Mode: git.DirMode, Type: git.TreeType, Hash: req.MetadataTree, Name: metadataEntry},
		}
		for _, ent := range entries {
			if ent.Hash == "" || ent.Hash.IsZero() {
				continue
			}
			if !yield(ent) {
				return
			}
		}
	}
}

// ParseMessage decodes a snapshot commit's body back into a [Message].
func ParseMessage(commit *git.CommitObject) (Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(commit.Body), &msg); err != nil {
		return Message{}, fmt.Errorf("unmarshal snapshot message: %w", err)
	}
	return msg, nil
}
