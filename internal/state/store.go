// Package state persists the engine's view of the world: the default
// target, the set of stacks and their heads, each stack's upstream
// push target, and the worktree-hunk-to-stack assignment table.
//
// It's a thin schema layered over the same append-only, git-ref-backed
// key/value store git-spice uses for its own branch metadata: every
// write is a commit, and the ref only ever advances through
// compare-and-swap, so a concurrent writer never clobbers another's
// update silently.
package state

import (
	"context"
	"errors"
	"fmt"

	"go.abhg.dev/vbr/internal/silog"
	"go.abhg.dev/vbr/internal/spice/state/storage"
)

// DB is the key-value interface the store is layered over.
type DB interface {
	Get(ctx context.Context, k string, v any) error
	Keys(ctx context.Context, dir string) ([]string, error)

	Set(ctx context.Context, k string, v any, msg string) error
	Delete(ctx context.Context, k, msg string) error
	Update(ctx context.Context, req storage.UpdateRequest) error
	Clear(ctx context.Context, msg string) error
}

var _ DB = (*storage.DB)(nil)

// ErrNotExist indicates that a key that was expected to exist does
// not.
var ErrNotExist = storage.ErrNotExist

// ErrUninitialized indicates that the store has not been initialized
// for this repository yet.
var ErrUninitialized = errors.New("state store not initialized")

// Store is the persisted state of the engine for one repository.
type Store struct {
	db  DB
	log *silog.Logger
}

const _vbStateKey = "vb_state"

// InitRequest configures [Init].
type InitRequest struct {
	DB DB

	// DefaultTargetRemoteName and DefaultTargetBranchName identify
	// the branch new stacks are based on and rebased onto by
	// default.
	DefaultTargetRemoteName string
	DefaultTargetBranchName string

	// DefaultTargetSHA is the commit the default target currently
	// points at, recorded so a later sync can tell whether it has
	// moved.
	DefaultTargetSHA string

	// Reset clears any existing state before initializing.
	Reset bool

	Log *silog.Logger
}

// Init initializes the store for a repository, recording its default
// target.
//
// If the repository is already initialized and Reset is not set,
// recorded stacks, their heads and targets, and hunk assignments are
// kept; the vb_state row is rewritten from req, so a previously
// recorded push remote or last-pushed SHA is cleared.
func Init(ctx context.Context, req InitRequest) (*Store, error) {
	logger := req.Log
	if logger == nil {
		logger = silog.Nop()
	}
	if req.DefaultTargetBranchName == "" {
		return nil, errors.New("default target branch name is required")
	}

	store := &Store{db: req.DB, log: logger}

	if req.Reset {
		if err := req.DB.Clear(ctx, "reset state"); err != nil {
			return nil, fmt.Errorf("clear state: %w", err)
		}
	}

	vb := vbState{
		Initialized:             true,
		DefaultTargetRemoteName: req.DefaultTargetRemoteName,
		DefaultTargetBranchName: req.DefaultTargetBranchName,
		DefaultTargetSHA:        req.DefaultTargetSHA,
	}
	if err := req.DB.Set(ctx, _vbStateKey, vb, "initialize state"); err != nil {
		return nil, fmt.Errorf("set vb_state: %w", err)
	}

	return store, nil
}

// Open opens the store for a repository previously initialized with
// [Init].
//
// It returns [ErrUninitialized] if the repository has not been
// initialized.
func Open(ctx context.Context, db DB, logger *silog.Logger) (*Store, error) {
	if logger == nil {
		logger = silog.Nop()
	}

	var vb vbState
	if err := db.Get(ctx, _vbStateKey, &vb); err != nil {
		if errors.Is(err, ErrNotExist) {
			return nil, ErrUninitialized
		}
		return nil, fmt.Errorf("get vb_state: %w", err)
	}
	if !vb.Initialized {
		return nil, ErrUninitialized
	}

	return &Store{db: db, log: logger}, nil
}
