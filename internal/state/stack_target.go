package state

import (
	"context"
	"errors"
	"fmt"
)

// branchTargetRecord is the persisted shape of vb_branch_targets(stack_id).
type branchTargetRecord struct {
	RemoteName     string `json:"remote_name"`
	BranchName     string `json:"branch_name"`
	RemoteURL      string `json:"remote_url,omitempty"`
	SHA            string `json:"sha"`
	PushRemoteName string `json:"push_remote_name,omitempty"`
}

// StackTarget is the upstream a single stack's branches push against.
// Unlike the repository-wide [DefaultTarget], this can diverge per
// stack, e.g. a stack being prepared against a release branch instead
// of the default target.
type StackTarget struct {
	RemoteName     string
	BranchName     string
	RemoteURL      string
	SHA            string
	PushRemoteName string
}

// ErrStackTargetNotExist indicates a stack has no recorded push
// target, which is the common case: most stacks push against the
// repository's [DefaultTarget] instead.
var ErrStackTargetNotExist = errors.New("stack has no recorded push target")

// StackTarget returns a stack's recorded push target.
//
// It returns [ErrStackTargetNotExist] if the stack has none recorded,
// in which case callers should fall back to [Store.DefaultTarget].
func (s *Store) StackTarget(ctx context.Context, stackID string) (StackTarget, error) {
	var rec branchTargetRecord
	if err := s.db.Get(ctx, stackTargetKey(stackID), &rec); err != nil {
		if errors.Is(err, ErrNotExist) {
			return StackTarget{}, ErrStackTargetNotExist
		}
		return StackTarget{}, fmt.Errorf("get target for stack %q: %w", stackID, err)
	}
	return StackTarget{
		RemoteName:     rec.RemoteName,
		BranchName:     rec.BranchName,
		RemoteURL:      rec.RemoteURL,
		SHA:            rec.SHA,
		PushRemoteName: rec.PushRemoteName,
	}, nil
}

// PutStackTarget records a stack's push target.
func (s *Store) PutStackTarget(ctx context.Context, stackID string, target StackTarget, msg string) error {
	if stackID == "" {
		return errors.New("stack id is required")
	}
	if target.BranchName == "" {
		return errors.New("branch name is required")
	}

	rec := branchTargetRecord{
		RemoteName:     target.RemoteName,
		BranchName:     target.BranchName,
		RemoteURL:      target.RemoteURL,
		SHA:            target.SHA,
		PushRemoteName: target.PushRemoteName,
	}
	if msg == "" {
		msg = fmt.Sprintf("put target for stack %s", stackID)
	}
	if err := s.db.Set(ctx, stackTargetKey(stackID), rec, msg); err != nil {
		return fmt.Errorf("put target for stack %q: %w", stackID, err)
	}
	return nil
}

// DeleteStackTarget removes a stack's recorded push target, reverting
// it to the repository's [DefaultTarget].
func (s *Store) DeleteStackTarget(ctx context.Context, stackID string, msg string) error {
	if msg == "" {
		msg = fmt.Sprintf("delete target for stack %s", stackID)
	}
	if err := s.db.Delete(ctx, stackTargetKey(stackID), msg); err != nil {
		return fmt.Errorf("delete target for stack %q: %w", stackID, err)
	}
	return nil
}
