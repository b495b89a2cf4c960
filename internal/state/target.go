package state

import (
	"context"
	"fmt"
)

// vbState is the repository-wide singleton row (vb_state).
type vbState struct {
	Initialized bool `json:"initialized"`

	DefaultTargetRemoteName string `json:"default_target_remote_name,omitempty"`
	DefaultTargetBranchName string `json:"default_target_branch_name"`
	DefaultTargetSHA        string `json:"default_target_sha,omitempty"`

	// DefaultTargetPushRemoteName, if set, is used instead of
	// DefaultTargetRemoteName when pushing; some setups fetch from
	// one remote and push to another.
	DefaultTargetPushRemoteName string `json:"default_target_push_remote_name,omitempty"`

	// LastPushedBaseSHA is the default target's commit the last time
	// a sync pushed against it, used to detect whether the target
	// has moved since.
	LastPushedBaseSHA string `json:"last_pushed_base_sha,omitempty"`
}

// DefaultTarget is the branch new stacks are rooted on and rebased
// onto by default.
type DefaultTarget struct {
	RemoteName     string
	BranchName     string
	SHA            string
	PushRemoteName string
	LastPushedSHA  string
}

// DefaultTarget returns the repository's configured default target.
func (s *Store) DefaultTarget(ctx context.Context) (DefaultTarget, error) {
	var vb vbState
	if err := s.db.Get(ctx, _vbStateKey, &vb); err != nil {
		return DefaultTarget{}, fmt.Errorf("get vb_state: %w", err)
	}

	return DefaultTarget{
		RemoteName:     vb.DefaultTargetRemoteName,
		BranchName:     vb.DefaultTargetBranchName,
		SHA:            vb.DefaultTargetSHA,
		PushRemoteName: vb.DefaultTargetPushRemoteName,
		LastPushedSHA:  vb.LastPushedBaseSHA,
	}, nil
}

// SetDefaultTargetRequest updates fields of the default target.
// Zero-valued fields leave the corresponding stored field unchanged;
// use [Unset] to clear a field explicitly.
type SetDefaultTargetRequest struct {
	RemoteName     string
	BranchName     string
	SHA            string
	PushRemoteName string
	LastPushedSHA  string
}

// Unset is a sentinel that explicitly clears a string field, since the
// zero value of string already means "leave unchanged" for
// [SetDefaultTargetRequest].
const Unset = "\x00unset\x00"

func applyField(cur *string, next string) {
	switch next {
	case "":
		return
	case Unset:
		*cur = ""
	default:
		*cur = next
	}
}

// SetDefaultTarget updates the repository's default target.
func (s *Store) SetDefaultTarget(ctx context.Context, req SetDefaultTargetRequest, msg string) error {
	var vb vbState
	if err := s.db.Get(ctx, _vbStateKey, &vb); err != nil {
		return fmt.Errorf("get vb_state: %w", err)
	}

	applyField(&vb.DefaultTargetRemoteName, req.RemoteName)
	applyField(&vb.DefaultTargetBranchName, req.BranchName)
	applyField(&vb.DefaultTargetSHA, req.SHA)
	applyField(&vb.DefaultTargetPushRemoteName, req.PushRemoteName)
	applyField(&vb.LastPushedBaseSHA, req.LastPushedSHA)

	if vb.DefaultTargetBranchName == "" {
		return fmt.Errorf("cannot clear default target branch name")
	}

	if msg == "" {
		msg = "update default target"
	}
	if err := s.db.Set(ctx, _vbStateKey, vb, msg); err != nil {
		return fmt.Errorf("set vb_state: %w", err)
	}
	return nil
}
