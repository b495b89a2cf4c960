package state

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
)

const _stacksDir = "stacks"

func stackKey(id string) string {
	return path.Join(_stacksDir, id, "stack")
}

func stackHeadsDir(id string) string {
	return path.Join(_stacksDir, id, "heads")
}

func stackHeadKey(id string, position int) string {
	return path.Join(stackHeadsDir(id), fmt.Sprintf("%04d", position))
}

func stackTargetKey(id string) string {
	return path.Join(_stacksDir, id, "target")
}

// stackRecord is the persisted shape of vb_stacks(id).
type stackRecord struct {
	SourceRefname  string `json:"source_refname,omitempty"`
	UpstreamRemote string `json:"upstream_remote,omitempty"`
	UpstreamBranch string `json:"upstream_branch,omitempty"`
	SortOrder      int    `json:"sort_order"`
	InWorkspace    bool   `json:"in_workspace"`

	// Legacy carries fields inherited from the stacked-PR model this
	// schema superseded (series name, review platform identifiers)
	// that some repositories may still have recorded; new stacks
	// never populate it.
	Legacy map[string]string `json:"legacy,omitempty"`
}

// Stack is a workspace-managed sequence of dependent branches.
type Stack struct {
	ID string

	SourceRefname  string
	UpstreamRemote string
	UpstreamBranch string
	SortOrder      int
	InWorkspace    bool
	Legacy         map[string]string
}

// ErrStackNotExist indicates the referenced stack id is not tracked.
var ErrStackNotExist = errors.New("stack not tracked")

// Stack returns the recorded state of a single stack.
func (s *Store) Stack(ctx context.Context, id string) (*Stack, error) {
	var rec stackRecord
	if err := s.db.Get(ctx, stackKey(id), &rec); err != nil {
		if errors.Is(err, ErrNotExist) {
			return nil, ErrStackNotExist
		}
		return nil, fmt.Errorf("get stack %q: %w", id, err)
	}
	return &Stack{
		ID:             id,
		SourceRefname:  rec.SourceRefname,
		UpstreamRemote: rec.UpstreamRemote,
		UpstreamBranch: rec.UpstreamBranch,
		SortOrder:      rec.SortOrder,
		InWorkspace:    rec.InWorkspace,
		Legacy:         rec.Legacy,
	}, nil
}

// ListStacks returns every tracked stack's id, sorted.
func (s *Store) ListStacks(ctx context.Context) ([]string, error) {
	ids, err := s.db.Keys(ctx, _stacksDir)
	if err != nil {
		return nil, fmt.Errorf("list stacks: %w", err)
	}

	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, k := range ids {
		id, _, _ := cutFirstSegment(k)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func cutFirstSegment(k string) (head, rest string, ok bool) {
	for i := 0; i < len(k); i++ {
		if k[i] == '/' {
			return k[:i], k[i+1:], true
		}
	}
	return k, "", false
}

// PutStackRequest upserts a stack's recorded state.
type PutStackRequest struct {
	ID             string
	SourceRefname  string
	UpstreamRemote string
	UpstreamBranch string
	SortOrder      int
	InWorkspace    bool
}

// PutStack records a stack's state, creating it if it doesn't already
// exist.
func (s *Store) PutStack(ctx context.Context, req PutStackRequest, msg string) error {
	if req.ID == "" {
		return errors.New("stack id is required")
	}

	var legacy map[string]string
	if existing, err := s.Stack(ctx, req.ID); err == nil {
		legacy = existing.Legacy
	} else if !errors.Is(err, ErrStackNotExist) {
		return err
	}

	rec := stackRecord{
		SourceRefname:  req.SourceRefname,
		UpstreamRemote: req.UpstreamRemote,
		UpstreamBranch: req.UpstreamBranch,
		SortOrder:      req.SortOrder,
		InWorkspace:    req.InWorkspace,
		Legacy:         legacy,
	}
	if msg == "" {
		msg = fmt.Sprintf("put stack %s", req.ID)
	}
	if err := s.db.Set(ctx, stackKey(req.ID), rec, msg); err != nil {
		return fmt.Errorf("put stack %q: %w", req.ID, err)
	}
	return nil
}

// DeleteStack removes a stack and every head and target recorded
// under it.
func (s *Store) DeleteStack(ctx context.Context, id string, msg string) error {
	heads, err := s.StackHeads(ctx, id)
	if err != nil {
		return err
	}

	if msg == "" {
		msg = fmt.Sprintf("delete stack %s", id)
	}

	dels := []string{stackKey(id), stackTargetKey(id)}
	for pos := range heads {
		dels = append(dels, stackHeadKey(id, pos))
	}

	if err := s.db.Update(ctx, updateRequest(nil, dels, msg)); err != nil {
		return fmt.Errorf("delete stack %q: %w", id, err)
	}
	return nil
}
