package state

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.abhg.dev/vbr/internal/spice/state/storage"
)

// stackHeadRecord is the persisted shape of vb_stack_heads(stack_id, position).
type stackHeadRecord struct {
	Name     string `json:"name"`
	HeadSHA  string `json:"head_sha"`
	PRNumber int    `json:"pr_number,omitempty"`
	Archived bool   `json:"archived,omitempty"`
	ReviewID string `json:"review_id,omitempty"`
}

// StackHead is one named branch within a stack, at the given position
// (0 is the branch closest to the stack's target).
type StackHead struct {
	Position int
	Name     string
	HeadSHA  string
	PRNumber int
	Archived bool
	ReviewID string
}

// StackHeads returns a stack's branches, keyed by position, in no
// particular order.
func (s *Store) StackHeads(ctx context.Context, stackID string) (map[int]StackHead, error) {
	keys, err := s.db.Keys(ctx, stackHeadsDir(stackID))
	if err != nil {
		return nil, fmt.Errorf("list heads for stack %q: %w", stackID, err)
	}

	out := make(map[int]StackHead, len(keys))
	for _, k := range keys {
		pos, err := strconv.Atoi(strings.TrimLeft(k, "/"))
		if err != nil {
			return nil, fmt.Errorf("stack %q: invalid head position %q: %w", stackID, k, err)
		}

		var rec stackHeadRecord
		if err := s.db.Get(ctx, stackHeadKey(stackID, pos), &rec); err != nil {
			return nil, fmt.Errorf("get head %d for stack %q: %w", pos, stackID, err)
		}
		out[pos] = StackHead{
			Position: pos,
			Name:     rec.Name,
			HeadSHA:  rec.HeadSHA,
			PRNumber: rec.PRNumber,
			Archived: rec.Archived,
			ReviewID: rec.ReviewID,
		}
	}
	return out, nil
}

// OrderedStackHeads returns a stack's branches sorted by position,
// from the one closest to the stack's target to the one furthest from
// it.
func (s *Store) OrderedStackHeads(ctx context.Context, stackID string) ([]StackHead, error) {
	heads, err := s.StackHeads(ctx, stackID)
	if err != nil {
		return nil, err
	}

	out := make([]StackHead, 0, len(heads))
	for _, h := range heads {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// PutStackHeadRequest upserts a single stack head.
type PutStackHeadRequest struct {
	StackID  string
	Position int
	Name     string
	HeadSHA  string
	PRNumber int
	Archived bool
	ReviewID string
}

// PutStackHead records a stack head's state, creating it if it
// doesn't already exist.
func (s *Store) PutStackHead(ctx context.Context, req PutStackHeadRequest, msg string) error {
	if req.StackID == "" {
		return fmt.Errorf("stack id is required")
	}
	if req.Name == "" {
		return fmt.Errorf("branch name is required")
	}

	rec := stackHeadRecord{
		Name:     req.Name,
		HeadSHA:  req.HeadSHA,
		PRNumber: req.PRNumber,
		Archived: req.Archived,
		ReviewID: req.ReviewID,
	}
	if msg == "" {
		msg = fmt.Sprintf("put stack %s head %d", req.StackID, req.Position)
	}
	if err := s.db.Set(ctx, stackHeadKey(req.StackID, req.Position), rec, msg); err != nil {
		return fmt.Errorf("put stack %q head %d: %w", req.StackID, req.Position, err)
	}
	return nil
}

// DeleteStackHead removes a single stack head.
func (s *Store) DeleteStackHead(ctx context.Context, stackID string, position int, msg string) error {
	if msg == "" {
		msg = fmt.Sprintf("delete stack %s head %d", stackID, position)
	}
	if err := s.db.Delete(ctx, stackHeadKey(stackID, position), msg); err != nil {
		return fmt.Errorf("delete stack %q head %d: %w", stackID, position, err)
	}
	return nil
}

func updateRequest(sets []storage.SetRequest, dels []string, msg string) storage.UpdateRequest {
	return storage.UpdateRequest{Sets: sets, Deletes: dels, Message: msg}
}
