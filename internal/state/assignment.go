package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"

	"go.abhg.dev/vbr/internal/hunk"
	"go.abhg.dev/vbr/internal/spice/state/storage"
)

const _assignmentsDir = "assignments"

// assignmentKey hashes a hunk's (path, header) identity into a single
// opaque path segment: the header's unified-diff rendering contains
// characters ('@', ' ', ',') that aren't safe as a raw storage-key
// segment, so the pair is folded through SHA-256.
func assignmentKey(key hunk.Key) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%s\n%s\n", key.Path, key.Header)
	return path.Join(_assignmentsDir, hex.EncodeToString(h.Sum(nil)))
}

// lockRecord is the persisted shape of a single hunk.Lock.
type lockRecord struct {
	CommitID string `json:"commit_id"`
	StackID  string `json:"stack_id,omitempty"`
	Unknown  bool   `json:"unknown,omitempty"`
}

// assignmentRecord is the persisted shape of assignments(path, hunk_header).
//
// Path and HunkHeader are carried alongside the hash-derived key so the
// record is self-describing: the key itself isn't reversible.
// HunkHeader is the unified-diff rendering kept for readability;
// OldStart..NewLines are what Assignments actually reconstructs the key
// from.
type assignmentRecord struct {
	Path       string `json:"path"`
	HunkHeader string `json:"hunk_header"`

	OldStart int `json:"old_start"`
	OldLines int `json:"old_lines"`
	NewStart int `json:"new_start"`
	NewLines int `json:"new_lines"`

	StackID string       `json:"stack_id,omitempty"`
	Locks   []lockRecord `json:"hunk_locks,omitempty"`
}

func toAssignmentRecord(a hunk.Assignment) assignmentRecord {
	rec := assignmentRecord{
		Path:       a.Path,
		HunkHeader: a.Header.String(),
		OldStart:   a.Header.OldStart,
		OldLines:   a.Header.OldLines,
		NewStart:   a.Header.NewStart,
		NewLines:   a.Header.NewLines,
		StackID:    a.StackID,
	}
	for _, l := range a.HunkLocks {
		rec.Locks = append(rec.Locks, lockRecord{
			CommitID: l.CommitID,
			StackID:  l.Target.StackID,
			Unknown:  l.Target.Unknown,
		})
	}
	return rec
}

func (r assignmentRecord) toAssignment() hunk.Assignment {
	a := hunk.Assignment{
		Path: r.Path,
		Header: hunk.Header{
			OldStart: r.OldStart,
			OldLines: r.OldLines,
			NewStart: r.NewStart,
			NewLines: r.NewLines,
		},
		StackID: r.StackID,
	}
	for _, l := range r.Locks {
		a.HunkLocks = append(a.HunkLocks, hunk.Lock{
			CommitID: l.CommitID,
			Target:   hunk.LockTarget{StackID: l.StackID, Unknown: l.Unknown},
		})
	}
	return a
}

// Assignments returns every recorded worktree-hunk-to-stack assignment.
func (s *Store) Assignments(ctx context.Context) (map[hunk.Key]hunk.Assignment, error) {
	keys, err := s.db.Keys(ctx, _assignmentsDir)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	out := make(map[hunk.Key]hunk.Assignment, len(keys))
	for _, k := range keys {
		var rec assignmentRecord
		if err := s.db.Get(ctx, path.Join(_assignmentsDir, k), &rec); err != nil {
			return nil, fmt.Errorf("get assignment %q: %w", k, err)
		}

		a := rec.toAssignment()
		out[a.Key()] = a
	}
	return out, nil
}

// SetAssignments replaces the entire recorded assignment set with next,
// in a single batched write: keys no longer present are deleted, the
// rest are written, mirroring the full-replace contract of
// [hunk.Store.SetAssignments].
func (s *Store) SetAssignments(ctx context.Context, next map[hunk.Key]hunk.Assignment, msg string) error {
	cur, err := s.Assignments(ctx)
	if err != nil {
		return err
	}

	var sets []storage.SetRequest
	for key, a := range next {
		sets = append(sets, storage.SetRequest{
			Key:   assignmentKey(key),
			Value: toAssignmentRecord(a),
		})
	}

	var dels []string
	for key := range cur {
		if _, ok := next[key]; !ok {
			dels = append(dels, assignmentKey(key))
		}
	}

	if msg == "" {
		msg = "update hunk assignments"
	}
	if err := s.db.Update(ctx, storage.UpdateRequest{Sets: sets, Deletes: dels, Message: msg}); err != nil {
		return fmt.Errorf("set assignments: %w", err)
	}
	return nil
}
