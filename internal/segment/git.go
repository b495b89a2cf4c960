package segment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.abhg.dev/vbr/internal/git"
)

// commitReader is the slice of [git.Repository] that a [RepoSource]
// needs. Declared narrowly so tests can substitute a fake.
type commitReader interface {
	ReadCommit(ctx context.Context, commitish string) (*git.CommitObject, error)
}

// RepoSource adapts a [git.Repository] into a [CommitSource].
type RepoSource struct {
	Repo commitReader
}

var _ CommitSource = (*RepoSource)(nil)

// ParentOIDs implements [CommitSource].
func (s *RepoSource) ParentOIDs(ctx context.Context, oid string) ([]string, error) {
	c, err := s.Repo.ReadCommit(ctx, oid)
	if err != nil {
		if isMissingObject(err) {
			return nil, fmt.Errorf("%s: %w", oid, ErrMissingObject)
		}
		return nil, err
	}

	parents := make([]string, len(c.Parents))
	for i, p := range c.Parents {
		parents[i] = p.String()
	}
	return parents, nil
}

// isMissingObject reports whether err looks like Git's "object does
// not exist" complaint, as produced by a shallow clone's boundary.
func isMissingObject(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "bad object") ||
		strings.Contains(msg, "unknown revision") ||
		strings.Contains(msg, "missing object") ||
		errors.Is(err, ErrMissingObject)
}
