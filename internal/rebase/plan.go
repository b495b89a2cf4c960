package rebase

import (
	"fmt"
	"slices"

	"go.abhg.dev/vbr/internal/git"
	"go.abhg.dev/vbr/internal/vberrors"
)

// ReplacePickWithCommit replaces the pick step targeting commitID with
// a pick of replacementID, keeping its role and message override.
func ReplacePickWithCommit(steps []Step, commitID, replacementID git.Hash) ([]Step, error) {
	i, err := findPick(steps, commitID)
	if err != nil {
		return nil, err
	}

	out := slices.Clone(steps)
	out[i].CommitID = replacementID
	return out, nil
}

// ReplacePickWithMultipleCommits splits the pick step targeting
// commitID into one pick per entry of replacementIDs, in order, each
// inheriting the original step's role (disambiguated by index when
// there is more than one) and message override.
func ReplacePickWithMultipleCommits(steps []Step, commitID git.Hash, replacementIDs []git.Hash) ([]Step, error) {
	i, err := findPick(steps, commitID)
	if err != nil {
		return nil, err
	}

	orig := steps[i]
	replacements := make([]Step, len(replacementIDs))
	for j, id := range replacementIDs {
		r := orig
		r.CommitID = id
		if len(replacementIDs) > 1 {
			r.Role = fmt.Sprintf("%s.%d", orig.Role, j)
		}
		replacements[j] = r
	}

	out := make([]Step, 0, len(steps)+len(replacements)-1)
	out = append(out, steps[:i]...)
	out = append(out, replacements...)
	out = append(out, steps[i+1:]...)
	return out, nil
}

func findPick(steps []Step, commitID git.Hash) (int, error) {
	for i, s := range steps {
		if s.Kind == StepPick && s.CommitID == commitID {
			return i, nil
		}
	}
	return 0, vberrors.New(vberrors.NotFound, "no pick step targets commit %s", commitID)
}
