package git

import (
	"context"
	"fmt"
)

// RemoveFilesRequest specifies the parameters for removing files from
// the working tree and the index together.
type RemoveFilesRequest struct {
	// Pathspecs are the paths to remove. Required.
	Pathspecs []string

	// IgnoreUnmatch suppresses the error git-rm raises when a
	// pathspec matches nothing, which happens when the path is
	// already absent from both the index and the working tree.
	IgnoreUnmatch bool
}

// RemoveFiles removes files from both the working tree and the index
// in one step. This wraps 'git rm -f -r -- <pathspec>...'.
func (w *Worktree) RemoveFiles(ctx context.Context, req *RemoveFilesRequest) error {
	if len(req.Pathspecs) == 0 {
		return nil
	}

	args := []string{"rm", "--force", "-r"}
	if req.IgnoreUnmatch {
		args = append(args, "--ignore-unmatch")
	}
	args = append(args, "--")
	args = append(args, req.Pathspecs...)

	if err := w.gitCmd(ctx, args...).Run(w.exec); err != nil {
		return fmt.Errorf("git rm: %w", err)
	}
	return nil
}
