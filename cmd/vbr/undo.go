package main

import (
	"context"
	"fmt"

	"go.abhg.dev/vbr/internal/checkout"
	"go.abhg.dev/vbr/internal/git"
	"go.abhg.dev/vbr/internal/oplog"
	"go.abhg.dev/vbr/internal/silog"
)

type undoCmd struct {
	Snapshot string `arg:"" optional:"" help:"Snapshot commit to restore (defaults to the latest one)"`
	Force    bool   `help:"Overwrite paths with conflicting uncommitted changes"`
}

func (cmd *undoCmd) Run(ctx context.Context, log *silog.Logger, globals *globalOptions) error {
	repo, err := openRepo(ctx, globals, log)
	if err != nil {
		return err
	}

	oplogRepo := oplog.GitRepo{Repo: repo}

	snapshot := git.Hash(cmd.Snapshot)
	if cmd.Snapshot == "" {
		head, ok, err := oplog.Head(ctx, oplogRepo)
		if err != nil {
			return fmt.Errorf("read oplog head: %w", err)
		}
		if !ok {
			return fmt.Errorf("no snapshots recorded yet")
		}
		snapshot = head
	}

	fromTree, err := repo.PeelToTree(ctx, "HEAD")
	if err != nil {
		return fmt.Errorf("resolve current tree: %w", err)
	}

	wt, err := repo.OpenWorktree(ctx, repo.RootDir())
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}

	result, entries, err := oplog.Restore(ctx, oplogRepo, checkout.GitRepo{WT: wt}, fromTree, snapshot, checkout.Options{
		AllowConflicts: cmd.Force,
	})
	if err != nil {
		return err
	}

	log.Info("Restored worktree from snapshot",
		"snapshot", snapshot.Short(),
		"added_or_updated", result.NumAddedOrUpdatedFiles,
		"deleted", result.NumDeletedFiles,
	)
	if entries.IndexTree != "" || entries.MetadataTree != "" {
		log.Warn("Snapshot also recorded index and metadata state that was not replayed")
	}
	return nil
}
