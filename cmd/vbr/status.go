package main

import (
	"context"
	"fmt"
	"os"

	"go.abhg.dev/vbr/internal/segment"
	"go.abhg.dev/vbr/internal/silog"
)

type statusCmd struct {
	Head string `arg:"" optional:"" default:"HEAD" help:"Commit to walk from"`
}

func (cmd *statusCmd) Run(ctx context.Context, log *silog.Logger, globals *globalOptions) error {
	repo, err := openRepo(ctx, globals, log)
	if err != nil {
		return err
	}

	store, err := ensureStore(ctx, repo, log)
	if err != nil {
		return err
	}
	target, err := store.DefaultTarget(ctx)
	if err != nil {
		return fmt.Errorf("get default target: %w", err)
	}

	head, err := repo.PeelToCommit(ctx, cmd.Head)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", cmd.Head, err)
	}

	entries := []segment.Entry{
		{TipOID: head.String(), Kind: segment.Workspace},
	}
	if target.BranchName != "" {
		targetRef := target.BranchName
		if target.RemoteName != "" {
			targetRef = target.RemoteName + "/" + target.BranchName
		}
		if targetOID, err := repo.PeelToCommit(ctx, targetRef); err == nil {
			entries = append(entries, segment.Entry{TipOID: targetOID.String(), Kind: segment.Target})
		}
	}

	src := &segment.RepoSource{Repo: repo}
	graph, err := segment.Build(ctx, src, entries, segment.Options{
		Segmentation: segment.FirstParentPriority,
	})
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}

	graph.Dump(os.Stdout)
	return nil
}
