package main

import (
	"context"
	"fmt"

	"go.abhg.dev/vbr/internal/silog"
	"go.abhg.dev/vbr/internal/state"
)

type repoInitCmd struct {
	Target string `placeholder:"BRANCH" help:"Name of the default integration target branch"`
	Remote string `placeholder:"NAME" help:"Name of the remote the target branch lives on"`

	Reset bool `help:"Reset the store if it's already initialized"`
}

func (cmd *repoInitCmd) Run(ctx context.Context, log *silog.Logger, globals *globalOptions) error {
	repo, err := openRepo(ctx, globals, log)
	if err != nil {
		return err
	}

	if cmd.Target == "" {
		branch, err := repo.DefaultBranch(ctx, cmd.Remote)
		if err != nil || branch == "" {
			branch = "main"
		}
		cmd.Target = branch
	}

	sha, err := repo.PeelToCommit(ctx, cmd.Target)
	var shaStr string
	if err == nil {
		shaStr = sha.String()
	}

	db := openDB(repo, log)
	_, err = state.Init(ctx, state.InitRequest{
		DB:                      db,
		DefaultTargetRemoteName: cmd.Remote,
		DefaultTargetBranchName: cmd.Target,
		DefaultTargetSHA:        shaStr,
		Reset:                   cmd.Reset,
		Log:                     log,
	})
	if err != nil {
		return fmt.Errorf("initialize state: %w", err)
	}

	log.Info("Initialized vbr state", "target", cmd.Target)
	return nil
}
