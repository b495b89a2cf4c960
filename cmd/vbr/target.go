package main

import (
	"context"
	"fmt"

	"go.abhg.dev/vbr/internal/silog"
	"go.abhg.dev/vbr/internal/state"
)

type targetCmd struct {
	Show targetShowCmd `cmd:"" name:"show" default:"1" help:"Print the configured default target"`
	Set  targetSetCmd  `cmd:"" name:"set" help:"Change the default target"`
}

type targetShowCmd struct{}

func (cmd *targetShowCmd) Run(ctx context.Context, log *silog.Logger, globals *globalOptions) error {
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

	if target.RemoteName != "" {
		fmt.Printf("%s/%s\n", target.RemoteName, target.BranchName)
	} else {
		fmt.Println(target.BranchName)
	}
	if target.SHA != "" {
		fmt.Printf("  at %s\n", target.SHA)
	}
	return nil
}

type targetSetCmd struct {
	Branch          string `arg:"" help:"Name of the new default target branch"`
	Remote          string `help:"Remote the target branch lives on"`
	PushRemote      string `name:"push-remote" help:"Remote to push to, if different from --remote"`
	ClearPushRemote bool   `name:"clear-push-remote" help:"Clear a previously set push remote"`
}

func (cmd *targetSetCmd) Run(ctx context.Context, log *silog.Logger, globals *globalOptions) error {
	repo, err := openRepo(ctx, globals, log)
	if err != nil {
		return err
	}
	store, err := ensureStore(ctx, repo, log)
	if err != nil {
		return err
	}

	var sha string
	if commit, err := repo.PeelToCommit(ctx, cmd.Branch); err == nil {
		sha = commit.String()
	}

	req := state.SetDefaultTargetRequest{
		RemoteName: cmd.Remote,
		BranchName: cmd.Branch,
		SHA:        sha,
	}
	if cmd.ClearPushRemote {
		req.PushRemoteName = state.Unset
	} else if cmd.PushRemote != "" {
		req.PushRemoteName = cmd.PushRemote
	}

	if err := store.SetDefaultTarget(ctx, req, fmt.Sprintf("set default target to %s", cmd.Branch)); err != nil {
		return fmt.Errorf("set default target: %w", err)
	}

	log.Info("Updated default target", "branch", cmd.Branch)
	return nil
}
