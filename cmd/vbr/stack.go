package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"go.abhg.dev/vbr/internal/random"
	"go.abhg.dev/vbr/internal/silog"
	"go.abhg.dev/vbr/internal/state"
)

type stackCmd struct {
	List   stackListCmd   `cmd:"" name:"list" aliases:"ls" help:"List tracked stacks"`
	Create stackCreateCmd `cmd:"" name:"create" help:"Track a new stack"`
	Delete stackDeleteCmd `cmd:"" name:"delete" aliases:"rm" help:"Stop tracking a stack"`
}

type stackListCmd struct{}

func (cmd *stackListCmd) Run(ctx context.Context, log *silog.Logger, globals *globalOptions) error {
	repo, err := openRepo(ctx, globals, log)
	if err != nil {
		return err
	}
	store, err := ensureStore(ctx, repo, log)
	if err != nil {
		return err
	}

	ids, err := store.ListStacks(ctx)
	if err != nil {
		return fmt.Errorf("list stacks: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "ID\tSOURCE\tUPSTREAM\tIN WORKSPACE")
	for _, id := range ids {
		s, err := store.Stack(ctx, id)
		if err != nil {
			return fmt.Errorf("get stack %q: %w", id, err)
		}
		upstream := s.UpstreamBranch
		if s.UpstreamRemote != "" {
			upstream = s.UpstreamRemote + "/" + upstream
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%v\n", s.ID, s.SourceRefname, upstream, s.InWorkspace)
	}
	return nil
}

type stackCreateCmd struct {
	ID             string `arg:"" optional:"" help:"Stack identifier (random if omitted)"`
	SourceRefname  string `help:"Ref the stack was created from"`
	UpstreamRemote string `help:"Remote to push this stack's branches to"`
	UpstreamBranch string `help:"Upstream branch name for this stack"`
	SortOrder      int    `help:"Position among sibling stacks"`
	InWorkspace    bool   `help:"Whether this stack is currently materialized in the workspace"`
}

func (cmd *stackCreateCmd) Run(ctx context.Context, log *silog.Logger, globals *globalOptions) error {
	repo, err := openRepo(ctx, globals, log)
	if err != nil {
		return err
	}
	store, err := ensureStore(ctx, repo, log)
	if err != nil {
		return err
	}

	if cmd.ID == "" {
		cmd.ID = "stack-" + random.Alnum(8)
	}

	if err := store.PutStack(ctx, state.PutStackRequest{
		ID:             cmd.ID,
		SourceRefname:  cmd.SourceRefname,
		UpstreamRemote: cmd.UpstreamRemote,
		UpstreamBranch: cmd.UpstreamBranch,
		SortOrder:      cmd.SortOrder,
		InWorkspace:    cmd.InWorkspace,
	}, fmt.Sprintf("create stack %s", cmd.ID)); err != nil {
		return fmt.Errorf("create stack: %w", err)
	}

	log.Info("Created stack", "id", cmd.ID)
	return nil
}

type stackDeleteCmd struct {
	ID string `arg:"" help:"Stack identifier" predictor:"stacks"`
}

func (cmd *stackDeleteCmd) Run(ctx context.Context, log *silog.Logger, globals *globalOptions) error {
	repo, err := openRepo(ctx, globals, log)
	if err != nil {
		return err
	}
	store, err := ensureStore(ctx, repo, log)
	if err != nil {
		return err
	}

	if err := store.DeleteStack(ctx, cmd.ID, fmt.Sprintf("delete stack %s", cmd.ID)); err != nil {
		return fmt.Errorf("delete stack: %w", err)
	}

	log.Info("Deleted stack", "id", cmd.ID)
	return nil
}
