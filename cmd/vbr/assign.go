package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"go.abhg.dev/vbr/internal/hunk"
	"go.abhg.dev/vbr/internal/silog"
	"go.abhg.dev/vbr/internal/state"
)

type assignCmd struct {
	List assignListCmd `cmd:"" name:"list" aliases:"ls" help:"List recorded hunk assignments"`
	Set  assignSetCmd  `cmd:"" name:"set" help:"Assign a hunk to a stack"`
	Drop assignDropCmd `cmd:"" name:"drop" help:"Remove a hunk's recorded assignment"`
}

func hunkKeyFromFlags(path string, oldStart, oldLines, newStart, newLines int) hunk.Key {
	return hunk.Key{
		Path: path,
		Header: hunk.Header{
			OldStart: oldStart,
			OldLines: oldLines,
			NewStart: newStart,
			NewLines: newLines,
		},
	}
}

type hunkLocator struct {
	Path     string `arg:"" help:"Path of the file the hunk belongs to"`
	OldStart int    `name:"old-start" help:"Hunk's old-side starting line"`
	OldLines int    `name:"old-lines" help:"Hunk's old-side line count"`
	NewStart int    `name:"new-start" help:"Hunk's new-side starting line"`
	NewLines int    `name:"new-lines" help:"Hunk's new-side line count"`
}

func (h hunkLocator) key() hunk.Key {
	return hunkKeyFromFlags(h.Path, h.OldStart, h.OldLines, h.NewStart, h.NewLines)
}

type assignListCmd struct{}

func (cmd *assignListCmd) Run(ctx context.Context, log *silog.Logger, globals *globalOptions) error {
	repo, err := openRepo(ctx, globals, log)
	if err != nil {
		return err
	}
	store, err := ensureStore(ctx, repo, log)
	if err != nil {
		return err
	}

	assignments, err := state.NewHunkStore(ctx, store).Assignments()
	if err != nil {
		return fmt.Errorf("list assignments: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "PATH\tHUNK\tSTACK")
	for _, a := range assignments {
		stackID := a.StackID
		if stackID == "" {
			stackID = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Path, a.Header.String(), stackID)
	}
	return nil
}

type assignSetCmd struct {
	hunkLocator
	Stack string `arg:"" help:"Stack to assign the hunk to" predictor:"stacks"`
}

func (cmd *assignSetCmd) Run(ctx context.Context, log *silog.Logger, globals *globalOptions) error {
	repo, err := openRepo(ctx, globals, log)
	if err != nil {
		return err
	}
	store, err := ensureStore(ctx, repo, log)
	if err != nil {
		return err
	}

	hs := state.NewHunkStore(ctx, store)
	assignments, err := hs.Assignments()
	if err != nil {
		return fmt.Errorf("load assignments: %w", err)
	}

	key := cmd.hunkLocator.key()
	a := assignments[key]
	a.Path = key.Path
	a.Header = key.Header
	a.StackID = cmd.Stack
	assignments[key] = a

	if err := hs.SetAssignments(assignments); err != nil {
		return fmt.Errorf("set assignment: %w", err)
	}

	log.Info("Assigned hunk", "path", key.Path, "stack", cmd.Stack)
	return nil
}

type assignDropCmd struct {
	hunkLocator
}

func (cmd *assignDropCmd) Run(ctx context.Context, log *silog.Logger, globals *globalOptions) error {
	repo, err := openRepo(ctx, globals, log)
	if err != nil {
		return err
	}
	store, err := ensureStore(ctx, repo, log)
	if err != nil {
		return err
	}

	hs := state.NewHunkStore(ctx, store)
	assignments, err := hs.Assignments()
	if err != nil {
		return fmt.Errorf("load assignments: %w", err)
	}

	delete(assignments, cmd.hunkLocator.key())

	if err := hs.SetAssignments(assignments); err != nil {
		return fmt.Errorf("drop assignment: %w", err)
	}

	log.Info("Dropped assignment", "path", cmd.Path)
	return nil
}
