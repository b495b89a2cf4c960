package main

import (
	"go.abhg.dev/vbr/internal/silog"
)

type globalOptions struct {
	Dir string `name:"dir" default:"." help:"Path to the Git repository to operate on" predictor:"dirs"`
}

type rootCmd struct {
	globalOptions

	Verbose bool `short:"v" help:"Enable debug logging"`

	Init   repoInitCmd `cmd:"" name:"init" help:"Initialize vbr state for a repository"`
	Status statusCmd   `cmd:"" name:"status" help:"Show the segment graph rooted at the current HEAD"`

	Stack  stackCmd  `cmd:"" name:"stack" help:"Manage stacks"`
	Target targetCmd `cmd:"" name:"target" help:"View or change the default integration target"`
	Assign assignCmd `cmd:"" name:"assign" help:"View or change worktree-hunk-to-stack assignments"`
	Undo   undoCmd   `cmd:"" name:"undo" help:"Restore the worktree from an oplog snapshot"`

	Version    versionFlag `name:"version" help:"Print version information and quit"`
	VersionCmd versionCmd  `cmd:"" name:"version" help:"Print version information"`

	Completion completionCmd `cmd:"" name:"completion" help:"Generate shell completion scripts"`
}

func (cmd *rootCmd) AfterApply(log *silog.Logger) error {
	if cmd.Verbose {
		log.SetLevel(silog.LevelDebug)
	}
	return nil
}
