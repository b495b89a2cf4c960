// Command vbr is a thin CLI exercising the virtual-branching engine
// end to end: enough flag parsing and wiring to drive it manually or
// from testscript-based integration tests, with no forge, TUI, or IPC
// surface attached.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/posener/complete"

	"go.abhg.dev/vbr/internal/komplete"
	"go.abhg.dev/vbr/internal/silog"
)

func main() {
	log := silog.New(os.Stderr, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		<-sigc
		log.Warn("Interrupted. Press Ctrl-C again to exit immediately.")
		cancel()
		signal.Stop(sigc)
	}()

	var cmd rootCmd
	parser, err := kong.New(
		&cmd,
		kong.Name("vbr"),
		kong.Description("vbr manages virtual branches layered over a single Git worktree."),
		kong.Bind(log, &cmd.globalOptions),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.UsageOnError(),
	)
	if err != nil {
		log.Fatalf("build CLI parser: %v", err)
	}

	komplete.Run(parser,
		komplete.WithPredictor("stacks", complete.PredictFunc(predictStacks)),
		komplete.WithPredictor("dirs", complete.PredictFunc(predictDirs)),
	)

	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	kctx.FatalIfErrorf(kctx.Run())
}
