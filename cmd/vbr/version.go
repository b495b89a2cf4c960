package main

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/alecthomas/kong"
)

var _version = "dev"

// versionFlag prints version information and exits, without running
// any other command.
type versionFlag bool

func (versionFlag) BeforeReset(app *kong.Kong) error {
	report := _generateBuildReport()
	if report != "" {
		fmt.Fprintf(app.Stdout, "vbr %s (%s)\n", _version, report)
	} else {
		fmt.Fprintf(app.Stdout, "vbr %s\n", _version)
	}
	app.Exit(0)
	return nil
}

// versionCmd is the explicit 'vbr version' subcommand, for scripts
// that would rather not rely on a bare flag short-circuiting parsing.
type versionCmd struct {
	Short bool `help:"Print only the version number"`
}

func (cmd *versionCmd) Run(k *kong.Kong) error {
	if cmd.Short {
		fmt.Fprintln(k.Stdout, _version)
		return nil
	}
	fmt.Fprintf(k.Stdout, "vbr %s\n", _version)
	return nil
}

var _debugReadBuildInfo = debug.ReadBuildInfo

func _generateBuildReport() string {
	info, ok := _debugReadBuildInfo()
	if !ok {
		return ""
	}

	var revision, buildTime string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.time":
			buildTime = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}

	if revision == "" && buildTime == "" {
		return ""
	}

	if dirty {
		revision += "-dirty"
	}

	return strings.TrimSpace(revision + " " + buildTime)
}
