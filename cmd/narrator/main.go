// Package main provides the narrator CLI entrypoint.
//
// Usage:
//
//	narrator <command> [options]
//
// Exit codes for `play`:
//   - 0: every step passed
//   - 1: a step failed
//   - 2: the run could not be played or stored
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/narrator/cli/cmd"
	"github.com/pithecene-io/narrator/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "narrator",
		Usage:          "Narrate scripted work to the console and a report",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.PlayCommand(),
			cmd.InspectCommand(),
			cmd.StatsCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already exited for cli.ExitCoder errors.
		os.Exit(1)
	}
}

// exitErrHandler preserves exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		if msg := exitMessage(exitCoder); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// exitMessage returns the message worth printing for an exit error.
// cli.Exit("", N).Error() returns "exit status N", which is skipped.
func exitMessage(e cli.ExitCoder) string {
	msg := e.Error()
	if msg == fmt.Sprintf("exit status %d", e.ExitCode()) {
		return ""
	}
	return msg
}
