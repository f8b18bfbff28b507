package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/narrator/cli/render"
	"github.com/pithecene-io/narrator/cli/tui"
	artifact "github.com/pithecene-io/narrator/report"
	"github.com/pithecene-io/narrator/runtime"
)

// InspectCommand returns the inspect command.
// Inspect decodes a report artifact (json, yaml or msgpack, chosen by
// extension) and shows its step tree.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Inspect a report artifact",
		ArgsUsage: "<report-file>",
		Flags:     TUIReadOnlyFlags(),
		Action:    inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("report file required", runtime.ExitCodeError)
	}

	rep, err := artifact.ReadFile(c.Args().First())
	if err != nil {
		return cli.Exit(fmt.Sprintf("cannot read report: %v", err), runtime.ExitCodeError)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewInspectReport, rep)
	}

	return r.RenderReport(rep)
}
