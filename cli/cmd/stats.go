package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/narrator/cli/render"
	"github.com/pithecene-io/narrator/cli/tui"
	"github.com/pithecene-io/narrator/lode"
	"github.com/pithecene-io/narrator/runtime"
)

// StatsCommand returns the stats command.
// Stats reads the latest run summary recorded in the run dataset.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show the latest recorded run summary",
		Flags: append(append(TUIReadOnlyFlags(),
			ConfigFlag,
			&cli.StringFlag{Name: "run-id", Usage: "Read the summary of a specific run ID"},
		), StorageFlags()...),
		Action: statsAction,
	}
}

func statsAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeError)
	}

	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()

	factory, err := buildStoreFactory(ctx, cfg.Report, false)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to initialize storage reader: %v", err), runtime.ExitCodeError)
	}
	ds, err := lode.NewRunDataset(factory)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to initialize storage reader: %v", err), runtime.ExitCodeError)
	}

	rec, err := lode.QueryLatestRun(ctx, ds, c.String("run-id"))
	if errors.Is(err, lode.ErrNoRunsFound) {
		return cli.Exit("no runs recorded", runtime.ExitCodeFailed)
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to read run summary: %v", err), runtime.ExitCodeError)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewStatsRun, &rec)
	}

	return r.Render(rec)
}
