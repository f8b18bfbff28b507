package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/narrator/adapter"
	"github.com/pithecene-io/narrator/adapter/console"
	reportadapter "github.com/pithecene-io/narrator/adapter/report"
	"github.com/pithecene-io/narrator/cli/config"
	"github.com/pithecene-io/narrator/cli/render"
	"github.com/pithecene-io/narrator/indent"
	"github.com/pithecene-io/narrator/iox"
	"github.com/pithecene-io/narrator/lode"
	"github.com/pithecene-io/narrator/log"
	artifact "github.com/pithecene-io/narrator/report"
	"github.com/pithecene-io/narrator/runtime"
)

// PlayCommand returns the play command.
// This is the only command that runs narrated work.
func PlayCommand() *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play a narrated script and publish its report",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "script",
				Aliases:  []string{"s"},
				Usage:    "Path to script file (YAML)",
				Required: true,
			},
			ConfigFlag,
			&cli.StringFlag{
				Name:  "run-id",
				Usage: "Run ID (default: random UUID)",
			},
			&cli.StringFlag{
				Name:  "summary",
				Usage: "Also write the run summary as JSON to this path (\"-\" for stderr)",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress the run summary on stdout",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log run lifecycle and buffering alongside the narration",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Minimum log level: debug, info, warn, error",
				Value: "info",
			},
			&cli.BoolFlag{
				Name:  "off-air",
				Usage: "Play with narration off the air (work still runs)",
			},
			&cli.BoolFlag{
				Name:  "no-report",
				Usage: "Do not build or publish a report",
			},
			&cli.StringFlag{
				Name:  "report-format",
				Usage: "Report artifact format: json, yaml, msgpack",
			},
			FormatFlag,
			NoColorFlag,
		}, append(StorageFlags(), NotifyFlags()...)...),
		Action: playAction,
	}
}

func playAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeError)
	}
	applyPlayFlags(c, cfg)
	if err := applyNotifyFlags(c, &cfg.Notify); err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeError)
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeError)
	}
	notifier, err := buildNotifier(cfg.Notify)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeError)
	}
	if notifier != nil {
		defer iox.DiscardClose(notifier)
	}

	script, err := runtime.LoadScript(c.String("script"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid script: %v", err), runtime.ExitCodeError)
	}

	runID := c.String("run-id")
	if runID == "" {
		runID = uuid.NewString()
	}
	startTime := time.Now()

	logger, err := log.NewLogger(log.Options{
		RunID:  runID,
		Format: log.Format(cfg.Console.Format),
		Level:  c.String("log-level"),
	})
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeError)
	}
	defer iox.DiscardErr(logger.Sync)
	sugar := logger.Sugar().With("command", "play")
	sugar.Debugf("playing %q from %s", script.DisplayName(), c.String("script"))

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCfg, writer, err := buildRunConfig(ctx, cfg, script, runID, startTime, logger)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeError)
	}
	if writer != nil {
		defer iox.DiscardClose(writer)
	}
	runCfg.Disabled = !cfg.Enabled
	if c.Bool("verbose") {
		runCfg.Logger = logger
	}
	if cfg.Console.Enabled {
		color := cfg.Console.Color && !c.Bool("no-color") && isStderrTTY()
		runCfg.Adapters = append(runCfg.Adapters, console.New(logger, runCfg.Tracker, console.Options{Color: color}))
	}

	orchestrator, err := runtime.NewRunOrchestrator(runCfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create orchestrator: %v", err), runtime.ExitCodeError)
	}

	result, execErr := orchestrator.Execute(ctx)
	code := runtime.ExitCode(result.Outcome)
	summary := runtime.BuildRunReport(result, code)
	sugar.Debugf("run %s %s in %dms (exit %d)", runID, summary.Outcome, summary.DurationMs, code)

	if path := c.String("summary"); path != "" {
		if err := runtime.WriteRunReport(summary, path); err != nil {
			return cli.Exit(err.Error(), runtime.ExitCodeError)
		}
	}

	if !c.Bool("quiet") {
		r, err := render.NewRenderer(c)
		if err != nil {
			return cli.Exit(err.Error(), runtime.ExitCodeError)
		}
		if err := r.Render(summary); err != nil {
			return cli.Exit(err.Error(), runtime.ExitCodeError)
		}
	}

	if notifier != nil {
		var storagePath string
		if writer != nil && summary.ReportFile != "" {
			storagePath = writer.FilePath(summary.ReportFile)
		}
		publishRunCompleted(context.WithoutCancel(ctx), notifier, summary, storagePath, logger)
	}

	if execErr != nil {
		return cli.Exit(fmt.Sprintf("failed to store run: %v", execErr), code)
	}
	return cli.Exit("", code)
}

// applyPlayFlags applies play-only flag overrides to the loaded config.
func applyPlayFlags(c *cli.Context, cfg *config.Config) {
	if c.Bool("off-air") {
		cfg.Enabled = false
	}
	if c.Bool("no-report") {
		cfg.Report.Enabled = false
	}
	if c.IsSet("report-format") {
		cfg.Report.Format = c.String("report-format")
	}
}

// buildRunConfig assembles the run from config: tracker, report adapter and
// Lode writer. The returned writer is nil when reports are disabled.
func buildRunConfig(
	ctx context.Context,
	cfg *config.Config,
	script *runtime.Script,
	runID string,
	startTime time.Time,
	logger *log.Logger,
) (*runtime.RunConfig, *lode.LodeWriter, error) {
	runCfg := &runtime.RunConfig{
		RunID:    runID,
		Script:   script,
		Adapters: []adapter.Adapter{},
		Tracker:  indent.NewTracker(cfg.Indent.Tracker()),
	}

	if !cfg.Report.Enabled {
		return runCfg, nil, nil
	}

	format, err := artifact.ParseFormat(cfg.Report.Format)
	if err != nil {
		return nil, nil, err
	}
	runCfg.Report = reportadapter.New(script.DisplayName(), reportadapter.Options{Format: format})

	factory, err := buildStoreFactory(ctx, cfg.Report, true)
	if err != nil {
		return nil, nil, err
	}
	writer, err := lode.NewLodeWriterWithFactory(lode.Config{
		RunID: runID,
		Day:   lode.DeriveDay(startTime),
	}, factory)
	if err != nil {
		return nil, nil, err
	}
	runCfg.FileWriter = writer
	runCfg.RunWriter = writer

	logger.Debug("report storage ready", map[string]any{
		"backend": cfg.Report.Backend,
		"path":    cfg.Report.Path,
		"format":  string(format),
	})
	return runCfg, writer, nil
}
