package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/narrator/adapter"
	reportadapter "github.com/pithecene-io/narrator/adapter/report"
	"github.com/pithecene-io/narrator/indent"
	"github.com/pithecene-io/narrator/lode"
	"github.com/pithecene-io/narrator/log"
	"github.com/pithecene-io/narrator/metrics"
	"github.com/pithecene-io/narrator/narration"
	artifact "github.com/pithecene-io/narrator/report"
	"github.com/pithecene-io/narrator/types"
)

// RunConfig configures a single run.
type RunConfig struct {
	// RunID identifies the run in logs, metrics and storage partitions.
	RunID string
	// Script is the story to play.
	Script *Script
	// Adapters are registered in order, ahead of Report.
	Adapters []adapter.Adapter
	// Report, if set, is registered last and builds the report artifact.
	Report *reportadapter.Adapter
	// FileWriter publishes the report artifact.
	// If nil, the report is built but not stored.
	FileWriter lode.FileWriter
	// RunWriter records a run summary after the report is published.
	// If nil, no summary is recorded.
	RunWriter lode.RunWriter
	// Tracker is shared with adapters that render indentation.
	// If nil, the Narrator creates its own.
	Tracker *indent.Tracker
	// Disabled plays the script with narration off the air.
	Disabled bool
	// Collector is the metrics collector for this run.
	// If nil, one is created with the run ID.
	Collector *metrics.Collector
	// Logger receives run lifecycle logs. If nil, logs are discarded.
	Logger *log.Logger
}

// RunResult represents the result of a run.
type RunResult struct {
	// RunID is the run identity.
	RunID string
	// Name is the script's display name.
	Name string
	// Outcome is the run outcome.
	Outcome *types.RunOutcome
	// Duration is the total play duration.
	Duration time.Duration
	// Metrics is the narration metrics snapshot taken after play.
	Metrics metrics.Snapshot
	// Report is the report artifact (nil without a report adapter).
	Report *artifact.Report
	// ReportFile is the published artifact filename (empty if unpublished).
	ReportFile string
	// CompletedAt is when play finished.
	CompletedAt time.Time
}

// RunOrchestrator orchestrates a single run.
type RunOrchestrator struct {
	config    *RunConfig
	logger    *log.Logger
	startTime time.Time
}

// NewRunOrchestrator creates a new run orchestrator.
// Returns error if the run ID is missing or the script is invalid.
func NewRunOrchestrator(config *RunConfig) (*RunOrchestrator, error) {
	if config.RunID == "" {
		return nil, errors.New("run ID is required")
	}
	if config.Script == nil {
		return nil, ErrEmptyScript
	}
	if err := config.Script.Validate(); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}

	logger := config.Logger
	if logger == nil {
		logger = log.Nop()
	}

	return &RunOrchestrator{
		config: config,
		logger: logger,
	}, nil
}

// Execute plays the script end-to-end.
//
// Execution flow:
//  1. Register adapters on a fresh Narrator
//  2. Play the script
//  3. Determine outcome
//  4. Publish the report artifact and record the run summary
//
// A step failure is reported through the result's outcome, not the error.
// The error is non-nil only when publishing or recording fails; the result
// is returned alongside it with an error outcome.
func (r *RunOrchestrator) Execute(ctx context.Context) (*RunResult, error) {
	r.startTime = time.Now()
	script := r.config.Script

	adapters := append([]adapter.Adapter(nil), r.config.Adapters...)
	if r.config.Report != nil {
		adapters = append(adapters, r.config.Report)
	}

	collector := r.config.Collector
	if collector == nil {
		collector = metrics.NewCollector(r.config.RunID, adapterNames(adapters)...)
	}

	n := narration.New(narration.Config{
		Adapters: adapters,
		Tracker:  r.config.Tracker,
		Logger:   r.logger,
		Metrics:  collector,
		Disabled: r.config.Disabled,
	})

	r.logger.Info("playing script", map[string]any{
		"script":   script.DisplayName(),
		"adapters": len(adapters),
		"on_air":   n.OnAir(),
	})

	playErr := NewPlayer(n, r.logger).Play(ctx, script)
	outcome := DetermineOutcome(playErr)
	result := r.buildResult(outcome, collector)

	r.logger.Info("script finished", map[string]any{
		"outcome":     outcome.Status,
		"failed_step": outcome.FailedStep,
		"duration_ms": result.Duration.Milliseconds(),
	})

	// Storage runs after a cancelled play too.
	storeCtx := context.WithoutCancel(ctx)
	if err := r.publish(storeCtx, result); err != nil {
		result.Outcome = &types.RunOutcome{
			Status:     types.OutcomeError,
			Message:    err.Error(),
			FailedStep: outcome.FailedStep,
		}
		r.logger.Error("failed to store run", map[string]any{"error": err.Error()})
		return result, err
	}

	return result, nil
}

func (r *RunOrchestrator) publish(ctx context.Context, result *RunResult) error {
	if r.config.Report != nil && r.config.FileWriter != nil {
		filename, err := r.config.Report.Publish(ctx, r.config.FileWriter)
		if err != nil {
			return err
		}
		result.ReportFile = filename
		r.logger.Debug("published report", map[string]any{"file": filename})
	}

	if r.config.RunWriter != nil {
		rec := BuildRunReport(result, ExitCode(result.Outcome)).RunRecord(result.CompletedAt)
		if err := r.config.RunWriter.WriteRun(ctx, rec); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}
	return nil
}

// buildResult constructs the final run result.
func (r *RunOrchestrator) buildResult(outcome *types.RunOutcome, collector *metrics.Collector) *RunResult {
	completed := time.Now()
	result := &RunResult{
		RunID:       r.config.RunID,
		Name:        r.config.Script.DisplayName(),
		Outcome:     outcome,
		Duration:    completed.Sub(r.startTime),
		Metrics:     collector.Snapshot(),
		CompletedAt: completed,
	}
	if r.config.Report != nil {
		result.Report = r.config.Report.Report()
		if result.Report.Name == "" {
			result.Report.Name = result.Name
		}
	}
	return result
}

func adapterNames(adapters []adapter.Adapter) []string {
	names := make([]string, len(adapters))
	for i, a := range adapters {
		names[i] = fmt.Sprintf("%T", a)
	}
	return names
}
