package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pithecene-io/narrator/lode"
	"github.com/pithecene-io/narrator/metrics"
	artifact "github.com/pithecene-io/narrator/report"
	"github.com/pithecene-io/narrator/types"
)

// RunReport is the run summary printed by `narrator play` and written by
// --summary. All fields use json tags matching the documented output.
type RunReport struct {
	RunID      string              `json:"run_id" yaml:"run_id"`
	Name       string              `json:"name" yaml:"name"`
	Outcome    types.OutcomeStatus `json:"outcome" yaml:"outcome"`
	Message    string              `json:"message" yaml:"message"`
	FailedStep string              `json:"failed_step,omitempty" yaml:"failed_step,omitempty"`
	ExitCode   int                 `json:"exit_code" yaml:"exit_code"`
	DurationMs int64               `json:"duration_ms" yaml:"duration_ms"`
	ReportFile string              `json:"report_file,omitempty" yaml:"report_file,omitempty"`
	Version    string              `json:"version" yaml:"version"`

	Steps   *ReportSteps      `json:"steps" yaml:"steps"`
	Metrics *metrics.Snapshot `json:"metrics" yaml:"metrics"`
}

// ReportSteps holds report step counts by status.
type ReportSteps struct {
	Total   int `json:"total" yaml:"total"`
	Passed  int `json:"passed" yaml:"passed"`
	Failed  int `json:"failed" yaml:"failed"`
	Broken  int `json:"broken" yaml:"broken"`
	Skipped int `json:"skipped" yaml:"skipped"`
}

// BuildRunReport composes a RunReport from a RunResult.
// The exitCode is the process exit code that will be returned to the caller.
func BuildRunReport(result *RunResult, exitCode int) *RunReport {
	snap := result.Metrics
	report := &RunReport{
		RunID:      result.RunID,
		Name:       result.Name,
		ExitCode:   exitCode,
		DurationMs: result.Duration.Milliseconds(),
		ReportFile: result.ReportFile,
		Version:    types.Version,
		Steps:      &ReportSteps{},
		Metrics:    &snap,
	}

	if result.Outcome != nil {
		report.Outcome = result.Outcome.Status
		report.Message = result.Outcome.Message
		report.FailedStep = result.Outcome.FailedStep
	}

	if result.Report != nil {
		counts := result.Report.Counts()
		report.Steps = &ReportSteps{
			Total:   result.Report.Len(),
			Passed:  counts[artifact.StatusPassed],
			Failed:  counts[artifact.StatusFailed],
			Broken:  counts[artifact.StatusBroken],
			Skipped: counts[artifact.StatusSkipped],
		}
	}

	return report
}

// RunRecord converts the report to the summary stored in the run dataset.
func (r *RunReport) RunRecord(completedAt time.Time) lode.RunRecord {
	rec := lode.RunRecord{
		RunID:       r.RunID,
		Name:        r.Name,
		Status:      string(r.Outcome),
		ReportFile:  r.ReportFile,
		DurationMs:  r.DurationMs,
		CompletedAt: completedAt,
	}
	if r.Steps != nil {
		rec.Steps = int64(r.Steps.Total)
		rec.Passed = int64(r.Steps.Passed)
		rec.Failed = int64(r.Steps.Failed)
		rec.Broken = int64(r.Steps.Broken)
		rec.Skipped = int64(r.Steps.Skipped)
	}
	if r.Metrics != nil {
		rec.Wraps = r.Metrics.TotalWraps()
		rec.Closes = r.Metrics.TotalCloses()
		rec.Recorded = r.Metrics.Recorded
		rec.Cleared = r.Metrics.Cleared
		rec.Flushed = r.Metrics.Flushed
	}
	return rec
}

// WriteRunReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteRunReport(report *RunReport, path string) error {
	if path == "" {
		return errors.New("summary path must not be empty")
	}

	if path == "-" {
		if err := writeRunReportTo(report, os.Stderr); err != nil {
			return fmt.Errorf("failed to write summary to stderr: %w", err)
		}
		return nil
	}

	data, err := marshalRunReport(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write summary to %s: %w", path, err)
	}
	return nil
}

// writeRunReportTo writes report JSON to any writer.
func writeRunReportTo(report *RunReport, w io.Writer) error {
	data, err := marshalRunReport(report)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func marshalRunReport(report *RunReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary: %w", err)
	}
	return append(data, '\n'), nil
}
