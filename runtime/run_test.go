package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pithecene-io/narrator/adapter"
	reportadapter "github.com/pithecene-io/narrator/adapter/report"
	"github.com/pithecene-io/narrator/lode"
	artifact "github.com/pithecene-io/narrator/report"
	"github.com/pithecene-io/narrator/types"
)

func newTestOrchestrator(t *testing.T, src string, mutate func(*RunConfig)) (*RunOrchestrator, *lode.StubFileWriter, *adapter.Journal) {
	t.Helper()
	j := &adapter.Journal{}
	stub := lode.NewStubFileWriter()
	cfg := &RunConfig{
		RunID:      "run-001",
		Script:     mustParse(t, src),
		Adapters:   []adapter.Adapter{adapter.NewStubAdapter("a", j)},
		Report:     reportadapter.New("story", reportadapter.Options{}),
		FileWriter: stub,
		RunWriter:  stub,
	}
	if mutate != nil {
		mutate(cfg)
	}
	r, err := NewRunOrchestrator(cfg)
	if err != nil {
		t.Fatalf("NewRunOrchestrator() error = %v", err)
	}
	return r, stub, j
}

func TestExecute_Passed(t *testing.T) {
	r, stub, j := newTestOrchestrator(t, `
act: Opening
steps:
  - beat: one
  - beat: two
    steps:
      - aside: quietly
`, nil)

	result, err := r.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if result.Outcome.Status != types.OutcomePassed {
		t.Errorf("Outcome = %q, want passed", result.Outcome.Status)
	}
	if result.RunID != "run-001" || result.Name != "Opening" {
		t.Errorf("identity = %q/%q", result.RunID, result.Name)
	}
	if result.Report == nil || result.Report.Status != artifact.StatusPassed {
		t.Fatalf("Report = %+v, want passed report", result.Report)
	}
	if result.Report.Labels.Epic != "Opening" {
		t.Errorf("Labels.Epic = %q, want Opening", result.Report.Labels.Epic)
	}

	if len(stub.Files) != 1 {
		t.Fatalf("published %d files, want 1", len(stub.Files))
	}
	if stub.Files[0].Filename != result.ReportFile {
		t.Errorf("ReportFile = %q, published %q", result.ReportFile, stub.Files[0].Filename)
	}
	if !strings.HasSuffix(result.ReportFile, "-result.json") {
		t.Errorf("ReportFile = %q, want -result.json suffix", result.ReportFile)
	}

	if len(stub.Runs) != 1 {
		t.Fatalf("recorded %d runs, want 1", len(stub.Runs))
	}
	rec := stub.Runs[0]
	if rec.Status != "passed" || rec.Steps != 4 || rec.Passed != 4 {
		t.Errorf("run record = %+v, want passed with 4 passed steps", rec)
	}
	if rec.ReportFile != result.ReportFile {
		t.Errorf("run record ReportFile = %q, want %q", rec.ReportFile, result.ReportFile)
	}

	// The stub adapter sees the same invocations as the report.
	if got := len(j.Filter(adapter.OpWrap)); got != 4 {
		t.Errorf("stub wraps = %d, want 4", got)
	}
	if got := result.Metrics.TotalWraps(); got != 8 {
		t.Errorf("TotalWraps = %d, want 8 (two adapters)", got)
	}
	if len(result.Metrics.Adapters) != 2 {
		t.Errorf("metrics adapters = %q, want two names", result.Metrics.Adapters)
	}
}

func TestExecute_StepFailure(t *testing.T) {
	r, stub, _ := newTestOrchestrator(t, `
steps:
  - beat: login
    steps:
      - beat: submit
        fail: bad password
  - beat: never
`, nil)

	result, err := r.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if result.Outcome.Status != types.OutcomeFailed {
		t.Errorf("Outcome = %q, want failed", result.Outcome.Status)
	}
	if result.Outcome.FailedStep != "login > submit" {
		t.Errorf("FailedStep = %q", result.Outcome.FailedStep)
	}
	if ExitCode(result.Outcome) != ExitCodeFailed {
		t.Errorf("ExitCode = %d, want %d", ExitCode(result.Outcome), ExitCodeFailed)
	}
	if result.Report.Status != artifact.StatusFailed {
		t.Errorf("Report.Status = %q, want failed", result.Report.Status)
	}
	if len(stub.Files) != 1 {
		t.Errorf("published %d files, want the failed report published", len(stub.Files))
	}
	if stub.Runs[0].Failed != 2 {
		t.Errorf("Failed = %d, want 2", stub.Runs[0].Failed)
	}
}

func TestExecute_StorageFailure(t *testing.T) {
	r, stub, _ := newTestOrchestrator(t, "steps:\n  - beat: one\n", nil)
	stub.Err = errors.New("disk full")

	result, err := r.Execute(t.Context())

	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("error = %v, want disk full", err)
	}
	if result == nil {
		t.Fatal("result is nil, want partial result")
	}
	if result.Outcome.Status != types.OutcomeError {
		t.Errorf("Outcome = %q, want error", result.Outcome.Status)
	}
	if ExitCode(result.Outcome) != ExitCodeError {
		t.Errorf("ExitCode = %d, want %d", ExitCode(result.Outcome), ExitCodeError)
	}
}

func TestExecute_WithoutStorage(t *testing.T) {
	r, _, _ := newTestOrchestrator(t, "steps:\n  - beat: one\n", func(c *RunConfig) {
		c.FileWriter = nil
		c.RunWriter = nil
	})

	result, err := r.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.ReportFile != "" {
		t.Errorf("ReportFile = %q, want empty", result.ReportFile)
	}
	if result.Report == nil || result.Report.Len() != 1 {
		t.Errorf("Report = %+v, want one step", result.Report)
	}
}

func TestExecute_Disabled(t *testing.T) {
	r, stub, j := newTestOrchestrator(t, "steps:\n  - beat: one\n", func(c *RunConfig) {
		c.Disabled = true
	})

	result, err := r.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Outcome.Status != types.OutcomePassed {
		t.Errorf("Outcome = %q, want passed", result.Outcome.Status)
	}
	if len(j.Ops) != 0 {
		t.Errorf("ops = %q, want none", j.Strings())
	}
	if result.Report.Status != artifact.StatusSkipped {
		t.Errorf("Report.Status = %q, want skipped", result.Report.Status)
	}
	if stub.Runs[0].Steps != 0 {
		t.Errorf("Steps = %d, want 0", stub.Runs[0].Steps)
	}
}

func TestNewRunOrchestrator_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		config  *RunConfig
		wantErr string
	}{
		{"missing run id", &RunConfig{Script: &Script{Steps: []Step{{Beat: "a"}}}}, "run ID is required"},
		{"missing script", &RunConfig{RunID: "r"}, "no steps"},
		{"invalid script", &RunConfig{RunID: "r", Script: &Script{Steps: []Step{{}}}}, "invalid script"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunOrchestrator(tt.config)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestDetermineOutcome(t *testing.T) {
	stepErr := &StepError{Path: "a > b", Err: ErrStepFailed}

	tests := []struct {
		name       string
		err        error
		wantStatus types.OutcomeStatus
		wantStep   string
		wantCode   int
	}{
		{"nil", nil, types.OutcomePassed, "", ExitCodePassed},
		{"step error", stepErr, types.OutcomeFailed, "a > b", ExitCodeFailed},
		{"wrapped step error", errors.Join(errors.New("ctx"), stepErr), types.OutcomeFailed, "a > b", ExitCodeFailed},
		{"plain error", errors.New("boom"), types.OutcomeFailed, "", ExitCodeFailed},
		{"cancelled", fmt.Errorf("play: %w", context.Canceled), types.OutcomeError, "", ExitCodeError},
		{"deadline", context.DeadlineExceeded, types.OutcomeError, "", ExitCodeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetermineOutcome(tt.err)
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tt.wantStatus)
			}
			if got.FailedStep != tt.wantStep {
				t.Errorf("FailedStep = %q, want %q", got.FailedStep, tt.wantStep)
			}
			if code := ExitCode(got); code != tt.wantCode {
				t.Errorf("ExitCode = %d, want %d", code, tt.wantCode)
			}
		})
	}
}

func TestExitCode_Nil(t *testing.T) {
	if got := ExitCode(nil); got != ExitCodeError {
		t.Errorf("ExitCode(nil) = %d, want %d", got, ExitCodeError)
	}
}
