// Package notify announces finished runs to downstream systems.
//
// A Notifier receives one RunCompletedEvent after the run summary has been
// stored. Delivery failures are reported to the caller and never change the
// run outcome.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/narrator/runtime"
	"github.com/pithecene-io/narrator/types"
)

// EventRunCompleted is the only event type published.
const EventRunCompleted = "run_completed"

// DefaultBackoff is the delay before the first retry. It doubles per retry.
const DefaultBackoff = 500 * time.Millisecond

// RunCompletedEvent is the payload published when a run finishes.
type RunCompletedEvent struct {
	EventType   string `json:"event_type"`
	Version     string `json:"version"`
	RunID       string `json:"run_id"`
	Name        string `json:"name"`
	Outcome     string `json:"outcome"`
	Message     string `json:"message,omitempty"`
	FailedStep  string `json:"failed_step,omitempty"`
	ExitCode    int    `json:"exit_code"`
	ReportFile  string `json:"report_file,omitempty"`
	StoragePath string `json:"storage_path,omitempty"`
	Timestamp   string `json:"timestamp"` // RFC 3339, UTC
	DurationMs  int64  `json:"duration_ms"`
	StepsTotal  int    `json:"steps_total"`
	StepsFailed int    `json:"steps_failed"`
}

// Notifier publishes run completion events.
type Notifier interface {
	// Notify delivers the event. Must respect context cancellation.
	Notify(ctx context.Context, event *RunCompletedEvent) error

	// Close releases notifier resources.
	Close() error
}

// NewRunCompletedEvent builds the event for a run summary.
// storagePath locates the stored report, if any.
func NewRunCompletedEvent(rep *runtime.RunReport, storagePath string, completedAt time.Time) *RunCompletedEvent {
	event := &RunCompletedEvent{
		EventType:   EventRunCompleted,
		Version:     types.Version,
		RunID:       rep.RunID,
		Name:        rep.Name,
		Outcome:     string(rep.Outcome),
		Message:     rep.Message,
		FailedStep:  rep.FailedStep,
		ExitCode:    rep.ExitCode,
		ReportFile:  rep.ReportFile,
		StoragePath: storagePath,
		Timestamp:   completedAt.UTC().Format(time.RFC3339),
		DurationMs:  rep.DurationMs,
	}
	if rep.Steps != nil {
		event.StepsTotal = rep.Steps.Total
		event.StepsFailed = rep.Steps.Failed + rep.Steps.Broken
	}
	return event
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls attempt once plus up to retries more times, sleeping backoff,
// 2*backoff, 4*backoff... between calls. It stops early on success, on a
// Permanent error, or when ctx is done.
func Retry(ctx context.Context, retries int, backoff time.Duration, attempt func(context.Context) error) error {
	if backoff <= 0 {
		backoff = DefaultBackoff
	}

	var lastErr error
	attempts := 1 + retries
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context canceled: %w", err)
		}

		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff << (i - 1)):
			}
		}

		lastErr = attempt(ctx)
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return fmt.Errorf("non-retriable error: %w", perm.err)
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
