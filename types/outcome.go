// Package types defines domain types shared by the narrator runtime and CLI.
//
//nolint:revive // types is a common Go package naming convention
package types

// OutcomeStatus is the final status of a played script.
type OutcomeStatus string

const (
	// OutcomePassed indicates every step completed.
	OutcomePassed OutcomeStatus = "passed"
	// OutcomeFailed indicates a step failed.
	OutcomeFailed OutcomeStatus = "failed"
	// OutcomeError indicates the run could not be played: the script was
	// invalid, the context ended, or the report could not be stored.
	OutcomeError OutcomeStatus = "error"
)

// RunOutcome describes how a run ended.
type RunOutcome struct {
	// Status is the outcome status.
	Status OutcomeStatus `json:"status" yaml:"status"`
	// Message is a human-readable description.
	Message string `json:"message" yaml:"message"`
	// FailedStep is the path of the failing step (failed status only).
	FailedStep string `json:"failed_step,omitempty" yaml:"failed_step,omitempty"`
}
