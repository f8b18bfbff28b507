package runtime

import (
	"context"
	"errors"

	"github.com/pithecene-io/narrator/types"
)

// Exit codes of `narrator play`.
const (
	ExitCodePassed = 0 // every step completed
	ExitCodeFailed = 1 // a step failed
	ExitCodeError  = 2 // usage, config, script or storage error
)

// DetermineOutcome maps the error returned by Player.Play to a run outcome.
//
// Mapping:
//   - nil: passed
//   - context cancellation or deadline: error
//   - anything else: failed; a *StepError contributes the failing path
func DetermineOutcome(err error) *types.RunOutcome {
	if err == nil {
		return &types.RunOutcome{
			Status:  types.OutcomePassed,
			Message: "all steps passed",
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &types.RunOutcome{
			Status:  types.OutcomeError,
			Message: err.Error(),
		}
	}

	outcome := &types.RunOutcome{
		Status:  types.OutcomeFailed,
		Message: err.Error(),
	}
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		outcome.FailedStep = stepErr.Path
		outcome.Message = stepErr.Err.Error()
	}
	return outcome
}

// ExitCode returns the process exit code for an outcome.
func ExitCode(outcome *types.RunOutcome) int {
	if outcome == nil {
		return ExitCodeError
	}
	switch outcome.Status {
	case types.OutcomePassed:
		return ExitCodePassed
	case types.OutcomeFailed:
		return ExitCodeFailed
	default:
		return ExitCodeError
	}
}
