// Package report provides an adapter that records narration as a report
// artifact: a tree of steps with statuses and timings.
//
// Every invocation opens a step nested under the step currently open. Acts
// and scenes also label the report with an epic and a feature, and carry a
// severity derived from their gravitas. A step's status is resolved when its
// token is closed.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/narrator/adapter"
	"github.com/pithecene-io/narrator/lode"
	artifact "github.com/pithecene-io/narrator/report"
)

// SeverityOf maps gravitas to a report severity. Unspecified gravitas is normal.
func SeverityOf(g adapter.Gravitas) artifact.Severity {
	switch g {
	case adapter.GravitasAiry:
		return artifact.SeverityTrivial
	case adapter.GravitasLight:
		return artifact.SeverityMinor
	case adapter.GravitasHeavy:
		return artifact.SeverityCritical
	case adapter.GravitasExtreme:
		return artifact.SeverityBlocker
	default:
		return artifact.SeverityNormal
	}
}

// Options configures the report adapter.
type Options struct {
	// Format is the encoding used by Publish (default json).
	Format artifact.Format
	// Clock returns the current time (default time.Now).
	Clock func() time.Time
}

// Adapter builds a report from narration.
// Not safe for concurrent use, like the Narrator driving it.
type Adapter struct {
	report *artifact.Report
	open   []*stepToken
	format artifact.Format
	clock  func() time.Time
}

type stepToken struct {
	step    *artifact.Step
	ran     bool
	settled bool
	closed  bool
}

// New creates a report adapter for a run called name.
func New(name string, opts Options) *Adapter {
	if opts.Format == "" {
		opts.Format = artifact.FormatJSON
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Adapter{
		report: &artifact.Report{
			UUID: uuid.NewString(),
			Name: name,
		},
		format: opts.Format,
		clock:  opts.Clock,
	}
}

// WrapAct implements adapter.Adapter.
func (a *Adapter) WrapAct(work adapter.Work, title string, gravitas adapter.Gravitas) (adapter.Work, adapter.Token) {
	a.report.Labels.Epic = title
	return a.wrap(adapter.ChannelAct, work, title, gravitas)
}

// WrapScene implements adapter.Adapter.
func (a *Adapter) WrapScene(work adapter.Work, title string, gravitas adapter.Gravitas) (adapter.Work, adapter.Token) {
	a.report.Labels.Feature = title
	return a.wrap(adapter.ChannelScene, work, title, gravitas)
}

// WrapBeat implements adapter.Adapter.
func (a *Adapter) WrapBeat(work adapter.Work, line string) (adapter.Work, adapter.Token) {
	return a.wrap(adapter.ChannelBeat, work, line, "")
}

// WrapAside implements adapter.Adapter.
func (a *Adapter) WrapAside(work adapter.Work, line string) (adapter.Work, adapter.Token) {
	return a.wrap(adapter.ChannelAside, work, line, "")
}

func (a *Adapter) wrap(ch adapter.Channel, work adapter.Work, line string, gravitas adapter.Gravitas) (adapter.Work, adapter.Token) {
	now := a.now()
	step := &artifact.Step{
		Name:    line,
		Channel: ch.String(),
		Start:   now,
	}
	if ch == adapter.ChannelAct || ch == adapter.ChannelScene {
		step.Severity = SeverityOf(gravitas)
		if gravitas != "" {
			a.report.Labels.Severity = step.Severity
		}
	}

	if len(a.open) == 0 {
		if len(a.report.Steps) == 0 {
			a.report.Start = now
		}
		a.report.Steps = append(a.report.Steps, step)
	} else {
		parent := a.open[len(a.open)-1].step
		parent.Steps = append(parent.Steps, step)
	}

	tok := &stepToken{step: step}
	a.open = append(a.open, tok)

	decorated := func() (any, error) {
		tok.ran = true
		completed := false
		defer func() {
			if !completed {
				tok.settle(artifact.StatusBroken, "work panicked")
			}
		}()
		v, err := work()
		completed = true
		if err != nil {
			tok.settle(artifact.StatusFailed, err.Error())
		}
		return v, err
	}
	return decorated, tok
}

// Close implements adapter.Adapter. Tokens must be closed innermost first.
func (a *Adapter) Close(token adapter.Token) {
	tok, ok := token.(*stepToken)
	if !ok {
		panic(fmt.Sprintf("report adapter: foreign token %T", token))
	}
	if tok.closed {
		panic(fmt.Sprintf("report adapter: step %q closed twice", tok.step.Name))
	}
	if n := len(a.open); n == 0 || a.open[n-1] != tok {
		panic(fmt.Sprintf("report adapter: step %q closed out of order", tok.step.Name))
	}
	a.open = a.open[:len(a.open)-1]
	tok.closed = true

	if !tok.settled {
		if tok.ran {
			tok.settle(artifact.StatusPassed, "")
		} else {
			tok.settle(artifact.StatusSkipped, "")
		}
	}
	tok.step.Stop = a.now()

	a.report.Status = a.report.Status.Worse(tok.step.Status)
	if len(a.open) == 0 {
		a.report.Stop = tok.step.Stop
	}
}

func (t *stepToken) settle(status artifact.Status, message string) {
	t.settled = true
	t.step.Status = status
	t.step.Message = message
}

// Open returns the number of steps not yet closed.
func (a *Adapter) Open() int {
	return len(a.open)
}

// Report returns the report built so far. A report with no steps is skipped.
func (a *Adapter) Report() *artifact.Report {
	if a.report.Status == "" && len(a.report.Steps) == 0 {
		a.report.Status = artifact.StatusSkipped
	}
	return a.report
}

// Filename returns the artifact name Publish writes: <uuid>-result.<ext>.
func (a *Adapter) Filename() string {
	return fmt.Sprintf("%s-result.%s", a.report.UUID, a.format.Extension())
}

// Publish encodes the report and writes it through w.
// It returns the filename written.
func (a *Adapter) Publish(ctx context.Context, w lode.FileWriter) (string, error) {
	data, err := artifact.Encode(a.Report(), a.format)
	if err != nil {
		return "", err
	}
	filename := a.Filename()
	if err := w.PutFile(ctx, filename, a.format.ContentType(), data); err != nil {
		return "", fmt.Errorf("publish report %s: %w", filename, err)
	}
	return filename, nil
}

func (a *Adapter) now() int64 {
	return a.clock().UnixMilli()
}

var _ adapter.Adapter = (*Adapter)(nil)
