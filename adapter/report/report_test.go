package report

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pithecene-io/narrator/adapter"
	"github.com/pithecene-io/narrator/lode"
	"github.com/pithecene-io/narrator/narration"
	artifact "github.com/pithecene-io/narrator/report"
)

// tick returns a clock that advances one millisecond per call.
func tick() func() time.Time {
	t := time.UnixMilli(1_000)
	return func() time.Time {
		t = t.Add(time.Millisecond)
		return t
	}
}

func setup(name string) (*narration.Narrator, *Adapter) {
	a := New(name, Options{Clock: tick()})
	return narration.New(narration.Config{Adapters: []adapter.Adapter{a}}), a
}

// shape strips timings so trees can be compared structurally.
var shape = cmpopts.IgnoreFields(artifact.Step{}, "Start", "Stop")

func TestReport_StepTree(t *testing.T) {
	n, a := setup("Checkout")

	err := narration.Act(n, "Shopping", adapter.GravitasHeavy, func() error {
		return narration.Scene(n, "Cart", "", func() error {
			_, err := narration.Beat(n, "Perry adds a hat", func() (int, error) { return 1, nil })
			return err
		})
	})
	require.NoError(t, err)

	want := []*artifact.Step{{
		Name: "Shopping", Channel: "act", Severity: artifact.SeverityCritical, Status: artifact.StatusPassed,
		Steps: []*artifact.Step{{
			Name: "Cart", Channel: "scene", Severity: artifact.SeverityNormal, Status: artifact.StatusPassed,
			Steps: []*artifact.Step{{
				Name: "Perry adds a hat", Channel: "beat", Status: artifact.StatusPassed,
				Steps: []*artifact.Step{{Name: "=> 1", Channel: "aside", Status: artifact.StatusPassed}},
			}},
		}},
	}}

	r := a.Report()
	if diff := cmp.Diff(want, r.Steps, shape); diff != "" {
		t.Errorf("step tree mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, artifact.Labels{Epic: "Shopping", Feature: "Cart", Severity: artifact.SeverityCritical}, r.Labels)
	assert.Equal(t, artifact.StatusPassed, r.Status)
	assert.Equal(t, 0, a.Open())
}

func TestReport_Timings(t *testing.T) {
	n, a := setup("Timed")

	_, err := n.StateBeat(adapter.Noop(), "one").Run()
	require.NoError(t, err)
	_, err = n.StateBeat(adapter.Noop(), "two").Run()
	require.NoError(t, err)

	r := a.Report()
	require.Len(t, r.Steps, 2)
	for _, s := range r.Steps {
		assert.Less(t, s.Start, s.Stop, "step %q", s.Name)
	}
	assert.Less(t, r.Steps[0].Stop, r.Steps[1].Start)
	assert.Equal(t, r.Steps[0].Start, r.Start)
	assert.Equal(t, r.Steps[1].Stop, r.Stop)
}

func TestReport_FailedStep(t *testing.T) {
	n, a := setup("Failing")
	boom := errors.New("card declined")

	err := narration.Scene(n, "Payment", adapter.GravitasExtreme, func() error {
		_, err := n.StateBeat(func() (any, error) { return nil, boom }, "Perry pays").Run()
		return err
	})
	require.ErrorIs(t, err, boom)

	r := a.Report()
	scene := r.Steps[0]
	assert.Equal(t, artifact.StatusFailed, scene.Status)
	assert.Equal(t, artifact.SeverityBlocker, scene.Severity)
	assert.Equal(t, artifact.StatusFailed, scene.Steps[0].Status)
	assert.Equal(t, "card declined", scene.Steps[0].Message)
	assert.Equal(t, artifact.StatusFailed, r.Status)
}

func TestReport_BrokenStep(t *testing.T) {
	n, a := setup("Panicking")

	require.Panics(t, func() {
		_, _ = n.StateBeat(func() (any, error) { panic("stage fire") }, "Perry juggles").Run()
	})

	r := a.Report()
	assert.Equal(t, artifact.StatusBroken, r.Steps[0].Status)
	assert.Equal(t, artifact.StatusBroken, r.Status)
	assert.Equal(t, 0, a.Open())
}

func TestReport_SkippedStep(t *testing.T) {
	a := New("Skipped", Options{Clock: tick()})

	_, tok := a.WrapBeat(adapter.Noop(), "never runs")
	a.Close(tok)

	r := a.Report()
	assert.Equal(t, artifact.StatusSkipped, r.Steps[0].Status)
	assert.Equal(t, artifact.StatusSkipped, r.Status)
}

func TestReport_EmptyIsSkipped(t *testing.T) {
	a := New("Nothing", Options{})

	r := a.Report()

	assert.Equal(t, artifact.StatusSkipped, r.Status)
	assert.NotEmpty(t, r.UUID)
}

func TestReport_CloseContractViolations(t *testing.T) {
	a := New("Strict", Options{})
	_, outer := a.WrapAct(adapter.Noop(), "outer", "")
	_, inner := a.WrapBeat(adapter.Noop(), "inner")

	assert.Panics(t, func() { a.Close(outer) }, "closing out of order")
	a.Close(inner)
	a.Close(outer)
	assert.Panics(t, func() { a.Close(outer) }, "closing twice")
	assert.Panics(t, func() { a.Close("not a token") }, "foreign token")
}

func TestReport_KinkedLoopRecordsLatest(t *testing.T) {
	n, a := setup("Loop")

	_, err := n.StateBeat(func() (any, error) {
		if err := n.Kink(); err != nil {
			return nil, err
		}
		for _, line := range []string{"iter 1", "iter 2", "iter 3"} {
			n.Clear()
			narration.Aside(n, line)
		}
		n.Unkink()
		return nil, n.Flush()
	}, "loop").Run()
	require.NoError(t, err)

	want := []*artifact.Step{{
		Name: "loop", Channel: "beat", Status: artifact.StatusPassed,
		Steps: []*artifact.Step{{Name: "iter 3", Channel: "aside", Status: artifact.StatusPassed}},
	}}
	if diff := cmp.Diff(want, a.Report().Steps, shape); diff != "" {
		t.Errorf("step tree mismatch (-want +got):\n%s", diff)
	}
}

func TestSeverityOf(t *testing.T) {
	tests := map[adapter.Gravitas]artifact.Severity{
		"":                      artifact.SeverityNormal,
		adapter.GravitasAiry:    artifact.SeverityTrivial,
		adapter.GravitasLight:   artifact.SeverityMinor,
		adapter.GravitasNormal:  artifact.SeverityNormal,
		adapter.GravitasHeavy:   artifact.SeverityCritical,
		adapter.GravitasExtreme: artifact.SeverityBlocker,
	}
	for g, want := range tests {
		assert.Equal(t, want, SeverityOf(g), "gravitas %q", g)
	}
}

func TestReport_Publish(t *testing.T) {
	for _, format := range []artifact.Format{artifact.FormatJSON, artifact.FormatYAML, artifact.FormatMsgpack} {
		t.Run(string(format), func(t *testing.T) {
			a := New("Published", Options{Format: format, Clock: tick()})
			n := narration.New(narration.Config{Adapters: []adapter.Adapter{a}})
			_, err := n.StateBeat(adapter.Noop(), "Perry bows").Run()
			require.NoError(t, err)

			w := lode.NewStubFileWriter()
			filename, err := a.Publish(t.Context(), w)
			require.NoError(t, err)

			require.Len(t, w.Files, 1)
			assert.Equal(t, a.Report().UUID+"-result."+string(format), filename)
			assert.Equal(t, filename, w.Files[0].Filename)
			assert.Equal(t, format.ContentType(), w.Files[0].ContentType)

			decoded, err := artifact.Decode(w.Files[0].Data, format)
			require.NoError(t, err)
			if diff := cmp.Diff(a.Report(), decoded); diff != "" {
				t.Errorf("published report mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReport_PublishWriterFailure(t *testing.T) {
	a := New("Down", Options{})
	w := lode.NewStubFileWriter()
	w.Err = errors.New("store unavailable")

	_, err := a.Publish(t.Context(), w)

	require.ErrorIs(t, err, w.Err)
}
