package narration

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pithecene-io/narrator/adapter"
	"github.com/pithecene-io/narrator/indent"
	"github.com/pithecene-io/narrator/metrics"
)

// indentRecorder records each beat line prefixed with the indentation in
// effect when the beat is wrapped.
type indentRecorder struct {
	*adapter.StubAdapter
	tracker *indent.Tracker
	lines   []string
}

func (r *indentRecorder) WrapBeat(work adapter.Work, line string) (adapter.Work, adapter.Token) {
	r.lines = append(r.lines, r.tracker.Render()+line)
	return r.StubAdapter.WrapBeat(work, line)
}

func newStubs(j *adapter.Journal, names ...string) []adapter.Adapter {
	out := make([]adapter.Adapter, 0, len(names))
	for _, name := range names {
		out = append(out, adapter.NewStubAdapter(name, j))
	}
	return out
}

func value(v any) adapter.Work {
	return func() (any, error) { return v, nil }
}

func TestStateBeat_NestedIndentation(t *testing.T) {
	tracker := indent.NewTracker(indent.DefaultConfig())
	rec := &indentRecorder{StubAdapter: adapter.NewStubAdapter("rec", nil), tracker: tracker}
	n := New(Config{Adapters: []adapter.Adapter{rec}, Tracker: tracker})

	_, err := n.StateBeat(func() (any, error) {
		return n.StateBeat(func() (any, error) {
			return n.StateBeat(adapter.Noop(), "3").Run()
		}, "2").Run()
	}, "1").Run()

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "    2", "        3"}, rec.lines)
	assert.Equal(t, 0, tracker.Level())
}

func TestNarrator_WrapAndCloseOrder(t *testing.T) {
	j := &adapter.Journal{}
	n := New(Config{Adapters: newStubs(j, "a", "b", "c")})

	_, err := n.AnnounceAct(adapter.Noop(), "Opening", adapter.GravitasHeavy).Run()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"a:wrap:act:Opening",
		"b:wrap:act:Opening",
		"c:wrap:act:Opening",
		"c:run:act:Opening",
		"b:run:act:Opening",
		"a:run:act:Opening",
		"c:close:act:Opening",
		"b:close:act:Opening",
		"a:close:act:Opening",
	}, j.Strings())

	for _, op := range j.Filter(adapter.OpWrap) {
		assert.Equal(t, adapter.GravitasHeavy, op.Gravitas)
	}
}

func TestNarrator_SceneAndAsideReachAdapters(t *testing.T) {
	j := &adapter.Journal{}
	n := New(Config{Adapters: newStubs(j, "a")})

	_, err := n.SetScene(func() (any, error) {
		return n.WhisperAside("psst").Run()
	}, "Lobby", "").Run()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"a:wrap:scene:Lobby",
		"a:run:scene:Lobby",
		"a:wrap:aside:psst",
		"a:run:aside:psst",
		"a:close:aside:psst",
		"a:close:scene:Lobby",
	}, j.Strings())
}

func TestNarrator_WorkErrorPropagatesAfterCleanup(t *testing.T) {
	j := &adapter.Journal{}
	stubs := newStubs(j, "a", "b")
	n := New(Config{Adapters: stubs})
	boom := errors.New("boom")

	v, err := n.StateBeat(func() (any, error) { return "partial", boom }, "fails").Run()

	require.ErrorIs(t, err, boom)
	assert.Same(t, boom, err)
	assert.Equal(t, "partial", v)
	assert.Equal(t, []string{"b:close:beat:fails", "a:close:beat:fails"},
		filterStrings(j, adapter.OpClose))
	assert.Empty(t, j.Lines(adapter.OpWrap)[2:], "a failed beat whispers no aside")
	assert.Equal(t, 0, n.Tracker().Level())
}

func TestNarrator_WorkPanicUnwindsThroughExit(t *testing.T) {
	j := &adapter.Journal{}
	stubs := newStubs(j, "a", "b")
	n := New(Config{Adapters: stubs})

	require.PanicsWithValue(t, "kaboom", func() {
		_, _ = n.StateBeat(func() (any, error) { panic("kaboom") }, "explodes").Run()
	})

	for _, s := range stubs {
		assert.Equal(t, 0, s.(*adapter.StubAdapter).Open())
	}
	assert.Equal(t, []string{"b:close:beat:explodes", "a:close:beat:explodes"},
		filterStrings(j, adapter.OpClose))
	assert.Equal(t, 0, n.Tracker().Level())
}

func TestNarrator_WrapPanicClosesAcquiredTokens(t *testing.T) {
	j := &adapter.Journal{}
	stubs := newStubs(j, "a", "b", "c")
	stubs[1].(*adapter.StubAdapter).PanicOnWrap = adapter.ChannelBeat
	n := New(Config{Adapters: stubs})
	ran := false

	require.Panics(t, func() {
		_, _ = n.StateBeat(func() (any, error) {
			ran = true
			return nil, nil
		}, "refused").Run()
	})

	assert.False(t, ran)
	assert.Equal(t, []string{"a:wrap:beat:refused", "a:close:beat:refused"}, j.Strings())
	assert.Equal(t, 0, n.Tracker().Level())
}

func TestStateBeat_DerivedAside(t *testing.T) {
	tests := []struct {
		name   string
		result any
		want   []string
	}{
		{"int", 42, []string{"beat", "=> 42"}},
		{"zero int", 0, []string{"beat", "=> 0"}},
		{"string", "hi", []string{"beat", "=> hi"}},
		{"empty string", "", []string{"beat"}},
		{"nil", nil, []string{"beat"}},
		{"nil pointer", (*int)(nil), []string{"beat"}},
		{"nil slice", []string(nil), []string{"beat"}},
		{"nil map", map[string]int(nil), []string{"beat"}},
		{"false", false, []string{"beat", "=> false"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := &adapter.Journal{}
			n := New(Config{Adapters: newStubs(j, "a")})

			v, err := n.StateBeat(value(tt.result), "beat").Run()

			require.NoError(t, err)
			assert.Equal(t, tt.result, v)
			assert.Equal(t, tt.want, j.Lines(adapter.OpWrap))
		})
	}
}

func TestStateBeat_DerivedAsideIsNested(t *testing.T) {
	tracker := indent.NewTracker(indent.DefaultConfig())
	var asideLevel int
	probe := &levelProbe{StubAdapter: adapter.NewStubAdapter("p", nil), tracker: tracker, level: &asideLevel}
	n := New(Config{Adapters: []adapter.Adapter{probe}, Tracker: tracker})

	_, err := n.StateBeat(value("done"), "outer").Run()

	require.NoError(t, err)
	assert.Equal(t, 1, asideLevel)
	assert.Equal(t, []string{
		"p:wrap:beat:outer",
		"p:run:beat:outer",
		"p:wrap:aside:=> done",
		"p:run:aside:=> done",
		"p:close:aside:=> done",
		"p:close:beat:outer",
	}, probe.Journal.Strings())
}

type levelProbe struct {
	*adapter.StubAdapter
	tracker *indent.Tracker
	level   *int
}

func (p *levelProbe) WrapAside(work adapter.Work, line string) (adapter.Work, adapter.Token) {
	*p.level = p.tracker.Level()
	return p.StubAdapter.WrapAside(work, line)
}

func TestNarrator_Disabled(t *testing.T) {
	j := &adapter.Journal{}
	stubs := newStubs(j, "a", "b")
	n := New(Config{Adapters: stubs, Disabled: true})

	v, err := n.StateBeat(value(7), "quiet").Run()
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = n.WhisperAside("unheard").Run()
	require.NoError(t, err)

	assert.Empty(t, j.Ops)
	assert.False(t, n.OnAir())
	assert.Equal(t, 0, n.Tracker().Level())
}

func TestNarrator_DisabledIgnoresKink(t *testing.T) {
	j := &adapter.Journal{}
	n := New(Config{Adapters: newStubs(j, "a"), Disabled: true})
	require.NoError(t, n.Kink())

	v, err := n.StateBeat(value("ran"), "still runs").Run()

	require.NoError(t, err)
	assert.Equal(t, "ran", v)
	assert.Equal(t, 0, n.Backlog())
}

func TestNarrator_OffTheAir(t *testing.T) {
	j := &adapter.Journal{}
	n := New(Config{Adapters: newStubs(j, "a")})

	err := n.OffTheAir(func() error {
		assert.False(t, n.OnAir())
		_, err := n.StateBeat(value(1), "hidden").Run()
		return err
	})
	require.NoError(t, err)
	assert.True(t, n.OnAir())
	assert.Empty(t, j.Ops)

	require.Panics(t, func() {
		_ = n.OffTheAir(func() error { panic("stage fire") })
	})
	assert.True(t, n.OnAir(), "panic must restore the previous state")

	n.SetOnAir(false)
	require.NoError(t, n.OffTheAir(func() error { return nil }))
	assert.False(t, n.OnAir(), "off the air stays off after a nested OffTheAir")
}

func TestScope_ExitIsIdempotent(t *testing.T) {
	j := &adapter.Journal{}
	n := New(Config{Adapters: newStubs(j, "a")})

	s := n.StateBeat(adapter.Noop(), "once")
	work := s.Enter()
	_, err := work()
	require.NoError(t, err)
	s.Exit()
	s.Exit()

	assert.Len(t, j.Filter(adapter.OpClose), 1)
	assert.Equal(t, 0, n.Tracker().Level())
}

func TestScope_ExitWithoutEnterIsNoop(t *testing.T) {
	j := &adapter.Journal{}
	n := New(Config{Adapters: newStubs(j, "a")})

	n.WhisperAside("never entered").Exit()

	assert.Empty(t, j.Ops)
}

func TestScope_EnterTwicePanics(t *testing.T) {
	n := New(Config{})
	s := n.WhisperAside("twice")
	s.Enter()
	defer s.Exit()

	assert.Panics(t, func() { s.Enter() })
}

func TestNarrator_NilWorkIsNoop(t *testing.T) {
	n := New(Config{Adapters: newStubs(nil, "a")})

	v, err := n.AnnounceAct(nil, "Empty act", "").Run()

	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestNarrator_Metrics(t *testing.T) {
	j := &adapter.Journal{}
	c := metrics.NewCollector("run-1", "a", "b")
	n := New(Config{Adapters: newStubs(j, "a", "b"), Metrics: c})
	boom := errors.New("boom")

	_, _ = n.StateBeat(value(3), "answer").Run()
	_, _ = n.StateBeat(func() (any, error) { return nil, boom }, "fails").Run()
	require.NoError(t, n.Kink())
	_, _ = n.WhisperAside("later").Run()
	n.Unkink()
	require.NoError(t, n.Flush())
	_ = n.OffTheAir(func() error {
		_, err := n.WhisperAside("hidden").Run()
		return err
	})

	s := c.Snapshot()
	assert.Equal(t, int64(2), s.Invocations["beat"])
	assert.Equal(t, int64(2), s.Invocations["aside"], "derived aside and flushed aside")
	assert.Equal(t, int64(8), s.TotalWraps())
	assert.Equal(t, s.TotalWraps(), s.TotalCloses())
	assert.Equal(t, int64(1), s.Recorded)
	assert.Equal(t, int64(1), s.Flushed)
	assert.Equal(t, int64(1), s.Passthrough)
	assert.Equal(t, int64(1), s.DerivedAsides)
	assert.Equal(t, int64(1), s.WorkFailures)
}

func filterStrings(j *adapter.Journal, kind string) []string {
	var out []string
	for _, op := range j.Filter(kind) {
		out = append(out, op.String())
	}
	return out
}

func ExampleNarrator_StateBeat() {
	j := &adapter.Journal{}
	n := New(Config{Adapters: []adapter.Adapter{adapter.NewStubAdapter("stub", j)}})

	v, err := n.StateBeat(func() (any, error) { return 42, nil }, "Perry counts").Run()
	fmt.Println(v, err)
	fmt.Println(j.Lines(adapter.OpWrap))
	// Output:
	// 42 <nil>
	// [Perry counts => 42]
}
