// Package narration implements the Narrator, which broadcasts acts, scenes,
// beats and asides to every registered adapter.
//
// Each channel operation returns a *Scope. Entering the scope fans the
// invocation out to the adapters in registration order and yields the
// decorated work; exiting it closes the adapters' tokens in reverse order.
//
//	result, err := n.StateBeat(work, "Perry opens the door").Run()
//
// While the cable is kinked (see Kink), invocations are recorded instead of
// narrated and only run when the buffer is flushed. While narration is off
// the air, every invocation is a pure pass-through.
//
// A Narrator is not safe for concurrent use.
//
// Tests for this package and the adapter packages assert with testify and
// check nesting properties with gopter; the rest of the module tests with
// the standard testing package alone.
package narration

import (
	"fmt"
	"reflect"

	"github.com/pithecene-io/narrator/adapter"
	"github.com/pithecene-io/narrator/indent"
	"github.com/pithecene-io/narrator/log"
	"github.com/pithecene-io/narrator/metrics"
)

// Config configures a Narrator.
type Config struct {
	// Adapters receive narration, wrapped in this order and closed in reverse.
	Adapters []adapter.Adapter
	// Tracker is the shared nesting tracker. Nil gets a default tracker.
	Tracker *indent.Tracker
	// Logger receives debug lines about buffering. Nil discards them.
	Logger *log.Logger
	// Metrics is optional; a nil collector records nothing.
	Metrics *metrics.Collector
	// Disabled starts the Narrator off the air.
	Disabled bool
}

// Narrator fans narration out to its adapters.
type Narrator struct {
	adapters []adapter.Adapter
	tracker  *indent.Tracker
	logger   *log.Logger
	metrics  *metrics.Collector

	onAir  bool
	buffer buffer
}

// New creates a Narrator.
func New(cfg Config) *Narrator {
	tracker := cfg.Tracker
	if tracker == nil {
		tracker = indent.NewTracker(indent.DefaultConfig())
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &Narrator{
		adapters: append([]adapter.Adapter(nil), cfg.Adapters...),
		tracker:  tracker,
		logger:   logger,
		metrics:  cfg.Metrics,
		onAir:    !cfg.Disabled,
	}
}

// Tracker returns the nesting tracker shared with the adapters.
func (n *Narrator) Tracker() *indent.Tracker {
	return n.tracker
}

// Metrics returns the collector, which may be nil.
func (n *Narrator) Metrics() *metrics.Collector {
	return n.metrics
}

// AnnounceAct narrates an act around work.
func (n *Narrator) AnnounceAct(work adapter.Work, title string, gravitas adapter.Gravitas) *Scope {
	return n.scope(adapter.ChannelAct, work, title, gravitas)
}

// SetScene narrates a scene around work.
func (n *Narrator) SetScene(work adapter.Work, title string, gravitas adapter.Gravitas) *Scope {
	return n.scope(adapter.ChannelScene, work, title, gravitas)
}

// StateBeat narrates a beat around work. A non-empty result of the work is
// whispered as an aside "=> <result>" one level deeper.
func (n *Narrator) StateBeat(work adapter.Work, line string) *Scope {
	return n.scope(adapter.ChannelBeat, work, line, "")
}

// WhisperAside narrates an aside.
func (n *Narrator) WhisperAside(line string) *Scope {
	return n.scope(adapter.ChannelAside, adapter.Noop(), line, "")
}

// OnAir reports whether narration is enabled.
func (n *Narrator) OnAir() bool {
	return n.onAir
}

// SetOnAir enables or disables narration.
func (n *Narrator) SetOnAir(on bool) {
	n.onAir = on
}

// OffTheAir runs fn with narration disabled, restoring the previous state
// afterwards even if fn panics.
func (n *Narrator) OffTheAir(fn func() error) error {
	prev := n.onAir
	n.onAir = false
	defer func() { n.onAir = prev }()
	return fn()
}

func (n *Narrator) scope(ch adapter.Channel, work adapter.Work, line string, gravitas adapter.Gravitas) *Scope {
	if work == nil {
		work = adapter.Noop()
	}
	return &Scope{
		n: n,
		entry: entry{
			channel:  ch,
			work:     work,
			line:     line,
			gravitas: gravitas,
		},
	}
}

// invoke performs the invocation for s and returns the work to run.
func (n *Narrator) invoke(s *Scope) adapter.Work {
	if !n.onAir {
		n.metrics.IncPassthrough()
		return s.entry.work
	}
	if n.buffer.kinked {
		n.buffer.record(s.entry)
		n.metrics.IncRecorded()
		return adapter.Noop()
	}
	return n.fanOut(s)
}

// fanOut wraps the work with every adapter and enters the tracker for beats.
// If an adapter panics, the tokens acquired so far are closed before the
// panic continues.
func (n *Narrator) fanOut(s *Scope) adapter.Work {
	e := s.entry
	n.metrics.IncInvocation(e.channel.String())

	work := n.instrument(e)

	complete := false
	defer func() {
		if !complete {
			s.closeTokens()
		}
	}()

	for _, a := range n.adapters {
		var tok adapter.Token
		work, tok = wrap(a, e, work)
		s.opened = append(s.opened, opened{adapter: a, token: tok})
		n.metrics.IncWrap(e.channel.String())
	}

	if e.channel == adapter.ChannelBeat {
		s.leave = n.tracker.Next()
	}

	complete = true
	return work
}

// instrument is the innermost decoration: it counts failures and, for beats,
// whispers the derived aside.
func (n *Narrator) instrument(e entry) adapter.Work {
	work := e.work
	return func() (any, error) {
		v, err := work()
		if err != nil {
			n.metrics.IncWorkFailure()
			return v, err
		}
		if e.channel == adapter.ChannelBeat && hasResult(v) {
			n.metrics.IncDerivedAside()
			if _, aerr := n.WhisperAside(fmt.Sprintf("=> %v", v)).Run(); aerr != nil {
				return v, aerr
			}
		}
		return v, nil
	}
}

func wrap(a adapter.Adapter, e entry, work adapter.Work) (adapter.Work, adapter.Token) {
	switch e.channel {
	case adapter.ChannelAct:
		return a.WrapAct(work, e.line, e.gravitas)
	case adapter.ChannelScene:
		return a.WrapScene(work, e.line, e.gravitas)
	case adapter.ChannelBeat:
		return a.WrapBeat(work, e.line)
	case adapter.ChannelAside:
		return a.WrapAside(work, e.line)
	default:
		panic(fmt.Sprintf("narration: unknown channel %s", e.channel))
	}
}

// hasResult reports whether a beat result is worth an aside: anything but
// nil, a nil pointer, slice, map or interface, and the empty string.
func hasResult(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface, reflect.Chan, reflect.Func:
		return !rv.IsNil()
	}
	return true
}
