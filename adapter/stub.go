package adapter

import "fmt"

// Op kinds recorded by StubAdapter.
const (
	OpWrap  = "wrap"
	OpRun   = "run"
	OpClose = "close"
)

// Op is one adapter-visible event, recorded for ordering assertions.
type Op struct {
	Kind     string
	Adapter  string
	Channel  Channel
	Line     string
	Gravitas Gravitas
}

// String renders the op compactly, e.g. "a:wrap:beat:1".
func (o Op) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", o.Adapter, o.Kind, o.Channel, o.Line)
}

// Journal is an ordered log of ops, shareable between several StubAdapters
// so that cross-adapter ordering can be asserted.
type Journal struct {
	Ops []Op
}

// Filter returns the ops of the given kind, in order.
func (j *Journal) Filter(kind string) []Op {
	var out []Op
	for _, op := range j.Ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// Lines returns the lines of ops of the given kind, in order.
func (j *Journal) Lines(kind string) []string {
	var out []string
	for _, op := range j.Filter(kind) {
		out = append(out, op.Line)
	}
	return out
}

// Strings returns every op rendered with Op.String.
func (j *Journal) Strings() []string {
	out := make([]string, 0, len(j.Ops))
	for _, op := range j.Ops {
		out = append(out, op.String())
	}
	return out
}

// Reset discards all recorded ops.
func (j *Journal) Reset() {
	j.Ops = nil
}

// StubAdapter is a test adapter that records every wrap, run and close.
// It panics if a token is closed twice, which is a Narrator contract violation.
type StubAdapter struct {
	// Name identifies this adapter in the journal.
	Name string
	// Journal receives the recorded ops.
	Journal *Journal

	// PanicOnWrap, if set, makes Wrap panic for that channel.
	PanicOnWrap Channel

	wraps  int
	closes int
}

type stubToken struct {
	channel Channel
	line    string
	closed  *bool
}

// NewStubAdapter creates a stub adapter writing to journal.
// A nil journal gets a fresh one.
func NewStubAdapter(name string, journal *Journal) *StubAdapter {
	if journal == nil {
		journal = &Journal{}
	}
	return &StubAdapter{Name: name, Journal: journal}
}

// WrapAct implements Adapter.
func (s *StubAdapter) WrapAct(work Work, title string, gravitas Gravitas) (Work, Token) {
	return s.wrap(ChannelAct, work, title, gravitas)
}

// WrapScene implements Adapter.
func (s *StubAdapter) WrapScene(work Work, title string, gravitas Gravitas) (Work, Token) {
	return s.wrap(ChannelScene, work, title, gravitas)
}

// WrapBeat implements Adapter.
func (s *StubAdapter) WrapBeat(work Work, line string) (Work, Token) {
	return s.wrap(ChannelBeat, work, line, "")
}

// WrapAside implements Adapter.
func (s *StubAdapter) WrapAside(work Work, line string) (Work, Token) {
	return s.wrap(ChannelAside, work, line, "")
}

func (s *StubAdapter) wrap(ch Channel, work Work, line string, gravitas Gravitas) (Work, Token) {
	if s.PanicOnWrap == ch {
		panic(fmt.Sprintf("stub adapter %s: wrap %s refused", s.Name, ch))
	}

	s.wraps++
	s.record(OpWrap, ch, line, gravitas)

	decorated := func() (any, error) {
		s.record(OpRun, ch, line, gravitas)
		return work()
	}
	return decorated, &stubToken{channel: ch, line: line, closed: new(bool)}
}

// Close implements Adapter.
func (s *StubAdapter) Close(token Token) {
	tok, ok := token.(*stubToken)
	if !ok {
		panic(fmt.Sprintf("stub adapter %s: foreign token %T", s.Name, token))
	}
	if *tok.closed {
		panic(fmt.Sprintf("stub adapter %s: token for %s %q closed twice", s.Name, tok.channel, tok.line))
	}
	*tok.closed = true

	s.closes++
	s.record(OpClose, tok.channel, tok.line, "")
}

func (s *StubAdapter) record(kind string, ch Channel, line string, gravitas Gravitas) {
	s.Journal.Ops = append(s.Journal.Ops, Op{
		Kind:     kind,
		Adapter:  s.Name,
		Channel:  ch,
		Line:     line,
		Gravitas: gravitas,
	})
}

// Wraps returns the number of Wrap calls.
func (s *StubAdapter) Wraps() int {
	return s.wraps
}

// Closes returns the number of Close calls.
func (s *StubAdapter) Closes() int {
	return s.closes
}

// Open returns the number of tokens not yet closed.
func (s *StubAdapter) Open() int {
	return s.wraps - s.closes
}

// Verify StubAdapter implements Adapter.
var _ Adapter = (*StubAdapter)(nil)
