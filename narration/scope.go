package narration

import "github.com/pithecene-io/narrator/adapter"

type opened struct {
	adapter adapter.Adapter
	token   adapter.Token
}

// Scope is one channel invocation. Enter it once, then Exit it on every
// path, usually with defer:
//
//	scope := n.SetScene(work, "the lobby", adapter.GravitasNormal)
//	work := scope.Enter()
//	defer scope.Exit()
//	result, err := work()
//
// Run does exactly that.
type Scope struct {
	n     *Narrator
	entry entry

	entered bool
	exited  bool
	opened  []opened
	leave   func()
}

// Enter performs the invocation and returns the work to call in place of
// the original. Entering a scope twice panics.
func (s *Scope) Enter() adapter.Work {
	if s.entered {
		panic("narration: scope entered twice")
	}
	s.entered = true
	return s.n.invoke(s)
}

// Exit leaves the tracker if the invocation entered it and closes every
// adapter token in reverse wrap order. Calling Exit again is a no-op.
func (s *Scope) Exit() {
	if !s.entered || s.exited {
		return
	}
	s.exited = true
	if s.leave != nil {
		s.leave()
		s.leave = nil
	}
	s.closeTokens()
}

// Run enters the scope, calls the yielded work and exits. The work's result
// and error are returned unchanged; a panic in the work unwinds through Exit.
func (s *Scope) Run() (any, error) {
	work := s.Enter()
	defer s.Exit()
	return work()
}

func (s *Scope) closeTokens() {
	opened := s.opened
	s.opened = nil
	ch := s.entry.channel.String()
	for i := len(opened) - 1; i >= 0; i-- {
		opened[i].adapter.Close(opened[i].token)
		s.n.metrics.IncClose(ch)
	}
}
