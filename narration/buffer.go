package narration

import (
	"errors"

	"github.com/pithecene-io/narrator/adapter"
)

// ErrAlreadyKinked is returned by Kink when the cable is already kinked.
var ErrAlreadyKinked = errors.New("narration: cable already kinked")

// entry is one recorded invocation.
type entry struct {
	channel  adapter.Channel
	work     adapter.Work
	line     string
	gravitas adapter.Gravitas
}

// buffer holds invocations recorded while kinked.
type buffer struct {
	kinked  bool
	entries []entry
}

func (b *buffer) record(e entry) {
	b.entries = append(b.entries, e)
}

// detach empties the buffer and returns what it held.
func (b *buffer) detach() []entry {
	entries := b.entries
	b.entries = nil
	return entries
}

// Kink starts recording invocations instead of narrating them.
// Recorded work does not run until Flush.
func (n *Narrator) Kink() error {
	if n.buffer.kinked {
		return ErrAlreadyKinked
	}
	n.buffer.kinked = true
	n.logger.Debug("cable kinked", nil)
	return nil
}

// Unkink stops recording. Buffered entries stay until Flush or Clear.
func (n *Narrator) Unkink() {
	if !n.buffer.kinked {
		return
	}
	n.buffer.kinked = false
	n.logger.Debug("cable unkinked", map[string]any{"backlog": len(n.buffer.entries)})
}

// WithKink kinks the cable for the duration of fn. The cable is unkinked on
// every exit path; buffered entries are left for the caller to flush.
func (n *Narrator) WithKink(fn func() error) error {
	if err := n.Kink(); err != nil {
		return err
	}
	defer n.Unkink()
	return fn()
}

// Clear discards buffered entries without running them.
func (n *Narrator) Clear() {
	dropped := len(n.buffer.detach())
	if dropped == 0 {
		return
	}
	n.metrics.AddCleared(dropped)
	n.logger.Debug("backlog cleared", map[string]any{"dropped": dropped})
}

// Flush replays buffered entries in recording order through the adapters,
// running each entry's work. The buffer is empty afterwards. The first work
// failure stops the replay and is returned; later entries are discarded.
//
// Flush may be called while kinked. Narration produced by replayed work is
// delivered in place, nested under its entry, and the kink is restored
// afterwards.
func (n *Narrator) Flush() error {
	kinked := n.buffer.kinked
	n.buffer.kinked = false
	defer func() { n.buffer.kinked = kinked }()

	entries := n.buffer.detach()
	for i, e := range entries {
		if err := n.replay(e); err != nil {
			n.metrics.AddFlushed(i + 1)
			n.logger.Debug("flush stopped", map[string]any{
				"replayed":  i + 1,
				"discarded": len(entries) - i - 1,
				"error":     err.Error(),
			})
			return err
		}
	}
	n.metrics.AddFlushed(len(entries))
	if len(entries) > 0 {
		n.logger.Debug("backlog flushed", map[string]any{"replayed": len(entries)})
	}
	return nil
}

// replay narrates a recorded entry, bypassing the kink check.
func (n *Narrator) replay(e entry) error {
	s := &Scope{n: n, entry: e, entered: true}
	work := n.fanOut(s)
	defer s.Exit()
	_, err := work()
	return err
}

// Kinked reports whether invocations are currently being recorded.
func (n *Narrator) Kinked() bool {
	return n.buffer.kinked
}

// Backlog returns the number of buffered entries.
func (n *Narrator) Backlog() int {
	return len(n.buffer.entries)
}
