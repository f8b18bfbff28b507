package runtime

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pithecene-io/narrator/log"
	"github.com/pithecene-io/narrator/narration"
)

// ErrStepFailed is wrapped by every StepError raised from a step's fail field.
var ErrStepFailed = errors.New("step failed")

// StepError reports a failing step by its path of beat lines.
type StepError struct {
	// Path is the beat lines from the outermost step down, joined by " > ".
	Path string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Player walks a Script through a Narrator.
type Player struct {
	n      *narration.Narrator
	logger *log.Logger
}

// NewPlayer creates a player narrating through n.
// A nil logger is replaced by log.Nop().
func NewPlayer(n *narration.Narrator, logger *log.Logger) *Player {
	if logger == nil {
		logger = log.Nop()
	}
	return &Player{n: n, logger: logger}
}

// Play narrates s. It returns the first step failure unchanged (a *StepError
// for fail fields) or the context error when ctx ends between steps.
func (p *Player) Play(ctx context.Context, s *Script) error {
	play := func() error { return p.steps(ctx, s.Steps, "", 0) }

	if s.Scene != "" {
		inner := play
		play = func() error { return narration.Scene(p.n, s.Scene, s.Gravitas, inner) }
	}
	if s.Act != "" {
		inner := play
		play = func() error { return narration.Act(p.n, s.Act, s.Gravitas, inner) }
	}
	return play()
}

func (p *Player) steps(ctx context.Context, steps []Step, parent string, iter int) error {
	for i := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.step(ctx, &steps[i], parent, iter); err != nil {
			return err
		}
	}
	return nil
}

func (p *Player) step(ctx context.Context, st *Step, parent string, iter int) error {
	if st.Aside != "" {
		narration.Aside(p.n, substitute(st.Aside, iter))
		return nil
	}

	line := substitute(st.Beat, iter)
	path := line
	if parent != "" {
		path = parent + " > " + line
	}

	_, err := p.n.StateBeat(func() (any, error) {
		var err error
		if st.Repeat > 0 {
			err = p.repeat(ctx, st, path)
		} else {
			err = p.steps(ctx, st.Steps, path, iter)
		}
		if err != nil {
			return nil, err
		}
		if st.Fail != "" {
			return nil, &StepError{
				Path: path,
				Err:  fmt.Errorf("%w: %s", ErrStepFailed, substitute(st.Fail, iter)),
			}
		}
		return result(st.Returns, iter), nil
	}, line).Run()
	return err
}

// repeat plays the children st.Repeat times with the cable kinked, clearing
// before each iteration so only the last one is flushed.
func (p *Player) repeat(ctx context.Context, st *Step, path string) error {
	err := p.n.WithKink(func() error {
		for i := 1; i <= st.Repeat; i++ {
			p.n.Clear()
			if err := p.steps(ctx, st.Steps, path, i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		p.n.Clear()
		return err
	}
	p.logger.Debug("replaying final iteration", map[string]any{
		"step":       path,
		"iterations": st.Repeat,
		"backlog":    p.n.Backlog(),
	})
	return p.n.Flush()
}

func substitute(line string, iter int) string {
	if iter == 0 {
		return line
	}
	return strings.ReplaceAll(line, "{n}", strconv.Itoa(iter))
}

func result(v any, iter int) any {
	if s, ok := v.(string); ok {
		return substitute(s, iter)
	}
	return v
}
