package narration

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/pithecene-io/narrator/adapter"
)

func properties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	return gopter.NewProperties(parameters)
}

// nest runs depth nested beats and returns the tracker level seen innermost.
func nest(n *Narrator, depth int, fail bool) (int, error) {
	if depth == 0 {
		if fail {
			return n.Tracker().Level(), errors.New("innermost failure")
		}
		return n.Tracker().Level(), nil
	}
	var inner int
	_, err := n.StateBeat(func() (any, error) {
		var err error
		inner, err = nest(n, depth-1, fail)
		return nil, err
	}, fmt.Sprintf("depth %d", depth)).Run()
	return inner, err
}

func TestProperty_NestingIsNetZero(t *testing.T) {
	props := properties()

	props.Property("nested beats return the tracker to zero", prop.ForAll(
		func(depth int, fail bool) bool {
			n := New(Config{Adapters: newStubs(nil, "a")})
			inner, _ := nest(n, depth, fail)
			return inner == depth && n.Tracker().Level() == 0
		},
		gen.IntRange(0, 24),
		gen.Bool(),
	))

	props.TestingRun(t)
}

func TestProperty_WrapCloseSymmetry(t *testing.T) {
	props := properties()

	props.Property("N adapters see N wraps and N reversed closes", prop.ForAll(
		func(count int, fail bool) bool {
			j := &adapter.Journal{}
			names := make([]string, count)
			for i := range names {
				names[i] = fmt.Sprintf("a%d", i)
			}
			n := New(Config{Adapters: newStubs(j, names...)})

			_, _ = n.StateBeat(func() (any, error) {
				if fail {
					return nil, errors.New("fails")
				}
				return nil, nil
			}, "step").Run()

			var wrapped, closed []string
			for _, op := range j.Filter(adapter.OpWrap) {
				wrapped = append(wrapped, op.Adapter)
			}
			for _, op := range j.Filter(adapter.OpClose) {
				closed = append(closed, op.Adapter)
			}
			slices.Reverse(closed)
			return len(wrapped) == count && slices.Equal(wrapped, closed)
		},
		gen.IntRange(0, 8),
		gen.Bool(),
	))

	props.Property("closes stay symmetric when work panics", prop.ForAll(
		func(count int) bool {
			stubs := newStubs(nil, make([]string, count)...)
			n := New(Config{Adapters: stubs})

			func() {
				defer func() { _ = recover() }()
				_, _ = n.StateBeat(func() (any, error) { panic("boom") }, "step").Run()
			}()

			for _, s := range stubs {
				stub := s.(*adapter.StubAdapter)
				if stub.Wraps() != 1 || stub.Closes() != 1 {
					return false
				}
			}
			return n.Tracker().Level() == 0
		},
		gen.IntRange(0, 8),
	))

	props.TestingRun(t)
}

func TestProperty_FlushDeliversOnlyAfterLastClear(t *testing.T) {
	props := properties()

	props.Property("only the last round survives", prop.ForAll(
		func(rounds []int) bool {
			j := &adapter.Journal{}
			n := New(Config{Adapters: newStubs(j, "a")})

			if err := n.Kink(); err != nil {
				return false
			}
			var want []string
			for r, k := range rounds {
				n.Clear()
				want = want[:0]
				for i := range k {
					line := fmt.Sprintf("round %d line %d", r, i)
					Aside(n, line)
					want = append(want, line)
				}
				if n.Backlog() != k {
					return false
				}
			}
			n.Unkink()
			if err := n.Flush(); err != nil {
				return false
			}

			got := j.Lines(adapter.OpWrap)
			return len(got) == len(want) && (len(want) == 0 || slices.Equal(got, want))
		},
		gen.SliceOf(gen.IntRange(0, 5)),
	))

	props.TestingRun(t)
}
