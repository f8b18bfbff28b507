package narration

import "github.com/pithecene-io/narrator/adapter"

// Act runs fn inside an act.
func Act(n *Narrator, title string, gravitas adapter.Gravitas, fn func() error) error {
	_, err := n.AnnounceAct(errWork(fn), title, gravitas).Run()
	return err
}

// Scene runs fn inside a scene.
func Scene(n *Narrator, title string, gravitas adapter.Gravitas, fn func() error) error {
	_, err := n.SetScene(errWork(fn), title, gravitas).Run()
	return err
}

// Beat runs fn inside a beat and returns its typed result.
// While the cable is kinked fn does not run and the zero value is returned.
func Beat[T any](n *Narrator, line string, fn func() (T, error)) (T, error) {
	v, err := n.StateBeat(func() (any, error) { return fn() }, line).Run()
	t, _ := v.(T)
	return t, err
}

// Aside whispers line.
func Aside(n *Narrator, line string) {
	_, _ = n.WhisperAside(line).Run()
}

func errWork(fn func() error) adapter.Work {
	return func() (any, error) {
		return nil, fn()
	}
}
