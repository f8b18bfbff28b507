// Package console provides an adapter that narrates to a structured logger.
//
// Acts and scenes are logged as headings when their work starts. Beats are
// logged as soon as they are wrapped, and asides when they are whispered, both
// prefixed with the indentation of the shared nesting tracker.
package console

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pithecene-io/narrator/adapter"
	"github.com/pithecene-io/narrator/indent"
	"github.com/pithecene-io/narrator/log"
)

var (
	actStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	sceneStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))
)

// Options configures the console adapter.
type Options struct {
	// Color styles act and scene headings with lipgloss.
	Color bool
}

// Adapter logs narration at info level.
type Adapter struct {
	logger  *log.Logger
	tracker *indent.Tracker
	color   bool
	title   cases.Caser
}

// token is the console adapter's token; there is nothing to release.
type token struct{}

// New creates a console adapter. The tracker must be the one given to the
// Narrator so that beats and asides pick up the current nesting.
func New(logger *log.Logger, tracker *indent.Tracker, opts Options) *Adapter {
	if logger == nil {
		logger = log.Nop()
	}
	if tracker == nil {
		tracker = indent.NewTracker(indent.Config{})
	}
	return &Adapter{
		logger:  logger,
		tracker: tracker,
		color:   opts.Color,
		title:   cases.Title(language.English),
	}
}

// WrapAct implements adapter.Adapter.
func (a *Adapter) WrapAct(work adapter.Work, title string, _ adapter.Gravitas) (adapter.Work, adapter.Token) {
	heading := "ACT " + strings.ToUpper(title)
	return a.announce(work, heading, actStyle), token{}
}

// WrapScene implements adapter.Adapter.
func (a *Adapter) WrapScene(work adapter.Work, title string, _ adapter.Gravitas) (adapter.Work, adapter.Token) {
	heading := "Scene: " + a.title.String(title)
	return a.announce(work, heading, sceneStyle), token{}
}

// WrapBeat implements adapter.Adapter.
func (a *Adapter) WrapBeat(work adapter.Work, line string) (adapter.Work, adapter.Token) {
	a.logger.Info(a.tracker.Render()+line, nil)
	return work, token{}
}

// WrapAside implements adapter.Adapter.
func (a *Adapter) WrapAside(work adapter.Work, line string) (adapter.Work, adapter.Token) {
	return func() (any, error) {
		a.logger.Info(a.tracker.Render()+line, nil)
		return work()
	}, token{}
}

// Close implements adapter.Adapter.
func (a *Adapter) Close(adapter.Token) {}

func (a *Adapter) announce(work adapter.Work, heading string, style lipgloss.Style) adapter.Work {
	if a.color {
		heading = style.Render(heading)
	}
	return func() (any, error) {
		a.logger.Info(heading, nil)
		return work()
	}
}

var _ adapter.Adapter = (*Adapter)(nil)
