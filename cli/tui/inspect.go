package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	artifact "github.com/pithecene-io/narrator/report"
)

// Lines reserved around the step list: title, summary, detail and help.
const chromeHeight = 8

type row struct {
	step  *artifact.Step
	depth int
}

// ReportModel is a Bubble Tea model browsing a report's step tree.
type ReportModel struct {
	report   *artifact.Report
	rows     []row
	cursor   int
	viewport viewport.Model
	ready    bool
	quitting bool
}

// NewReportModel creates a report browser.
func NewReportModel(rep *artifact.Report) ReportModel {
	m := ReportModel{report: rep}
	rep.Walk(func(step *artifact.Step, depth int) {
		m.rows = append(m.rows, row{step: step, depth: depth})
	})
	return m
}

// Init implements tea.Model.
func (m ReportModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ReportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := max(msg.Height-chromeHeight, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.sync()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			m.move(m.cursor - 1)
		case key.Matches(msg, keys.Down):
			m.move(m.cursor + 1)
		case key.Matches(msg, keys.Top):
			m.move(0)
		case key.Matches(msg, keys.Bottom):
			m.move(len(m.rows) - 1)
		}
		return m, nil
	}

	return m, nil
}

// Selected returns the step under the cursor, or nil for an empty report.
func (m ReportModel) Selected() *artifact.Step {
	if len(m.rows) == 0 {
		return nil
	}
	return m.rows[m.cursor].step
}

func (m *ReportModel) move(to int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor = min(max(to, 0), len(m.rows)-1)
	m.sync()
}

// sync refreshes the viewport content and scrolls the cursor into view.
func (m *ReportModel) sync() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderRows())
	switch {
	case m.cursor < m.viewport.YOffset:
		m.viewport.SetYOffset(m.cursor)
	case m.cursor >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(m.cursor - m.viewport.Height + 1)
	}
}

// View implements tea.Model.
func (m ReportModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.report.Name))
	b.WriteString("\n")
	b.WriteString(m.renderSummary())
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(HelpStyle.Render("(no steps)"))
	} else if m.ready {
		b.WriteString(m.viewport.View())
	} else {
		b.WriteString(m.renderRows())
	}

	b.WriteString("\n")
	b.WriteString(m.renderDetail())

	help := HelpStyle.Render("↑/k up • ↓/j down • g/G top/bottom • q quit")
	return b.String() + "\n" + help
}

func (m ReportModel) renderSummary() string {
	counts := m.report.Counts()
	parts := []string{StateStyle(string(m.report.Status)).Render(string(m.report.Status))}
	for _, s := range artifact.Statuses() {
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[s], s))
		}
	}
	return strings.Join(parts, "  ")
}

func (m ReportModel) renderRows() string {
	lines := make([]string, len(m.rows))
	for i, r := range m.rows {
		marker := "  "
		name := r.step.Name
		if i == m.cursor {
			marker = "> "
			name = CursorStyle.Render(name)
		}
		lines[i] = fmt.Sprintf("%s%s%s %s",
			marker,
			strings.Repeat("  ", r.depth),
			StateStyle(string(r.step.Status)).Render(statusGlyph(r.step.Status)),
			name)
	}
	return strings.Join(lines, "\n")
}

func (m ReportModel) renderDetail() string {
	step := m.Selected()
	if step == nil {
		return ""
	}

	rows := [][]string{
		{"Channel", step.Channel},
		{"Status", string(step.Status)},
	}
	if step.Severity != "" {
		rows = append(rows, []string{"Severity", string(step.Severity)})
	}
	if step.Stop >= step.Start && step.Start > 0 {
		rows = append(rows, []string{"Duration", fmt.Sprintf("%dms", step.Stop-step.Start)})
	}
	if step.Message != "" {
		rows = append(rows, []string{"Message", step.Message})
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		value := ValueStyle.Render(r[1])
		if r[0] == "Status" {
			value = StateStyle(r[1]).Render(r[1])
		}
		lines = append(lines, LabelStyle.Render(r[0]+":")+" "+value)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func statusGlyph(s artifact.Status) string {
	switch s {
	case artifact.StatusPassed:
		return "✓"
	case artifact.StatusFailed:
		return "✗"
	case artifact.StatusBroken:
		return "!"
	case artifact.StatusSkipped:
		return "-"
	default:
		return "?"
	}
}

// keyMap defines key bindings.
type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Top: key.NewBinding(
		key.WithKeys("home", "g"),
		key.WithHelp("g", "top"),
	),
	Bottom: key.NewBinding(
		key.WithKeys("end", "G"),
		key.WithHelp("G", "bottom"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RenderInspectStatic renders a report without the full TUI (for fallback).
func RenderInspectStatic(rep *artifact.Report) string {
	return lipgloss.NewStyle().Padding(1, 2).Render(NewReportModel(rep).View())
}
