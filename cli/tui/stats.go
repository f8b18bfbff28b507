package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/narrator/lode"
)

// RunModel is a Bubble Tea model for a recorded run summary.
type RunModel struct {
	record   *lode.RunRecord
	width    int
	height   int
	quitting bool
}

// NewRunModel creates a run summary model.
func NewRunModel(rec *lode.RunRecord) RunModel {
	return RunModel{record: rec}
}

// Init implements tea.Model.
func (m RunModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m RunModel) View() string {
	if m.quitting {
		return ""
	}

	rec := m.record
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Run " + rec.RunID))
	b.WriteString("\n")

	header := [][]string{
		{"Name", rec.Name},
		{"Status", rec.Status},
		{"Duration", fmt.Sprintf("%dms", rec.DurationMs)},
	}
	if !rec.CompletedAt.IsZero() {
		header = append(header, []string{"Completed", rec.CompletedAt.Format("2006-01-02 15:04:05")})
	}
	if rec.ReportFile != "" {
		header = append(header, []string{"Report", rec.ReportFile})
	}
	for _, r := range header {
		value := ValueStyle.Render(r[1])
		if r[0] == "Status" {
			value = StateStyle(r[1]).Render(r[1])
		}
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render(r[0]+":"), value)
	}
	b.WriteString("\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Steps", rec.Steps),
		statBox("Passed", rec.Passed),
		statBox("Failed", rec.Failed),
		statBox("Broken", rec.Broken),
		statBox("Skipped", rec.Skipped),
	))
	b.WriteString("\n\n")

	b.WriteString(TitleStyle.Render("Narration"))
	b.WriteString("\n")
	counters := [][]string{
		{"Wraps", fmt.Sprint(rec.Wraps)},
		{"Closes", fmt.Sprint(rec.Closes)},
		{"Recorded", fmt.Sprint(rec.Recorded)},
		{"Cleared", fmt.Sprint(rec.Cleared)},
		{"Flushed", fmt.Sprint(rec.Flushed)},
	}
	for _, r := range counters {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("  "+r[0]+":"), ValueStyle.Render(r[1]))
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return BoxStyle.Render(b.String()) + "\n" + help
}

func statBox(label string, value int64) string {
	return StatBoxStyle.Render(
		StatValueStyle.Render(fmt.Sprint(value)) + "\n" + StatLabelStyle.Render(label),
	)
}
