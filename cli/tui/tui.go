package tui

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/narrator/lode"
	artifact "github.com/pithecene-io/narrator/report"
)

// TUI view types.
const (
	ViewInspectReport = "inspect_report"
	ViewStatsRun      = "stats_run"
)

// Run starts the appropriate TUI based on the view type.
// Returns an error if the view type doesn't support TUI.
func Run(viewType string, data any) error {
	if !IsTUISupported(viewType) {
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}

	model, err := newModel(viewType, data)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

// IsTUISupported returns true if the view type supports TUI mode.
// Only inspect and stats commands support TUI.
func IsTUISupported(viewType string) bool {
	return slices.Contains(SupportedTUIViews(), viewType)
}

// SupportedTUIViews returns a list of view types that support TUI.
func SupportedTUIViews() []string {
	return []string{ViewInspectReport, ViewStatsRun}
}

func newModel(viewType string, data any) (tea.Model, error) {
	switch {
	case strings.HasPrefix(viewType, "inspect_"):
		rep, ok := data.(*artifact.Report)
		if !ok || rep == nil {
			return nil, fmt.Errorf("invalid data type %T for %s", data, viewType)
		}
		return NewReportModel(rep), nil
	case strings.HasPrefix(viewType, "stats_"):
		rec, ok := data.(*lode.RunRecord)
		if !ok || rec == nil {
			return nil, fmt.Errorf("invalid data type %T for %s", data, viewType)
		}
		return NewRunModel(rec), nil
	default:
		return nil, fmt.Errorf("unknown view type: %s", viewType)
	}
}
