package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/futig/knowledge-console/internal/entity"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("111"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("78"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	metricsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)
)

// confidenceStyle colours the confidence figure the way the metrics bar bands it.
func confidenceStyle(level entity.ConfidenceLevel) lipgloss.Style {
	switch level {
	case entity.ConfidenceHigh:
		return successStyle
	case entity.ConfidenceMedium:
		return warnStyle
	default:
		return errorStyle
	}
}
