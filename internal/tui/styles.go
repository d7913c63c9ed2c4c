package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/stephabauva/archdrift/pkg/models"
)

// Severity colors follow the console renderer: red errors, yellow
// warnings, cyan infos.
var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// severityStyle picks the style for a severity, defaulting to dim for
// anything unknown.
func severityStyle(sev models.Severity) lipgloss.Style {
	switch sev {
	case models.SeverityError:
		return errorStyle
	case models.SeverityWarning:
		return warningStyle
	case models.SeverityInfo:
		return infoStyle
	default:
		return dimStyle
	}
}

// severityGlyph mirrors the console renderer's symbols.
func severityGlyph(sev models.Severity) string {
	switch sev {
	case models.SeverityError:
		return "✗"
	case models.SeverityWarning:
		return "⚠"
	default:
		return "ℹ"
	}
}
