package cli

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	PrimaryColor = lipgloss.Color("#2E8B57")
	SuccessColor = lipgloss.Color("#4ECDC4")
	WarningColor = lipgloss.Color("#FFE66D")
	ErrorColor   = lipgloss.Color("#FF6B6B")
	SubtleColor  = lipgloss.Color("#666666")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	// CardStyle frames one home period card.
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(0, 1)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(PrimaryColor)
)

// FormatTitle renders a section title.
func FormatTitle(s string) string {
	return TitleStyle.Render(s)
}

// FormatError renders an error line.
func FormatError(s string) string {
	return ErrorStyle.Render("✗ " + s)
}

// FormatSuccess renders a success line.
func FormatSuccess(s string) string {
	return SuccessStyle.Render("✓ " + s)
}
