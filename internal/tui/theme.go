package tui

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the TUI.
type Theme struct {
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Label       lipgloss.Style
	Panel       lipgloss.Style
	FocusPanel  lipgloss.Style
	Placeholder lipgloss.Style
	Warning     lipgloss.Style
	Error       lipgloss.Style
	Muted       lipgloss.Color
	Primary     lipgloss.Color
}

// DefaultTheme is the default theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#E63946"),
	Muted:   lipgloss.Color("#737373"),

	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#fafafa")).
		Background(lipgloss.Color("#E63946")).
		Padding(0, 2),
	Subtitle: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#a3a3a3")),
	Label: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#fafafa")).
		Width(10),
	Panel: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#404040")).
		Padding(0, 1),
	FocusPanel: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#E63946")).
		Padding(0, 1),
	Placeholder: lipgloss.NewStyle().
		Italic(true).
		Foreground(lipgloss.Color("#737373")),
	Warning: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#f59e0b")),
	Error: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#ef4444")),
}
