package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorWhite  = lipgloss.Color("15")
	ColorGray   = lipgloss.Color("240")
	ColorBlue   = lipgloss.Color("39")
	ColorYellow = lipgloss.Color("208")
	ColorRed    = lipgloss.Color("196")
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray)

	activePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBlue)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	noticeStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	errorTitleStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)
)
