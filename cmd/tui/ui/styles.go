package ui

import "github.com/charmbracelet/lipgloss"

const screenWidth = 72

var (
	accent = lipgloss.Color("#7D56F4")
	good   = lipgloss.Color("#04B575")
	bad    = lipgloss.Color("#FF4672")
	subtle = lipgloss.Color("#767676")
	bright = lipgloss.Color("#FAFAFA")

	headingStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)
	hintStyle    = lipgloss.NewStyle().Foreground(subtle)
	errorStyle   = lipgloss.NewStyle().Foreground(bad).Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(good)
	labelStyle   = lipgloss.NewStyle().Foreground(subtle).Width(16)
	valueStyle   = lipgloss.NewStyle().Foreground(bright).Bold(true)
	cursorStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(subtle).
			Padding(0, 1).
			Width(40)
	focusedInputStyle = inputStyle.BorderForeground(accent)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 3).
			Width(screenWidth)
)
