package ui

import "github.com/charmbracelet/lipgloss"

// Palette is the stylesheet for CLI output. Every renderer draws from the one
// package instance so commands stay visually consistent.
type Palette struct {
	heading lipgloss.Style
	good    lipgloss.Style
	bad     lipgloss.Style
	warn    lipgloss.Style
	dim     lipgloss.Style
}

var styles = Palette{
	heading: bold("#7D56F4").MarginBottom(1),
	good:    bold("#04B575"),
	bad:     bold("#E84855"),
	warn:    fg("#FFA500"),
	dim:     fg("#626262").Italic(true),
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

func bold(color string) lipgloss.Style {
	return fg(color).Bold(true)
}
