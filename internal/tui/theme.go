// Package tui renders decision reports for the terminal
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is a colorblind-friendly palette (Okabe-Ito) with the styles used
// by the classify report
type Theme struct {
	Blue      lipgloss.Color
	LightBlue lipgloss.Color
	Orange    lipgloss.Color

	// Semantic colors
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Default lipgloss.Color

	Title   lipgloss.Style
	Label   lipgloss.Style
	Faint   lipgloss.Style
	Feature lipgloss.Style
	Box     lipgloss.Style

	// One style per decision action
	Ignore  lipgloss.Style
	Close   lipgloss.Style
	Comment lipgloss.Style
	Tag     lipgloss.Style
}

// NewTheme creates the default theme
func NewTheme() *Theme {
	t := &Theme{
		Blue:      "#0072B2",
		LightBlue: "#56B4E9",
		Orange:    "#D55E00",

		Success: "#009E73", // bluish green reads better than pure green
		Warning: "#E69F00",
		Error:   "#D55E00",
		Default: "#999999",
	}

	t.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Blue)

	t.Label = lipgloss.NewStyle().
		Bold(true).
		Width(10)

	t.Faint = lipgloss.NewStyle().
		Faint(true).
		Foreground(t.Default)

	t.Feature = lipgloss.NewStyle().
		Width(18)

	t.Box = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(t.LightBlue).
		Padding(0, 1)

	t.Ignore = t.Faint
	t.Close = lipgloss.NewStyle().Bold(true).Foreground(t.Error)
	t.Comment = lipgloss.NewStyle().Foreground(t.Warning)
	t.Tag = lipgloss.NewStyle().Bold(true).Foreground(t.Success)

	return t
}
