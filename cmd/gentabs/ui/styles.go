// Package ui provides the visual styling for the gentabs interactive CLI.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette.
var (
	Primary = lipgloss.Color("#7C3AED") // violet
	Accent  = lipgloss.Color("#34D399") // green
	Muted   = lipgloss.Color("#6B7280") // gray
	Danger  = lipgloss.Color("#EF4444") // red
	Warning = lipgloss.Color("#FBBF24") // amber
	Border  = lipgloss.Color("#374151")
)

// Styles holds the prebuilt styles used by the chat view.
type Styles struct {
	Header         lipgloss.Style
	Footer         lipgloss.Style
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemMessage  lipgloss.Style
	Muted          lipgloss.Style
	Accent         lipgloss.Style
	Error          lipgloss.Style
	Sidebar        lipgloss.Style
	SidebarTitle   lipgloss.Style
	Canvas         lipgloss.Style
	StatusWorking  lipgloss.Style
	StatusDone     lipgloss.Style
	StatusError    lipgloss.Style
	StatusIdle     lipgloss.Style
	Chip           lipgloss.Style
}

// DefaultStyles builds the default style set.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			Padding(0, 1),
		Footer: lipgloss.NewStyle().
			Faint(true).
			Padding(0, 1),
		UserLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			MarginTop(1),
		AssistantLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(Accent).
			MarginTop(1),
		SystemMessage: lipgloss.NewStyle().
			Foreground(Warning).
			Italic(true),
		Muted:  lipgloss.NewStyle().Foreground(Muted),
		Accent: lipgloss.NewStyle().Foreground(Accent),
		Error:  lipgloss.NewStyle().Foreground(Danger),
		Sidebar: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(Border).
			Padding(0, 1),
		SidebarTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary),
		Canvas: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(0, 1),
		StatusWorking: lipgloss.NewStyle().Foreground(Warning),
		StatusDone:    lipgloss.NewStyle().Foreground(Accent),
		StatusError:   lipgloss.NewStyle().Foreground(Danger),
		StatusIdle:    lipgloss.NewStyle().Foreground(Muted),
		Chip: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Foreground(Muted).
			Padding(0, 1),
	}
}
