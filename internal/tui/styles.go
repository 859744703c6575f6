package tui

import "github.com/charmbracelet/lipgloss"

var (
	primary   = lipgloss.Color("#7D56F4")
	muted     = lipgloss.Color("#6C7086")
	errorText = lipgloss.Color("#F38BA8")
	success   = lipgloss.Color("#A6E3A1")
)

type styles struct {
	Title       lipgloss.Style
	StepCurrent lipgloss.Style
	StepReached lipgloss.Style
	StepPending lipgloss.Style
	Label       lipgloss.Style
	Disabled    lipgloss.Style
	Error       lipgloss.Style
	Divisor     lipgloss.Style
	Price       lipgloss.Style
	Help        lipgloss.Style
	Box         lipgloss.Style
}

func newStyles() styles {
	return styles{
		Title:       lipgloss.NewStyle().Foreground(primary).Bold(true).MarginBottom(1),
		StepCurrent: lipgloss.NewStyle().Foreground(primary).Bold(true),
		StepReached: lipgloss.NewStyle().Foreground(lipgloss.Color("#CDD6F4")),
		StepPending: lipgloss.NewStyle().Foreground(muted),
		Label:       lipgloss.NewStyle().Bold(true),
		Disabled:    lipgloss.NewStyle().Foreground(muted).Italic(true),
		Error:       lipgloss.NewStyle().Foreground(errorText),
		Divisor:     lipgloss.NewStyle().Foreground(success).Bold(true),
		Price:       lipgloss.NewStyle().Foreground(success),
		Help:        lipgloss.NewStyle().Foreground(muted).MarginTop(1),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Padding(1, 2),
	}
}
