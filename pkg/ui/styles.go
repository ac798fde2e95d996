package ui

import "github.com/charmbracelet/lipgloss"

// Styles groups the lipgloss styles the views use.
type Styles struct {
	Header    lipgloss.Style
	Subtle    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Source    lipgloss.Style
	Error     lipgloss.Style
	Notice    lipgloss.Style
	Controls  lipgloss.Style
	Input     lipgloss.Style
}

func DefaultStyles() Styles {
	primary := lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	muted := lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}

	return Styles{
		Header:    lipgloss.NewStyle().Bold(true).Foreground(primary),
		Subtle:    lipgloss.NewStyle().Foreground(muted),
		User:      lipgloss.NewStyle().Bold(true).Foreground(primary),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A78BFA")),
		Source:    lipgloss.NewStyle().Foreground(lipgloss.Color("#93C5FD")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FCA5A5")).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#EF4444")).Padding(0, 1),
		Notice:    lipgloss.NewStyle().Foreground(lipgloss.Color("#93C5FD")),
		Controls:  lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, true, false).BorderForeground(muted),
		Input:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(primary).Padding(0, 1),
	}
}

// PlainStyles renders without colors or borders, for line-oriented output.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:    plain,
		Subtle:    plain,
		User:      plain,
		Assistant: plain,
		Source:    plain,
		Error:     plain,
		Notice:    plain,
		Controls:  plain,
		Input:     plain,
	}
}
