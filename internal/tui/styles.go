// Package tui renders a record browser as an interactive terminal page.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	primary     = lipgloss.AdaptiveColor{Light: "#1F3A5F", Dark: "#8BC34A"}
	border      = lipgloss.AdaptiveColor{Light: "#DCE0E5", Dark: "#2A3850"}
	muted       = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#8A94A6"}
	destructive = lipgloss.Color("#E53935")
	success     = lipgloss.Color("#43A047")
	warning     = lipgloss.Color("#FFC107")
)

// Styles groups the lipgloss styles used by the page.
type Styles struct {
	Header  lipgloss.Style
	Metric  lipgloss.Style
	Label   lipgloss.Style
	Content lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Prompt  lipgloss.Style
	Active  lipgloss.Style
	Input   lipgloss.Style
	Focused lipgloss.Style
}

// DefaultStyles returns the styles for the current terminal background.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(primary),
		Metric:  lipgloss.NewStyle().Bold(true).Foreground(primary),
		Label:   lipgloss.NewStyle().Foreground(muted),
		Content: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(border),
		Muted:   lipgloss.NewStyle().Foreground(muted),
		Error:   lipgloss.NewStyle().Foreground(destructive),
		Success: lipgloss.NewStyle().Foreground(success),
		Prompt:  lipgloss.NewStyle().Bold(true).Foreground(warning),
		Active:  lipgloss.NewStyle().Foreground(primary).Bold(true).Underline(true),
		Input:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border).Padding(0, 1),
		Focused: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(primary).Padding(0, 1),
	}
}
