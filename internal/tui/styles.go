package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#1d4ed8", Dark: "#60a5fa"}
	colorAccent  = lipgloss.AdaptiveColor{Light: "#7c3aed", Dark: "#c4b5fd"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#15803d", Dark: "#4ade80"}
	colorError   = lipgloss.AdaptiveColor{Light: "#b91c1c", Dark: "#f87171"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#9ca3af"}
)

// Styles bundles the lipgloss styles used by the chat view.
type Styles struct {
	Header    lipgloss.Style
	Badge     lipgloss.Style
	UserLabel lipgloss.Style
	BotLabel  lipgloss.Style
	UserInput lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	SQLPanel  lipgloss.Style
	SQLEdit   lipgloss.Style
	InputBox  lipgloss.Style
	Bar       lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(colorPrimary).
			Padding(0, 1),
		Badge: lipgloss.NewStyle().
			Foreground(colorAccent),
		UserLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			MarginTop(1),
		BotLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			MarginTop(1),
		UserInput: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#111827", Dark: "#e5e7eb"}),
		Muted:   lipgloss.NewStyle().Foreground(colorMuted),
		Success: lipgloss.NewStyle().Foreground(colorSuccess),
		Error:   lipgloss.NewStyle().Foreground(colorError),
		SQLPanel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1),
		SQLEdit: lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1),
		InputBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1),
		Bar: lipgloss.NewStyle().Foreground(colorPrimary),
	}
}
