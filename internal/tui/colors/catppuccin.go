package colors

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha palette used by the console
var (
	// Base colors
	Base     = lipgloss.Color("#1e1e2e") // Dark background
	Surface0 = lipgloss.Color("#313244") // Surface colors
	Surface1 = lipgloss.Color("#45475a")
	Surface2 = lipgloss.Color("#585b70")
	Overlay0 = lipgloss.Color("#6c7086")
	Subtext0 = lipgloss.Color("#a6adc8") // Text colors
	Subtext1 = lipgloss.Color("#bac2de")
	Text     = lipgloss.Color("#cdd6f4") // Main text

	// Accent colors
	Blue   = lipgloss.Color("#89b4fa") // idle
	Sky    = lipgloss.Color("#89dceb") // configuration events
	Green  = lipgloss.Color("#a6e3a1") // ready, done
	Yellow = lipgloss.Color("#f9e2af") // pending
	Peach  = lipgloss.Color("#fab387") // keyed
	Red    = lipgloss.Color("#f38ba8") // errors
	Mauve  = lipgloss.Color("#cba6f7") // titles
)
