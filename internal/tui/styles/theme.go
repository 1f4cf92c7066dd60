package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-sdrtx/internal/tui/colors"
)

var (
	// Header styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Background(colors.Surface0).
			Padding(0, 1)

	// State styles
	StateReadyStyle = lipgloss.NewStyle().
			Foreground(colors.Green).
			Bold(true)

	StateKeyedStyle = lipgloss.NewStyle().
			Foreground(colors.Peach).
			Bold(true)

	StateUninitializedStyle = lipgloss.NewStyle().
				Foreground(colors.Red).
				Bold(true)

	// Content area styles
	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	// Error styles
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Red)

	// Info styles
	InfoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve)

	MutedStyle = lipgloss.NewStyle().
			Foreground(colors.Overlay0)
)

type StateType int

const (
	StateUninitialized StateType = iota
	StateReady
	StateKeyed
	StateError
)

func (s StateType) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StateKeyed:
		return "KEYED"
	case StateError:
		return "ERROR"
	default:
		return "UNINIT"
	}
}

func GetStateStyle(state StateType) lipgloss.Style {
	switch state {
	case StateReady:
		return StateReadyStyle
	case StateKeyed:
		return StateKeyedStyle
	default:
		return StateUninitializedStyle
	}
}
