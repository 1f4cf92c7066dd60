package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-sdrtx/internal/tui/colors"
	"github.com/allbin/go-sdrtx/internal/tui/styles"
)

type StatusBar struct {
	title      string
	device     string
	state      styles.StateType
	correction float64
	message    string
	err        error
	width      int
}

func NewStatusBar(title string) *StatusBar {
	return &StatusBar{
		title:   title,
		message: "Initializing...",
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetState(state styles.StateType, device string, correction float64) {
	sb.state = state
	sb.device = device
	sb.correction = correction
}

func (sb *StatusBar) SetMessage(message string, err error) {
	sb.message = message
	sb.err = err
}

func (sb *StatusBar) State() styles.StateType {
	return sb.state
}

// View renders a single status line: state, title, device, message on the
// left and correction plus timestamp on the right
func (sb *StatusBar) View(timestamp string) string {
	width := sb.width
	if width <= 0 {
		width = 80
	}

	stateColor := colors.Red
	switch sb.state {
	case styles.StateReady:
		stateColor = colors.Blue
	case styles.StateKeyed:
		stateColor = colors.Peach
	}
	state := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(stateColor).
		Bold(true).
		Padding(0, 1).
		Render(sb.state.String())

	title := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(sb.title)

	device := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render("📻 " + deviceName(sb.device))

	msgStyle := lipgloss.NewStyle().Foreground(colors.Subtext1).Padding(0, 1)
	if sb.err != nil {
		msgStyle = msgStyle.Foreground(colors.Red)
	}
	message := msgStyle.Render(sb.message)

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	correction := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(fmt.Sprintf("%+.2f ppm", sb.correction))

	clock := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)

	left := lipgloss.JoinHorizontal(lipgloss.Left, state, title, device, divider, message)
	right := lipgloss.JoinHorizontal(lipgloss.Left, divider, correction, divider, clock)

	spacerWidth := width - lipgloss.Width(left) - lipgloss.Width(right)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(width).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, left, spacer, right))
}
