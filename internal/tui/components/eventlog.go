package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// EventLog is a scrolling view of console events
type EventLog struct {
	viewport  viewport.Model
	formatter *EventFormatter
}

func NewEventLog(width, height int) *EventLog {
	return &EventLog{
		viewport:  viewport.New(width, height),
		formatter: NewEventFormatter(true),
	}
}

func (l *EventLog) SetSize(width, height int) {
	l.viewport.Width = width
	l.viewport.Height = height
}

// Refresh redraws the log from events and follows the newest one
func (l *EventLog) Refresh(events []Event) {
	l.viewport.SetContent(strings.Join(l.formatter.FormatEvents(events), "\n"))
	l.viewport.GotoBottom()
}

func (l *EventLog) Update(msg tea.Msg) (viewport.Model, tea.Cmd) {
	// Key presses belong to the console, only resizes and mouse wheel go to the viewport.
	switch msg.(type) {
	case tea.WindowSizeMsg, tea.MouseMsg:
		var cmd tea.Cmd
		l.viewport, cmd = l.viewport.Update(msg)
		return l.viewport, cmd
	default:
		return l.viewport, nil
	}
}

func (l *EventLog) View() string {
	return l.viewport.View()
}
