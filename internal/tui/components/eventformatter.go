package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-sdrtx/internal/tui/colors"
)

type EventKind int

const (
	EventTransmit EventKind = iota
	EventConfig
)

type EventStatus string

const (
	StatusPending      EventStatus = "PENDING"
	StatusTransmitting EventStatus = "TRANSMITTING"
	StatusDone         EventStatus = "DONE"
	StatusError        EventStatus = "ERROR"
)

// Event is one line of the console log
type Event struct {
	ID        int
	Timestamp time.Time
	Kind      EventKind
	Status    EventStatus
	Codewords int
	Bytes     int
	Text      string
	Err       error
}

type EventFormatter struct {
	showTimestamps bool
}

func NewEventFormatter(showTimestamps bool) *EventFormatter {
	return &EventFormatter{showTimestamps: showTimestamps}
}

func (f *EventFormatter) ToggleTimestamps() {
	f.showTimestamps = !f.showTimestamps
}

func (f *EventFormatter) indicator(ev Event) string {
	if ev.Kind == EventConfig {
		color := colors.Sky
		if ev.Err != nil {
			color = colors.Red
		}
		return lipgloss.NewStyle().Foreground(color).Bold(true).Render("⚙ CFG")
	}

	var color lipgloss.Color
	var text string
	switch ev.Status {
	case StatusPending:
		color, text = colors.Yellow, "TX ○"
	case StatusTransmitting:
		color, text = colors.Peach, "TX ●"
	case StatusDone:
		color, text = colors.Green, "TX ✓"
	case StatusError:
		color, text = colors.Red, "TX ✗"
	default:
		color, text = colors.Blue, "TX"
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render("↗ " + text)
}

func (f *EventFormatter) FormatEvent(ev Event) string {
	var body string
	switch {
	case ev.Err != nil:
		body = lipgloss.NewStyle().Foreground(colors.Red).Render(ev.Err.Error())
	case ev.Kind == EventTransmit:
		body = fmt.Sprintf("%d codewords", ev.Codewords)
		if ev.Bytes > 0 {
			body += fmt.Sprintf(", %d bytes", ev.Bytes)
		}
	default:
		body = ev.Text
	}

	line := fmt.Sprintf("%s %s", f.indicator(ev), body)
	if !f.showTimestamps {
		return line
	}

	ts := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Render(fmt.Sprintf("[%s]", ev.Timestamp.Format("15:04:05.000")))
	return ts + " " + line
}

func (f *EventFormatter) FormatEvents(events []Event) []string {
	formatted := make([]string, len(events))
	for i, ev := range events {
		formatted[i] = f.FormatEvent(ev)
	}
	return formatted
}
