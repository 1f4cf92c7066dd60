/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/allbin/go-sdrtx"
	"github.com/allbin/go-sdrtx/internal/tui/components"
	"github.com/allbin/go-sdrtx/internal/tui/keys"
	"github.com/allbin/go-sdrtx/internal/tui/models"
	"github.com/allbin/go-sdrtx/internal/tui/styles"
)

const correctionStep = 0.1

// consoleCmd represents the console command
var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive transmitter console",
	Long: `Open an interactive console on the transmitter.

The console shows the owned resources, a log of transmissions and a status
bar with the device and clock correction. Keys:
  t    send a test page
  r    reload the configuration
  +/-  adjust the correction by 0.1 ppm
  c    clear the log
  ?    toggle help
  q    quit

Logging goes to log.file while the console runs, or is discarded when no
file is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stderr would corrupt the alt screen
		consoleLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
		if cfg.GetString(sdrtx.KeyLogFile) != "" {
			consoleLogger = logger
		}

		tx := sdrtx.New(sdrtx.WithLogger(consoleLogger))
		defer tx.Shutdown()

		reload := func() error {
			if cfg.ConfigFileUsed() != "" {
				if err := cfg.ReadInConfig(); err != nil {
					return err
				}
			}
			return tx.Initialize(cfg)
		}

		m := newConsoleModel(models.NewConsoleModel(tx, reload))
		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

type (
	tickMsg       time.Time
	reloadDoneMsg struct{ err error }
	transmitMsg   struct {
		id  int
		err error
	}
)

// consoleModel is the Bubble Tea model for the console command
type consoleModel struct {
	*models.ConsoleModel
	log       *components.EventLog
	statusBar *components.StatusBar
	help      help.Model
	keys      keys.ConsoleKeys
	width     int
	ready     bool
}

func newConsoleModel(state *models.ConsoleModel) *consoleModel {
	return &consoleModel{
		ConsoleModel: state,
		log:          components.NewEventLog(0, 0),
		statusBar:    components.NewStatusBar("sdrtx console"),
		help:         help.New(),
		keys:         keys.NewConsoleKeys(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *consoleModel) Init() tea.Cmd {
	return tea.Batch(m.reloadCmd(), tick())
}

func (m *consoleModel) reloadCmd() tea.Cmd {
	m.statusBar.SetMessage("Initializing...", nil)
	return func() tea.Msg {
		return reloadDoneMsg{err: m.Reload()}
	}
}

func (m *consoleModel) transmitCmd(id int) tea.Cmd {
	return func() tea.Msg {
		return transmitMsg{id: id, err: m.SendTestPage(id)}
	}
}

func (m *consoleModel) refreshState() {
	st := m.Status()
	state := styles.StateUninitialized
	switch {
	case m.IsBusy():
		state = styles.StateKeyed
	case st.Initialized:
		state = styles.StateReady
	}
	m.statusBar.SetState(state, st.Device, st.Correction)
}

func (m *consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.statusBar.SetWidth(msg.Width)
		m.log.SetSize(msg.Width, m.logHeight(msg.Height))
		m.ready = true

	case tickMsg:
		// Keeps the clock and the transmitting state current.
		m.refreshState()
		m.log.Refresh(m.Events())
		cmds = append(cmds, tick())

	case reloadDoneMsg:
		if msg.err != nil {
			m.statusBar.SetMessage(fmt.Sprintf("Initialization failed: %v", msg.err), msg.err)
		} else {
			m.statusBar.SetMessage("Ready", nil)
		}
		m.refreshState()
		m.log.Refresh(m.Events())

	case transmitMsg:
		if msg.err != nil {
			m.statusBar.SetMessage(fmt.Sprintf("Transmit failed: %v", msg.err), msg.err)
		} else {
			m.statusBar.SetMessage("Test page sent", nil)
		}
		m.refreshState()
		m.log.Refresh(m.Events())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll

		case key.Matches(msg, m.keys.TestPage):
			id := m.BeginTestPage()
			if id == 0 {
				m.statusBar.SetMessage("Transmission in progress", nil)
				break
			}
			m.statusBar.SetMessage("Transmitting test page...", nil)
			m.refreshState()
			m.log.Refresh(m.Events())
			cmds = append(cmds, m.transmitCmd(id))

		case key.Matches(msg, m.keys.Reload):
			if m.IsBusy() {
				m.statusBar.SetMessage("Transmission in progress", nil)
				break
			}
			cmds = append(cmds, m.reloadCmd())

		case key.Matches(msg, m.keys.CorrectionUp):
			ppm := m.AdjustCorrection(correctionStep)
			m.statusBar.SetMessage(fmt.Sprintf("Correction %+.2f ppm", ppm), nil)
			m.refreshState()

		case key.Matches(msg, m.keys.CorrectionDown):
			ppm := m.AdjustCorrection(-correctionStep)
			m.statusBar.SetMessage(fmt.Sprintf("Correction %+.2f ppm", ppm), nil)
			m.refreshState()

		case key.Matches(msg, m.keys.Clear):
			m.ClearEvents()
			m.log.Refresh(nil)
		}
	}

	if _, ok := msg.(tea.MouseMsg); ok {
		_, cmd := m.log.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// logHeight is what is left of height once the resource table, help and
// status bar are drawn
func (m *consoleModel) logHeight(height int) int {
	table := lipgloss.Height(components.NewResourceTable(m.Status()).View())
	h := height - table - 1 - 1 - 1
	if h < 3 {
		h = 3
	}
	return h
}

func (m *consoleModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	resources := components.NewResourceTable(m.Status()).View()
	content := styles.ContentBorderStyle.Width(m.width).Render(m.log.View())
	statusBar := m.statusBar.View(time.Now().Format("15:04:05"))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		resources,
		content,
		m.help.View(m.keys),
		statusBar,
	)
}
