package models

import (
	"math"
	"sync"
	"time"

	"github.com/allbin/go-sdrtx"
	"github.com/allbin/go-sdrtx/encoder"
	"github.com/allbin/go-sdrtx/internal/tui/components"
)

// maxEvents bounds the console history
const maxEvents = 500

// Transmitter is the part of *sdrtx.Controller the console drives
type Transmitter interface {
	Status() sdrtx.Status
	Send(codewords []int) (int, error)
	SetCorrection(ppm float64)
	Correction() float64
}

var _ Transmitter = (*sdrtx.Controller)(nil)

// ReloadFunc re-initializes the transmitter from its configuration
type ReloadFunc func() error

// ConsoleModel holds the transmitter console state. Transmissions run off
// the UI goroutine, so event updates are guarded.
type ConsoleModel struct {
	tx     Transmitter
	reload ReloadFunc
	now    func() time.Time

	mu     sync.RWMutex
	events []components.Event
	nextID int
	busy   bool
}

func NewConsoleModel(tx Transmitter, reload ReloadFunc) *ConsoleModel {
	return &ConsoleModel{
		tx:     tx,
		reload: reload,
		now:    time.Now,
	}
}

func (m *ConsoleModel) Status() sdrtx.Status {
	return m.tx.Status()
}

func (m *ConsoleModel) Events() []components.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]components.Event(nil), m.events...)
}

func (m *ConsoleModel) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

func (m *ConsoleModel) IsBusy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.busy
}

func (m *ConsoleModel) addEvent(ev components.Event) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	ev.ID = m.nextID
	ev.Timestamp = m.now()
	m.events = append(m.events, ev)
	if len(m.events) > maxEvents {
		m.events = m.events[len(m.events)-maxEvents:]
	}
	return ev.ID
}

func (m *ConsoleModel) updateEvent(id int, fn func(*components.Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.events {
		if m.events[i].ID == id {
			fn(&m.events[i])
			return
		}
	}
}

// BeginTestPage records a pending test page transmission and marks the
// console busy. It returns 0 when a transmission is already running.
func (m *ConsoleModel) BeginTestPage() int {
	m.mu.Lock()
	if m.busy {
		m.mu.Unlock()
		return 0
	}
	m.busy = true
	m.mu.Unlock()

	return m.addEvent(components.Event{
		Kind:      components.EventTransmit,
		Status:    components.StatusPending,
		Codewords: len(encoder.TestPage()),
	})
}

// SendTestPage sends the test page for the event returned
// by BeginTestPage. It blocks until the transmission is over.
func (m *ConsoleModel) SendTestPage(id int) error {
	defer func() {
		m.mu.Lock()
		m.busy = false
		m.mu.Unlock()
	}()

	fail := func(err error) error {
		m.updateEvent(id, func(ev *components.Event) {
			ev.Status = components.StatusError
			ev.Err = err
		})
		return err
	}

	m.updateEvent(id, func(ev *components.Event) {
		ev.Status = components.StatusTransmitting
	})

	n, err := m.tx.Send(encoder.TestPage())
	if err != nil {
		return fail(err)
	}

	m.updateEvent(id, func(ev *components.Event) {
		ev.Status = components.StatusDone
		ev.Bytes = n
	})
	return nil
}

// Reload re-initializes the transmitter and logs the outcome
func (m *ConsoleModel) Reload() error {
	if m.reload == nil {
		return nil
	}

	err := m.reload()
	ev := components.Event{Kind: components.EventConfig, Text: "configuration reloaded", Err: err}
	m.addEvent(ev)
	return err
}

// AdjustCorrection changes the encoder correction by delta ppm, rounded
// to 0.01 ppm, and returns the new value
func (m *ConsoleModel) AdjustCorrection(delta float64) float64 {
	ppm := math.Round((m.tx.Correction()+delta)*100) / 100
	m.tx.SetCorrection(ppm)
	return m.tx.Correction()
}
