// Package ui is the terminal control panel: destination fields, axis
// toggles and the live angle readout.
package ui

import (
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/relabs-tech/osc_bridge/internal/bridge"
	"github.com/relabs-tech/osc_bridge/internal/destination"
	"github.com/relabs-tech/osc_bridge/internal/orientation"
)

// Controller is the part of the bridge the panel drives. *bridge.Bridge
// satisfies it.
type Controller interface {
	ApplyEdit(hostText, portText string) (destination.Destination, error)
	SetAxis(axis orientation.Axis, enabled bool)
	Status() bridge.Status
}

const (
	fieldHost = iota
	fieldPort
)

// RefreshInterval is how often the readout polls the bridge.
const RefreshInterval = 100 * time.Millisecond

// KeyMap defines all keyboard shortcuts
type KeyMap struct {
	Next  key.Binding
	Prev  key.Binding
	Yaw   key.Binding
	Pitch key.Binding
	Roll  key.Binding
	Quit  key.Binding
}

var DefaultKeyMap = KeyMap{
	Next: key.NewBinding(
		key.WithKeys("tab", "down"),
		key.WithHelp("tab", "next field"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
		key.WithHelp("shift+tab", "previous field"),
	),
	Yaw: key.NewBinding(
		key.WithKeys("f1", "ctrl+y"),
		key.WithHelp("f1", "yaw"),
	),
	Pitch: key.NewBinding(
		key.WithKeys("f2", "ctrl+p"),
		key.WithHelp("f2", "pitch"),
	),
	Roll: key.NewBinding(
		key.WithKeys("f3", "ctrl+r"),
		key.WithHelp("f3", "roll"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "quit"),
	),
}

// Messages
type tickMsg time.Time

// editResultMsg carries the outcome of an ApplyEdit run off the UI loop.
type editResultMsg struct{ err error }

// Model represents the TUI application state
type Model struct {
	ctrl        Controller
	sourceState func() string

	inputs  []textinput.Model
	focused int

	status    bridge.Status
	editError string

	// At most one edit runs at a time. Keystrokes while it runs set
	// editPending, and the fields' latest values are applied when it
	// returns, so the last edit wins.
	editing     bool
	editPending bool

	width    int
	quitting bool
}

// NewModel creates a panel for ctrl. sourceState may be nil.
func NewModel(ctrl Controller, sourceState func() string) Model {
	status := ctrl.Status()

	host := textinput.New()
	host.Prompt = ""
	host.Placeholder = "127.0.0.1"
	host.CharLimit = 253
	host.Width = 30

	port := textinput.New()
	port.Prompt = ""
	port.Placeholder = "9000"
	port.CharLimit = 5
	port.Width = 8

	if d := status.Destination; d != nil {
		host.SetValue(d.Host)
		port.SetValue(strconv.Itoa(int(d.Port)))
	}
	host.Focus()

	return Model{
		ctrl:        ctrl,
		sourceState: sourceState,
		inputs:      []textinput.Model{host, port},
		status:      status,
	}
}

func tick() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tick())
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		m.status = m.ctrl.Status()
		return m, tick()

	case editResultMsg:
		m.editing = false
		if m.editPending {
			// result is stale, the fields changed meanwhile
			m.editPending = false
			cmd := m.startEdit()
			return m, cmd
		}
		if msg.err != nil {
			m.editError = msg.err.Error()
		} else {
			m.editError = ""
		}
		m.status = m.ctrl.Status()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, DefaultKeyMap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, DefaultKeyMap.Next):
			cmd := m.focus((m.focused + 1) % len(m.inputs))
			return m, cmd
		case key.Matches(msg, DefaultKeyMap.Prev):
			cmd := m.focus((m.focused + len(m.inputs) - 1) % len(m.inputs))
			return m, cmd
		case key.Matches(msg, DefaultKeyMap.Yaw):
			m.toggle(orientation.AxisYaw)
			return m, nil
		case key.Matches(msg, DefaultKeyMap.Pitch):
			m.toggle(orientation.AxisPitch)
			return m, nil
		case key.Matches(msg, DefaultKeyMap.Roll):
			m.toggle(orientation.AxisRoll)
			return m, nil
		}
	}

	// Everything else goes to the focused field. Every change is applied;
	// an invalid value just leaves the previous destination live.
	before := m.inputs[m.focused].Value()
	var cmd tea.Cmd
	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	if m.inputs[m.focused].Value() == before {
		return m, cmd
	}
	if m.editing {
		m.editPending = true
		return m, cmd
	}
	edit := m.startEdit()
	return m, tea.Batch(cmd, edit)
}

func (m *Model) focus(i int) tea.Cmd {
	m.inputs[m.focused].Blur()
	m.focused = i
	return m.inputs[i].Focus()
}

func (m *Model) toggle(axis orientation.Axis) {
	axes := m.ctrl.Status().Axes
	var enabled bool
	switch axis {
	case orientation.AxisYaw:
		enabled = axes.Yaw
	case orientation.AxisPitch:
		enabled = axes.Pitch
	case orientation.AxisRoll:
		enabled = axes.Roll
	}
	m.ctrl.SetAxis(axis, !enabled)
	m.status = m.ctrl.Status()
}

// startEdit applies the current field values in a command, since a host
// lookup can take up to the resolve timeout.
func (m *Model) startEdit() tea.Cmd {
	m.editing = true
	ctrl := m.ctrl
	host, port := m.inputs[fieldHost].Value(), m.inputs[fieldPort].Value()
	return func() tea.Msg {
		_, err := ctrl.ApplyEdit(host, port)
		return editResultMsg{err: err}
	}
}
