// Package tui lets a human drive one episode from the terminal.
// Arrow keys or WASD move the car, r starts a new episode and q quits.
package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wricardo/mcp-training/evtaxi/game/engine"
	"github.com/wricardo/mcp-training/evtaxi/game/render"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Model is the Bubble Tea model wrapping a single environment.
type Model struct {
	env      *engine.Environment
	keys     *KeyMapper
	snapshot engine.Snapshot
	message  string
	err      error
	quitting bool
}

// NewModel creates a model for an environment that already holds a reset episode.
func NewModel(env *engine.Environment) Model {
	return Model{
		env:      env,
		keys:     NewKeyMapper(),
		snapshot: env.Snapshot(),
		message:  "Pick up the passenger (P) and drive them to D",
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	cmd, action := m.keys.MapKey(key)
	switch cmd {
	case CommandQuit:
		m.quitting = true
		return m, tea.Quit
	case CommandReset:
		m.reset()
	case CommandStep:
		m.step(action)
	}

	return m, nil
}

func (m *Model) reset() {
	m.err = nil
	if _, err := m.env.Reset(); err != nil {
		m.err = err
		return
	}
	m.snapshot = m.env.Snapshot()
	m.message = "New episode"
}

func (m *Model) step(action engine.Action) {
	m.err = nil
	res, err := m.env.Step(action)
	if errors.Is(err, engine.ErrEpisodeDone) {
		m.message = "Episode finished, press r for a new one"
		return
	}
	if err != nil {
		m.err = err
		return
	}

	m.snapshot = m.env.Snapshot()
	m.message = describe(action, res)
}

func describe(action engine.Action, res engine.StepResult) string {
	var msg string
	switch res.Outcome {
	case engine.OutcomeObstacle:
		msg = "Hit an obstacle"
	case engine.OutcomeCharge:
		msg = "Charged to full"
	case engine.OutcomePickup:
		msg = "Passenger picked up"
	case engine.OutcomeDropoff:
		msg = "Passenger delivered!"
	default:
		msg = "Moved " + action.String()
	}
	if res.Depleted {
		msg += ", battery depleted"
	}
	return fmt.Sprintf("%s (%+.2f)", msg, res.Reward)
}

// View renders the grid, the last event and the key help.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("EV Taxi - " + m.snapshot.ConfigName))
	b.WriteString("\n\n")
	b.WriteString(render.FrameString(m.snapshot, true))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errStyle.Render(m.err.Error()))
	} else {
		b.WriteString(infoStyle.Render(m.message))
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("arrows/wasd: drive • r: new episode • q: quit"))
	b.WriteString("\n")
	return b.String()
}

// Snapshot returns the state shown by the last frame.
func (m Model) Snapshot() engine.Snapshot {
	return m.snapshot
}

// Run starts the Bubble Tea program for env.
func Run(env *engine.Environment) error {
	p := tea.NewProgram(NewModel(env), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
