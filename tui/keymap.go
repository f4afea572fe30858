package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wricardo/mcp-training/evtaxi/game/engine"
)

// Command is what a key press asks the model to do
type Command int

const (
	CommandNone Command = iota
	CommandStep
	CommandReset
	CommandQuit
)

// KeyMapper translates Bubble Tea key messages to episode commands.
type KeyMapper struct{}

// NewKeyMapper creates a key mapper with the default bindings.
func NewKeyMapper() *KeyMapper {
	return &KeyMapper{}
}

// MapKey returns the command for a key and, for CommandStep, the action.
func (km *KeyMapper) MapKey(msg tea.KeyMsg) (Command, engine.Action) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return CommandQuit, 0
	case "r":
		return CommandReset, 0
	case "down", "s":
		return CommandStep, engine.ActionDown
	case "up", "w":
		return CommandStep, engine.ActionUp
	case "right", "d":
		return CommandStep, engine.ActionRight
	case "left", "a":
		return CommandStep, engine.ActionLeft
	}
	return CommandNone, 0
}
