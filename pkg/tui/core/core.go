package core

import (
	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

// simpleHelp implements help.KeyMap with a flat binding list
type simpleHelp struct {
	list []key.Binding
}

// NewSimpleHelp creates a help.KeyMap from a flat list of bindings
func NewSimpleHelp(list []key.Binding) help.KeyMap {
	return &simpleHelp{
		list,
	}
}

// ShortHelp implements help.KeyMap
func (s *simpleHelp) ShortHelp() []key.Binding {
	return s.list
}

// FullHelp implements help.KeyMap
func (s *simpleHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{}
}

// CmdHandler creates a command that returns the given message
func CmdHandler(msg tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return msg
	}
}
