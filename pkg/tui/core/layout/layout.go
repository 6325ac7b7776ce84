package layout

import (
	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

// Sizeable represents components that can be resized
type Sizeable interface {
	SetSize(width, height int) tea.Cmd
}

// Help represents components that provide help information
type Help interface {
	Bindings() []key.Binding
	Help() help.KeyMap
}

// Model is the base interface for page models. Pages render to a string and
// are composed into the top-level view by the app model.
type Model interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Model, tea.Cmd)
	View() string
	Sizeable
}
