// Package session is the transcript page: one session's turns rendered
// through the virtualized turn list, with a title header and help footer.
package session

import (
	"fmt"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/coderelay/relay/pkg/transcript"
	"github.com/coderelay/relay/pkg/tui/components/turnlist"
	"github.com/coderelay/relay/pkg/tui/core"
	"github.com/coderelay/relay/pkg/tui/core/layout"
	"github.com/coderelay/relay/pkg/tui/messages"
	"github.com/coderelay/relay/pkg/tui/styles"
)

// KeyMap defines the page-level key bindings; scrolling and turn navigation
// live in the turn list.
type KeyMap struct {
	Back key.Binding
	Quit key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Back: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// Page shows one session transcript.
type Page struct {
	sess *transcript.Session
	list *turnlist.List

	status string

	width, height int
	keyMap        KeyMap
	help          help.Model
}

func New(sess *transcript.Session, list *turnlist.List) *Page {
	return &Page{
		sess:   sess,
		list:   list,
		keyMap: DefaultKeyMap(),
		help:   help.New(),
	}
}

// SessionID returns the displayed session's id.
func (p *Page) SessionID() string { return p.sess.ID }

// List exposes the turn list for view-state persistence on close.
func (p *Page) List() *turnlist.List { return p.list }

func (p *Page) Init() tea.Cmd {
	return nil
}

func (p *Page) Update(msg tea.Msg) (layout.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.TranscriptChangedMsg:
		p.list.HandleFeedChange()
		return p, nil

	case messages.StatusMsg:
		p.status = msg.Text
		return p, nil

	case messages.WheelCoalescedMsg, tea.MouseClickMsg, tea.MouseMotionMsg, tea.MouseReleaseMsg:
		return p, p.list.Update(msg)

	case tea.KeyPressMsg:
		switch {
		case key.Matches(msg, p.keyMap.Back):
			return p, core.CmdHandler(messages.CloseSessionMsg{})
		case key.Matches(msg, p.keyMap.Quit):
			return p, tea.Quit
		}
		p.status = ""
		return p, p.list.Update(msg)
	}
	return p, nil
}

func (p *Page) SetSize(width, height int) tea.Cmd {
	p.width = width
	p.height = height
	innerWidth := width - 2*styles.AppPadding
	p.help.SetWidth(innerWidth)
	// title(1) + blank(1) + footer(1)
	cmd := p.list.SetSize(innerWidth, max(1, height-3))
	p.list.SetPosition(styles.AppPadding, 2)
	return cmd
}

func (p *Page) View() string {
	title := p.sess.Title
	if title == "" {
		title = "Untitled"
	}
	header := styles.TitleStyle.Render(title) + styles.MutedStyle.Render("  "+p.sess.ID)

	var footer string
	switch {
	case p.status != "":
		footer = styles.SecondaryStyle.Render(p.status)
	case !p.list.Following():
		marker := styles.FocusedMarkStyle.Render("● pinned")
		footer = marker + styles.HelpStyle.Render("  ·  ") + p.help.View(p.Help())
	default:
		footer = p.help.View(p.Help())
	}

	return styles.AppStyle.Render(fmt.Sprintf("%s\n\n%s\n%s", header, p.list.View(), footer))
}

func (p *Page) Bindings() []key.Binding {
	return append(p.list.Bindings(), p.keyMap.Back)
}

func (p *Page) Help() help.KeyMap {
	return core.NewSimpleHelp(p.Bindings())
}
