// Package sessions is the session picker page: a scrollable list of stored
// sessions, newest first.
package sessions

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"

	"github.com/coderelay/relay/pkg/transcript"
	"github.com/coderelay/relay/pkg/tui/components/scrollview"
	"github.com/coderelay/relay/pkg/tui/core"
	"github.com/coderelay/relay/pkg/tui/core/layout"
	"github.com/coderelay/relay/pkg/tui/messages"
	"github.com/coderelay/relay/pkg/tui/styles"
	"github.com/coderelay/relay/pkg/viewstate"
)

// KeyMap defines key bindings for the session picker.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Open   key.Binding
	Delete key.Binding
	CopyID key.Binding
	Reload key.Binding
	Quit   key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Delete: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		CopyID: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy id")),
		Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type loadedMsg struct {
	summaries []transcript.Summary
	err       error
}

// Page lists the stored sessions and emits OpenSessionMsg for the selection.
type Page struct {
	store transcript.Store
	views *viewstate.Store

	sv        *scrollview.Model
	summaries []transcript.Summary
	selected  int
	err       error

	width, height int
	keyMap        KeyMap
	help          help.Model
}

func New(store transcript.Store, views *viewstate.Store) *Page {
	return &Page{
		store:  store,
		views:  views,
		sv:     scrollview.New(scrollview.WithReserveScrollbarSpace(true), scrollview.WithKeyMap(nil)),
		keyMap: DefaultKeyMap(),
		help:   help.New(),
	}
}

func (p *Page) Init() tea.Cmd {
	return p.load()
}

func (p *Page) load() tea.Cmd {
	return func() tea.Msg {
		summaries, err := p.store.GetSessionSummaries(context.Background())
		return loadedMsg{summaries: summaries, err: err}
	}
}

func (p *Page) Update(msg tea.Msg) (layout.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		p.summaries = msg.summaries
		p.err = msg.err
		if p.selected >= len(p.summaries) {
			p.selected = max(0, len(p.summaries)-1)
		}
		return p, nil

	case messages.WheelCoalescedMsg, tea.MouseClickMsg, tea.MouseMotionMsg, tea.MouseReleaseMsg:
		_, cmd := p.sv.Update(msg)
		return p, cmd

	case tea.KeyPressMsg:
		return p.handleKey(msg)
	}
	return p, nil
}

func (p *Page) handleKey(msg tea.KeyPressMsg) (layout.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, p.keyMap.Quit):
		return p, tea.Quit

	case key.Matches(msg, p.keyMap.Up):
		if p.selected > 0 {
			p.selected--
			p.sv.EnsureLineVisible(p.selected)
		}

	case key.Matches(msg, p.keyMap.Down):
		if p.selected < len(p.summaries)-1 {
			p.selected++
			p.sv.EnsureLineVisible(p.selected)
		}

	case key.Matches(msg, p.keyMap.Open):
		if p.selected >= 0 && p.selected < len(p.summaries) {
			return p, core.CmdHandler(messages.OpenSessionMsg{SessionID: p.summaries[p.selected].ID})
		}

	case key.Matches(msg, p.keyMap.Delete):
		if p.selected >= 0 && p.selected < len(p.summaries) {
			return p, p.deleteSelected(p.summaries[p.selected].ID)
		}

	case key.Matches(msg, p.keyMap.CopyID):
		if p.selected >= 0 && p.selected < len(p.summaries) {
			if err := clipboard.WriteAll(p.summaries[p.selected].ID); err == nil {
				return p, core.CmdHandler(messages.StatusMsg{Text: "session id copied"})
			}
		}

	case key.Matches(msg, p.keyMap.Reload):
		return p, p.load()
	}
	return p, nil
}

// deleteSelected removes the session and its persisted view state, then
// reloads the list.
func (p *Page) deleteSelected(sessionID string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if err := p.store.DeleteSession(ctx, sessionID); err != nil {
			return loadedMsg{summaries: p.summaries, err: err}
		}
		if p.views != nil {
			if err := p.views.DeleteSessionView(ctx, sessionID); err != nil {
				return loadedMsg{summaries: p.summaries, err: err}
			}
		}
		summaries, err := p.store.GetSessionSummaries(ctx)
		return loadedMsg{summaries: summaries, err: err}
	}
}

func (p *Page) SetSize(width, height int) tea.Cmd {
	p.width = width
	p.height = height
	p.help.SetWidth(width - 2*styles.AppPadding)
	innerWidth := width - 2*styles.AppPadding
	// title(1) + blank(1) + help(1)
	p.sv.SetSize(innerWidth, max(1, height-3))
	p.sv.SetPosition(styles.AppPadding, 2)
	return nil
}

func (p *Page) View() string {
	title := styles.TitleStyle.Render("Sessions")
	if len(p.summaries) > 0 {
		title += styles.MutedStyle.Render(fmt.Sprintf("  %d stored", len(p.summaries)))
	}

	var body string
	switch {
	case p.err != nil:
		body = styles.ErrorStyle.Render(p.err.Error())
	case len(p.summaries) == 0:
		body = styles.MutedStyle.Render("No sessions recorded yet.")
	default:
		lines := make([]string, len(p.summaries))
		for i, sum := range p.summaries {
			lines[i] = p.renderRow(sum, i == p.selected)
		}
		p.sv.SetContent(lines, len(lines))
		body = p.sv.View()
	}

	footer := p.help.View(p.Help())

	return styles.AppStyle.Render(title + "\n\n" + body + "\n" + footer)
}

func (p *Page) renderRow(sum transcript.Summary, selected bool) string {
	title := sum.Title
	if title == "" {
		title = "Untitled"
	}
	meta := fmt.Sprintf("  %d turns · %s", sum.TurnCount, relativeTime(sum.CreatedAt))

	if selected {
		return styles.SelectedStyle.Render("› "+title) + styles.MutedStyle.Render(meta)
	}
	return "  " + title + styles.MutedStyle.Render(meta)
}

func (p *Page) Bindings() []key.Binding {
	return []key.Binding{
		p.keyMap.Up,
		p.keyMap.Down,
		p.keyMap.Open,
		p.keyMap.Delete,
		p.keyMap.CopyID,
		p.keyMap.Quit,
	}
}

func (p *Page) Help() help.KeyMap {
	return core.NewSimpleHelp(p.Bindings())
}

func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}
