// Package turnlist renders a session transcript as a virtualized scrolling
// list: only a window of the newest turns is materialized at first, older
// turns stream in during idle time, and the scroll anchor survives both the
// backfill and external transcript changes.
package turnlist

import (
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"

	"github.com/coderelay/relay/pkg/transcript"
	"github.com/coderelay/relay/pkg/tui/components/scrollview"
	"github.com/coderelay/relay/pkg/tui/components/turncard"
	"github.com/coderelay/relay/pkg/tui/core"
	"github.com/coderelay/relay/pkg/tui/messages"
	"github.com/coderelay/relay/pkg/turns"
)

// turnGap is the number of blank lines between rendered turns.
const turnGap = 1

// KeyMap defines the transcript navigation keys beyond plain scrolling.
type KeyMap struct {
	PrevTurn key.Binding
	NextTurn key.Binding
	Oldest   key.Binding
	Latest   key.Binding
	CopyTurn key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		PrevTurn: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous turn")),
		NextTurn: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next turn")),
		Oldest:   key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "oldest")),
		Latest:   key.NewBinding(key.WithKeys("G"), key.WithHelp("G", "latest")),
		CopyTurn: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy turn")),
	}
}

type renderedItem struct {
	view   string
	height int
	width  int
}

type Option func(*List)

// WithWindowOptions tunes the materialization window.
func WithWindowOptions(opts ...turns.WindowOption) Option {
	return func(l *List) { l.windowOpts = opts }
}

// WithTheme sets the markdown theme used for turn rendering.
func WithTheme(theme string) Option { return func(l *List) { l.theme = theme } }

// WithHideToolOutput collapses tool turns to one-line summaries.
func WithHideToolOutput(v bool) Option { return func(l *List) { l.hideToolOutput = v } }

// WithLocation wires the durable fragment slot for the attached session.
func WithLocation(loc turns.Location) Option { return func(l *List) { l.loc = loc } }

// WithPendingStore wires the one-shot jump marker source.
func WithPendingStore(p turns.PendingStore) Option { return func(l *List) { l.pending = p } }

// List is the virtualized transcript view. It implements turns.Viewport so
// the windowing engine can measure and correct it.
type List struct {
	feed *transcript.Feed
	sv   *scrollview.Model

	win      *turns.Window
	backfill *turns.Backfiller
	anchor   *turns.Anchor
	resolver *turns.Resolver

	loc        turns.Location
	pending    turns.PendingStore
	windowOpts []turns.WindowOption

	theme          string
	hideToolOutput bool
	keyMap         KeyMap

	width, height int

	rendered map[string]renderedItem
	offsets  []turns.TurnOffset
}

// New creates a transcript list over a feed. frameSched and idleSched come
// from the hosting program so all deferred work re-enters the update loop.
func New(feed *transcript.Feed, frameSched turns.FrameScheduler, idleSched turns.IdleScheduler, opts ...Option) *List {
	l := &List{
		feed:     feed,
		sv:       scrollview.New(scrollview.WithReserveScrollbarSpace(true)),
		keyMap:   DefaultKeyMap(),
		rendered: make(map[string]renderedItem),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.win = turns.NewWindow(l.windowOpts...)

	viewportFn := func() turns.Viewport {
		if l.width <= 0 || l.height <= 0 {
			return nil
		}
		return l
	}
	indexOf := func(id string) (int, bool) {
		for i, candidate := range l.feed.IDs() {
			if candidate == id {
				return i, true
			}
		}
		return 0, false
	}

	l.anchor = turns.NewAnchor(l.win, frameSched, viewportFn, indexOf, l.loc, l.rebuild)
	l.backfill = turns.NewBackfiller(l.win, idleSched, frameSched, viewportFn, l.rebuild)
	l.resolver = turns.NewResolver(l.anchor, l.loc, l.pending)
	return l
}

// turns.Viewport implementation. Offsets are relative to the content buffer.

func (l *List) ScrollTop() int                  { return l.sv.ScrollOffset() }
func (l *List) SetScrollTop(top int)            { l.sv.SetScrollOffset(top) }
func (l *List) ScrollHeight() int               { return l.sv.TotalHeight() }
func (l *List) ClientHeight() int               { return l.sv.VisibleHeight() }
func (l *List) TurnOffsets() []turns.TurnOffset { return l.offsets }

// Attach points the list at the feed's currently attached session: the
// window re-anchors to the newest turns, idle backfill starts, and any
// fragment or pending jump marker is resolved once the data allows.
func (l *List) Attach(sessionID string) {
	l.backfill.Cancel()
	l.anchor.Detach()
	clear(l.rendered)

	l.win.Reset(l.feed.Len())
	l.rebuild()
	if l.anchor.Following() {
		l.sv.ScrollToBottom()
	}

	l.resolver.Attach(sessionID)
	l.resolver.Sync(l.feed.IDs(), l.feed.Ready())
	l.backfill.Kick()
}

// HandleFeedChange reconciles the list after the feed was refreshed: new
// turns appear, a revert may have shortened the sequence.
func (l *List) HandleFeedChange() {
	// Rendered blocks may be stale (a revert can reuse positions, and
	// streaming turns grow); drop cached entries for ids no longer loaded.
	loaded := make(map[string]bool, l.feed.Len())
	for _, id := range l.feed.IDs() {
		loaded[id] = true
	}
	for id := range l.rendered {
		if !loaded[id] {
			delete(l.rendered, id)
		}
	}

	l.rebuild()
	if l.anchor.Following() {
		l.sv.ScrollToBottom()
	}
	l.resolver.Sync(l.feed.IDs(), l.feed.Ready())
	l.backfill.Kick()
}

// RestoreOffset applies a persisted scroll position when no fragment-based
// restore applies. A position away from the bottom pins the view, exactly as
// if the user had scrolled there.
func (l *List) RestoreOffset(top int) {
	if top <= 0 {
		return
	}
	l.sv.SetScrollOffset(top)
	l.anchor.MarkGesture()
	l.anchor.HandleScroll()
}

// Detach cancels scheduled work. Call before switching sessions or closing.
func (l *List) Detach() {
	l.backfill.Cancel()
	l.anchor.Detach()
}

// Focused returns the focused turn id, or "" when following the bottom.
func (l *List) Focused() string { return l.anchor.Focused() }

// Following reports whether the view tracks the transcript bottom.
func (l *List) Following() bool { return l.anchor.Following() }

// ScrollToTurn navigates to a turn by id.
func (l *List) ScrollToTurn(id string) {
	l.anchor.ScrollToTurn(id, turns.BehaviorImmediate)
}

func (l *List) SetSize(width, height int) tea.Cmd {
	widthChanged := width != l.width
	l.width = width
	l.height = height
	l.sv.SetSize(width, height)
	if widthChanged {
		clear(l.rendered) // cached blocks are width-dependent
	}
	l.rebuild()
	return nil
}

// SetPosition sets the absolute screen position for mouse hit-testing.
func (l *List) SetPosition(x, y int) {
	l.sv.SetPosition(x, y)
}

func (l *List) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case messages.WheelCoalescedMsg:
		l.anchor.MarkGesture()
		if handled, cmd := l.sv.Update(msg); handled {
			l.anchor.HandleScroll()
			return cmd
		}

	case tea.MouseClickMsg, tea.MouseMotionMsg, tea.MouseReleaseMsg:
		l.anchor.MarkGesture()
		if handled, cmd := l.sv.Update(msg); handled {
			l.anchor.HandleScroll()
			return cmd
		}

	case tea.KeyPressMsg:
		switch {
		case key.Matches(msg, l.keyMap.PrevTurn):
			l.anchor.NavigateByOffset(l.visibleIDs(), -1)
			return nil
		case key.Matches(msg, l.keyMap.NextTurn):
			l.anchor.NavigateByOffset(l.visibleIDs(), 1)
			return nil
		case key.Matches(msg, l.keyMap.Oldest):
			// Jump to the very first loaded turn, expanding the window to it.
			if ids := l.feed.IDs(); len(ids) > 0 {
				l.anchor.ScrollToTurn(ids[0], turns.BehaviorImmediate)
			}
			return nil
		case key.Matches(msg, l.keyMap.Latest):
			l.anchor.Resume()
			return nil
		case key.Matches(msg, l.keyMap.CopyTurn):
			return l.copyFocused()
		}

		l.anchor.MarkGesture()
		if handled, cmd := l.sv.Update(msg); handled {
			l.anchor.HandleScroll()
			return cmd
		}
	}
	return nil
}

func (l *List) View() string {
	return l.sv.View()
}

// Bindings returns the transcript key bindings for the help footer.
func (l *List) Bindings() []key.Binding {
	return []key.Binding{
		l.keyMap.PrevTurn,
		l.keyMap.NextTurn,
		l.keyMap.Oldest,
		l.keyMap.Latest,
		l.keyMap.CopyTurn,
	}
}

func (l *List) Help() help.KeyMap {
	return core.NewSimpleHelp(l.Bindings())
}

func (l *List) visibleIDs() []string {
	return turns.Visible(l.win, l.feed.IDs())
}

func (l *List) copyFocused() tea.Cmd {
	focused := l.anchor.Focused()
	if focused == "" {
		return nil
	}
	for _, turn := range l.feed.Turns() {
		if turn.ID == focused {
			if err := clipboard.WriteAll(turn.Content); err != nil {
				return core.CmdHandler(messages.StatusMsg{Text: "copy failed: " + err.Error()})
			}
			return core.CmdHandler(messages.StatusMsg{Text: "turn copied"})
		}
	}
	return nil
}

// rebuild re-renders the materialized window into the scrollview buffer and
// recomputes the turn offsets. Runs synchronously so callers can measure the
// result right after a window mutation.
func (l *List) rebuild() {
	if l.width <= 0 {
		return
	}

	visible := turns.Visible(l.win, l.feed.Turns())
	contentWidth := l.sv.ContentWidth()

	var lines []string
	offsets := make([]turns.TurnOffset, 0, len(visible))

	for i, turn := range visible {
		item, ok := l.rendered[turn.ID]
		if !ok || item.width != contentWidth {
			card := turncard.New(turn,
				turncard.WithTheme(l.theme),
				turncard.WithHideToolOutput(l.hideToolOutput && turn.Role == transcript.RoleTool),
			)
			view := card.Render(contentWidth)
			item = renderedItem{
				view:   view,
				height: strings.Count(view, "\n") + 1,
				width:  contentWidth,
			}
			l.rendered[turn.ID] = item
		}

		if i > 0 {
			for range turnGap {
				lines = append(lines, "")
			}
		}
		offsets = append(offsets, turns.TurnOffset{ID: turn.ID, Top: len(lines)})
		lines = append(lines, strings.Split(item.view, "\n")...)
	}

	l.offsets = offsets
	l.sv.SetContent(lines, len(lines))
}
