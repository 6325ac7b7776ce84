// Package tui provides the top-level TUI model: a session picker and the
// transcript page, plus the program-level plumbing for frame scheduling,
// wheel coalescing and transcript change notifications.
package tui

import (
	"context"
	"log/slog"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/coderelay/relay/pkg/transcript"
	"github.com/coderelay/relay/pkg/tui/components/turnlist"
	"github.com/coderelay/relay/pkg/tui/core/layout"
	"github.com/coderelay/relay/pkg/tui/frames"
	"github.com/coderelay/relay/pkg/tui/input"
	"github.com/coderelay/relay/pkg/tui/messages"
	sessionpage "github.com/coderelay/relay/pkg/tui/page/session"
	"github.com/coderelay/relay/pkg/tui/page/sessions"
	"github.com/coderelay/relay/pkg/tui/styles"
	"github.com/coderelay/relay/pkg/turns"
	"github.com/coderelay/relay/pkg/userconfig"
	"github.com/coderelay/relay/pkg/viewstate"
)

// idleStepDelay paces backfill steps so user input stays responsive between
// window expansions.
const idleStepDelay = 50 * time.Millisecond

var lastMouseEvent time.Time

// MouseEventFilter throttles mouse motion events to prevent update-loop spam.
// Wheel events pass through untouched; the coalescer batches those.
func MouseEventFilter(_ tea.Model, msg tea.Msg) tea.Msg {
	switch msg.(type) {
	case tea.MouseMotionMsg:
		now := time.Now()
		if now.Sub(lastMouseEvent) < 20*time.Millisecond {
			return nil
		}
		lastMouseEvent = now
	}
	return msg
}

// appModel is the top-level TUI model.
type appModel struct {
	ctx   context.Context
	store transcript.Store
	views *viewstate.Store
	cfg   *userconfig.Config

	feed      *transcript.Feed
	frames    *frames.Scheduler
	idle      *turns.TimerScheduler
	coalescer *input.WheelCoalescer
	program   *tea.Program

	picker  *sessions.Page
	session *sessionpage.Page
	active  layout.Model

	initialSession  string
	wWidth, wHeight int
	ready           bool

	keyMap appKeyMap
}

type appKeyMap struct {
	Quit key.Binding
}

func newAppModel(ctx context.Context, store transcript.Store, views *viewstate.Store, cfg *userconfig.Config, initialSessionID string) *appModel {
	m := &appModel{
		ctx:            ctx,
		store:          store,
		views:          views,
		cfg:            cfg,
		frames:         frames.New(),
		coalescer:      input.NewWheelCoalescer(),
		initialSession: initialSessionID,
		keyMap: appKeyMap{
			Quit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		},
	}
	m.feed = transcript.NewFeed(store, func() {
		m.send(messages.TranscriptChangedMsg{})
	})
	m.idle = turns.NewTimerScheduler(idleStepDelay, func(fn func()) {
		m.send(messages.DispatchMsg{Fn: fn})
	})
	m.picker = sessions.New(store, views)
	m.active = m.picker
	return m
}

// send injects a message from outside the update loop.
func (m *appModel) send(msg tea.Msg) {
	if m.program != nil {
		m.program.Send(msg)
	}
}

func (m *appModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.picker.Init()}
	if m.initialSession != "" {
		sessionID := m.initialSession
		m.initialSession = ""
		cmds = append(cmds, func() tea.Msg {
			return messages.OpenSessionMsg{SessionID: sessionID}
		})
	}
	return tea.Batch(cmds...)
}

func (m *appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := m.update(msg)
	// Arm the frame timer whenever an update left deferred work behind.
	return model, tea.Batch(cmd, m.frames.Tick())
}

func (m *appModel) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.wWidth, m.wHeight = msg.Width, msg.Height
		m.ready = true
		return m, m.resizeAll()

	case messages.DispatchMsg:
		if msg.Fn != nil {
			msg.Fn()
		}
		return m, nil

	case messages.FrameFlushMsg:
		return m, m.frames.Flush()

	case tea.MouseWheelMsg:
		m.coalescer.Handle(msg)
		return m, nil

	case messages.TranscriptChangedMsg:
		if m.session == nil {
			return m, m.picker.Init()
		}
		if err := m.feed.Refresh(m.ctx); err != nil {
			slog.Warn("Failed to refresh transcript", "error", err)
			return m, nil
		}
		return m.forward(msg)

	case messages.OpenSessionMsg:
		return m.openSession(msg.SessionID)

	case messages.CloseSessionMsg:
		return m.closeSession()

	case tea.KeyPressMsg:
		if key.Matches(msg, m.keyMap.Quit) {
			return m, tea.Quit
		}
		return m.forward(msg)

	case messages.WheelCoalescedMsg,
		messages.StatusMsg,
		tea.MouseClickMsg,
		tea.MouseMotionMsg,
		tea.MouseReleaseMsg:
		return m.forward(msg)
	}

	return m, nil
}

func (m *appModel) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.active == nil {
		return m, nil
	}
	updated, cmd := m.active.Update(msg)
	m.active = updated
	return m, cmd
}

func (m *appModel) resizeAll() tea.Cmd {
	var cmds []tea.Cmd
	cmds = append(cmds, m.picker.SetSize(m.wWidth, m.wHeight))
	if m.session != nil {
		cmds = append(cmds, m.session.SetSize(m.wWidth, m.wHeight))
	}
	return tea.Batch(cmds...)
}

// openSession attaches the feed to a session and builds its transcript page.
// Position restore order: pending jump marker, then the persisted fragment,
// then the raw scroll offset, then bottom.
func (m *appModel) openSession(sessionID string) (tea.Model, tea.Cmd) {
	sess, err := m.store.GetSession(m.ctx, sessionID)
	if err != nil {
		slog.Warn("Failed to load session", "session_id", sessionID, "error", err)
		return m, nil
	}
	if err := m.feed.Attach(m.ctx, sessionID); err != nil {
		slog.Warn("Failed to attach transcript feed", "session_id", sessionID, "error", err)
		return m, nil
	}

	loc := m.views.BindLocation(m.ctx, sessionID)
	list := turnlist.New(m.feed, m.frames, m.idle,
		turnlist.WithWindowOptions(
			turns.WithInitialCount(m.cfg.InitialCount()),
			turns.WithBatchSize(m.cfg.BatchSize()),
		),
		turnlist.WithTheme(m.cfg.GetSettings().Theme),
		turnlist.WithHideToolOutput(m.cfg.GetSettings().HideToolOutput),
		turnlist.WithLocation(loc),
		turnlist.WithPendingStore(m.views.PendingTurns()),
	)

	page := sessionpage.New(sess, list)
	page.SetSize(m.wWidth, m.wHeight)
	list.Attach(sessionID)

	if loc.Fragment() == "" && list.Following() {
		if _, y, err := m.views.GetScroll(m.ctx, sessionID); err == nil {
			list.RestoreOffset(y)
		}
	}

	if err := m.views.SetActiveSession(m.ctx, sessionID); err != nil {
		slog.Warn("Failed to persist active session", "session_id", sessionID, "error", err)
	}

	m.session = page
	m.active = page
	return m, page.Init()
}

// closeSession persists the view position and returns to the picker.
func (m *appModel) closeSession() (tea.Model, tea.Cmd) {
	if m.session == nil {
		return m, nil
	}

	list := m.session.List()
	if err := m.views.SaveScroll(m.ctx, m.session.SessionID(), 0, list.ScrollTop()); err != nil {
		slog.Warn("Failed to persist scroll position", "error", err)
	}
	list.Detach()

	m.session = nil
	m.active = m.picker
	return m, m.picker.Init()
}

func (m *appModel) View() tea.View {
	if !m.ready {
		return toFullscreenView(styles.MutedStyle.Render("Loading…"))
	}
	return toFullscreenView(m.active.View())
}

func toFullscreenView(content string) tea.View {
	view := tea.NewView(content)
	view.AltScreen = true
	view.MouseMode = tea.MouseModeCellMotion
	view.WindowTitle = "relay"
	return view
}

// Run starts the TUI. dbPath, when non-empty, is watched so external writes
// to the transcript database refresh the open session.
func Run(ctx context.Context, store transcript.Store, views *viewstate.Store, cfg *userconfig.Config, dbPath, initialSessionID string) error {
	m := newAppModel(ctx, store, views, cfg, initialSessionID)

	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithFilter(MouseEventFilter),
	)
	m.program = p
	m.coalescer.SetSender(p.Send)

	if dbPath != "" {
		if err := m.feed.Watch(dbPath); err != nil {
			slog.Warn("Failed to watch transcript database", "path", dbPath, "error", err)
		}
	}
	defer func() {
		if err := m.feed.Close(); err != nil {
			slog.Warn("Failed to close transcript feed", "error", err)
		}
	}()

	_, err := p.Run()
	return err
}
