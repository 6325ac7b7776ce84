package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderelay/relay/pkg/transcript"
	"github.com/coderelay/relay/pkg/tui/components/turnlist"
	"github.com/coderelay/relay/pkg/tui/messages"
)

type fakeFrames struct {
	queue []func()
}

func (f *fakeFrames) OnNextFrame(cb func()) func() {
	idx := len(f.queue)
	f.queue = append(f.queue, cb)
	return func() { f.queue[idx] = nil }
}

type fakeIdle struct {
	queue []func()
}

func (f *fakeIdle) ScheduleIdle(cb func()) func() {
	idx := len(f.queue)
	f.queue = append(f.queue, cb)
	return func() { f.queue[idx] = nil }
}

type pageHarness struct {
	t      *testing.T
	store  *transcript.InMemoryStore
	feed   *transcript.Feed
	frames *fakeFrames
	idle   *fakeIdle
	page   *Page
	ids    []string
}

func newPageHarness(t *testing.T, total int) *pageHarness {
	t.Helper()
	ctx := context.Background()

	store := transcript.NewInMemoryStore()
	sess := &transcript.Session{ID: "sess-1", Title: "refactor run", CreatedAt: time.Now()}
	require.NoError(t, store.AddSession(ctx, sess))

	h := &pageHarness{t: t, store: store, frames: &fakeFrames{}, idle: &fakeIdle{}}
	for i := range total {
		h.addTurn(i)
	}

	h.feed = transcript.NewFeed(store, nil)
	require.NoError(t, h.feed.Attach(ctx, sess.ID))

	list := turnlist.New(h.feed, h.frames, h.idle, turnlist.WithTheme("dark"))
	h.page = New(sess, list)
	h.page.SetSize(80, 24)
	list.Attach(sess.ID)
	h.pump()
	return h
}

func (h *pageHarness) addTurn(seq int) {
	h.t.Helper()
	id := transcript.NewTurnID(int64(seq))
	require.NoError(h.t, h.store.AddTurn(context.Background(), "sess-1", &transcript.Turn{
		ID:        id,
		SessionID: "sess-1",
		Role:      transcript.RoleAssistant,
		Content:   fmt.Sprintf("step %d", seq),
		CreatedAt: time.Now(),
	}))
	h.ids = append(h.ids, id)
}

func (h *pageHarness) pump() {
	for range 100 {
		if len(h.idle.queue) == 0 && len(h.frames.queue) == 0 {
			return
		}
		idleBatch := h.idle.queue
		h.idle.queue = nil
		for _, cb := range idleBatch {
			if cb != nil {
				cb()
			}
		}
		frameBatch := h.frames.queue
		h.frames.queue = nil
		for _, cb := range frameBatch {
			if cb != nil {
				cb()
			}
		}
	}
	h.t.Fatal("schedulers did not quiesce")
}

func TestEscapeClosesSession(t *testing.T) {
	t.Parallel()
	h := newPageHarness(t, 3)

	_, cmd := h.page.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	require.NotNil(t, cmd)
	assert.IsType(t, messages.CloseSessionMsg{}, cmd())
}

func TestStatusMessageShownInFooter(t *testing.T) {
	t.Parallel()
	h := newPageHarness(t, 3)

	_, _ = h.page.Update(messages.StatusMsg{Text: "turn copied"})
	assert.Contains(t, h.page.View(), "turn copied")

	// Any key press clears the status.
	_, _ = h.page.Update(tea.KeyPressMsg{Code: 'k', Text: "k"})
	assert.NotContains(t, h.page.View(), "turn copied")
}

func TestTranscriptChangeFlowsToList(t *testing.T) {
	t.Parallel()
	h := newPageHarness(t, 3)

	h.addTurn(3)
	require.NoError(t, h.feed.Refresh(context.Background()))
	_, _ = h.page.Update(messages.TranscriptChangedMsg{})
	h.pump()

	offsets := h.page.List().TurnOffsets()
	require.NotEmpty(t, offsets)
	assert.Equal(t, h.ids[3], offsets[len(offsets)-1].ID)
}

func TestTitleAndIDInHeader(t *testing.T) {
	t.Parallel()
	h := newPageHarness(t, 1)

	view := h.page.View()
	assert.Contains(t, view, "refactor run")
	assert.Contains(t, view, "sess-1")
}
