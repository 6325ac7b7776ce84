package turnlist

import (
	"context"
	"fmt"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderelay/relay/pkg/transcript"
	"github.com/coderelay/relay/pkg/tui/messages"
	"github.com/coderelay/relay/pkg/turns"
)

type fakeFrames struct {
	queue []func()
}

func (f *fakeFrames) OnNextFrame(cb func()) func() {
	idx := len(f.queue)
	f.queue = append(f.queue, cb)
	return func() { f.queue[idx] = nil }
}

// Pump runs the callbacks queued so far as one frame; callbacks scheduled
// while pumping wait for the next call.
func (f *fakeFrames) Pump() {
	batch := f.queue
	f.queue = nil
	for _, cb := range batch {
		if cb != nil {
			cb()
		}
	}
}

type fakeIdle struct {
	queue []func()
}

func (f *fakeIdle) ScheduleIdle(cb func()) func() {
	idx := len(f.queue)
	f.queue = append(f.queue, cb)
	return func() { f.queue[idx] = nil }
}

func (f *fakeIdle) Pump() {
	batch := f.queue
	f.queue = nil
	for _, cb := range batch {
		if cb != nil {
			cb()
		}
	}
}

type fakeLocation struct {
	fragment string
}

func (l *fakeLocation) Fragment() string            { return l.fragment }
func (l *fakeLocation) SetFragment(fragment string) { l.fragment = fragment }

type fakePending struct {
	entries map[string]string
}

func (p *fakePending) TakePendingTurn(sessionID string) (string, bool) {
	id, ok := p.entries[sessionID]
	delete(p.entries, sessionID)
	return id, ok
}

type listHarness struct {
	t       *testing.T
	store   *transcript.InMemoryStore
	feed    *transcript.Feed
	frames  *fakeFrames
	idle    *fakeIdle
	loc     *fakeLocation
	pending *fakePending
	list    *List
	ids     []string
}

const harnessSession = "sess-1"

func newListHarness(t *testing.T, total int) *listHarness {
	t.Helper()
	ctx := context.Background()

	store := transcript.NewInMemoryStore()
	require.NoError(t, store.AddSession(ctx, &transcript.Session{
		ID:        harnessSession,
		Title:     "scroll test",
		CreatedAt: time.Now(),
	}))

	h := &listHarness{
		t:       t,
		store:   store,
		frames:  &fakeFrames{},
		idle:    &fakeIdle{},
		loc:     &fakeLocation{},
		pending: &fakePending{entries: map[string]string{}},
	}
	for i := range total {
		h.addTurn(i)
	}

	h.feed = transcript.NewFeed(store, nil)
	require.NoError(t, h.feed.Attach(ctx, harnessSession))

	h.list = New(h.feed, h.frames, h.idle,
		WithTheme("dark"),
		WithLocation(h.loc),
		WithPendingStore(h.pending),
	)
	h.list.SetSize(80, 20)
	return h
}

func (h *listHarness) addTurn(seq int) {
	h.t.Helper()
	role := transcript.RoleUser
	if seq%2 == 1 {
		role = transcript.RoleAssistant
	}
	id := transcript.NewTurnID(int64(seq))
	require.NoError(h.t, h.store.AddTurn(context.Background(), harnessSession, &transcript.Turn{
		ID:        id,
		SessionID: harnessSession,
		Role:      role,
		Content:   fmt.Sprintf("turn number %d", seq),
		CreatedAt: time.Now(),
	}))
	h.ids = append(h.ids, id)
}

// pump drains idle and frame queues until both are empty, i.e. the backfill
// has run to completion including its frame corrections.
func (h *listHarness) pump() {
	for range 100 {
		if len(h.idle.queue) == 0 && len(h.frames.queue) == 0 {
			return
		}
		h.idle.Pump()
		h.frames.Pump()
	}
	h.t.Fatal("schedulers did not quiesce")
}

func (h *listHarness) offsetOf(id string) (int, bool) {
	for _, off := range h.list.TurnOffsets() {
		if off.ID == id {
			return off.Top, true
		}
	}
	return 0, false
}

func TestAttachMaterializesNewestTurnsFirst(t *testing.T) {
	t.Parallel()
	h := newListHarness(t, 50)

	h.list.Attach(harnessSession)

	offsets := h.list.TurnOffsets()
	require.Len(t, offsets, turns.DefaultInitialCount)
	assert.Equal(t, h.ids[50-turns.DefaultInitialCount], offsets[0].ID)
	assert.Equal(t, h.ids[49], offsets[len(offsets)-1].ID)

	// View starts at the bottom.
	assert.Equal(t, h.list.ScrollHeight()-h.list.ClientHeight(), h.list.ScrollTop())
	assert.True(t, h.list.Following())
}

func TestBackfillMaterializesFullHistory(t *testing.T) {
	t.Parallel()
	h := newListHarness(t, 50)

	h.list.Attach(harnessSession)
	h.pump()

	offsets := h.list.TurnOffsets()
	require.Len(t, offsets, 50)
	assert.Equal(t, h.ids[0], offsets[0].ID)
}

func TestBackfillKeepsBottomAnchoredWhileFollowing(t *testing.T) {
	t.Parallel()
	h := newListHarness(t, 50)

	h.list.Attach(harnessSession)
	h.pump()

	assert.True(t, h.list.Following())
	assert.Equal(t, h.list.ScrollHeight()-h.list.ClientHeight(), h.list.ScrollTop())
}

func TestWheelScrollAwayFromBottomPinsAndFocuses(t *testing.T) {
	t.Parallel()
	h := newListHarness(t, 50)
	h.list.Attach(harnessSession)
	h.pump()

	for range 5 {
		h.list.Update(messages.WheelCoalescedMsg{Delta: -4})
	}
	h.pump()

	assert.False(t, h.list.Following())
	assert.NotEmpty(t, h.list.Focused())
}

func TestScrollBackToBottomResumesFollowing(t *testing.T) {
	t.Parallel()
	h := newListHarness(t, 50)
	h.list.Attach(harnessSession)
	h.pump()

	for range 5 {
		h.list.Update(messages.WheelCoalescedMsg{Delta: -4})
	}
	h.pump()
	require.False(t, h.list.Following())

	for range 10 {
		h.list.Update(messages.WheelCoalescedMsg{Delta: 4})
	}
	h.pump()

	assert.True(t, h.list.Following())
	assert.Empty(t, h.list.Focused())
}

func TestNavigateKeysWalkTurns(t *testing.T) {
	t.Parallel()
	h := newListHarness(t, 50)
	h.list.Attach(harnessSession)
	h.pump()

	prev := tea.KeyPressMsg{Code: 'p', Text: "p"}
	next := tea.KeyPressMsg{Code: 'n', Text: "n"}

	h.list.Update(prev)
	assert.Equal(t, h.ids[49], h.list.Focused())

	h.list.Update(prev)
	assert.Equal(t, h.ids[48], h.list.Focused())

	h.list.Update(next)
	assert.Equal(t, h.ids[49], h.list.Focused())

	// Focus writes the durable fragment.
	assert.Equal(t, "turn-"+h.ids[49], h.loc.fragment)
}

func TestOldestKeyJumpsToFirstTurn(t *testing.T) {
	t.Parallel()
	h := newListHarness(t, 50)
	h.list.Attach(harnessSession)
	// No pump: the window still only holds the newest turns.
	require.Len(t, h.list.TurnOffsets(), turns.DefaultInitialCount)

	h.list.Update(tea.KeyPressMsg{Code: 'g', Text: "g"})
	h.pump()

	assert.Equal(t, h.ids[0], h.list.Focused())
	top, ok := h.offsetOf(h.ids[0])
	require.True(t, ok)
	assert.Equal(t, top, h.list.ScrollTop())
}

func TestLatestKeyResumesFollowing(t *testing.T) {
	t.Parallel()
	h := newListHarness(t, 50)
	h.list.Attach(harnessSession)
	h.pump()

	h.list.Update(tea.KeyPressMsg{Code: 'p', Text: "p"})
	require.False(t, h.list.Following())

	h.list.Update(tea.KeyPressMsg{Code: 'G', Text: "G"})
	assert.True(t, h.list.Following())
	assert.Empty(t, h.loc.fragment)
	assert.Equal(t, h.list.ScrollHeight()-h.list.ClientHeight(), h.list.ScrollTop())
}

func TestFragmentRestoresPositionOnAttach(t *testing.T) {
	t.Parallel()
	h := newListHarness(t, 50)
	target := h.ids[10]
	h.loc.fragment = "turn-" + target

	h.list.Attach(harnessSession)
	h.pump()

	top, ok := h.offsetOf(target)
	require.True(t, ok)
	assert.Equal(t, target, h.list.Focused())
	assert.Equal(t, top, h.list.ScrollTop())
	assert.False(t, h.list.Following())
}

func TestPendingMarkerWinsOverFragment(t *testing.T) {
	t.Parallel()
	h := newListHarness(t, 50)
	h.loc.fragment = "turn-" + h.ids[5]
	h.pending.entries[harnessSession] = h.ids[30]

	h.list.Attach(harnessSession)
	h.pump()

	assert.Equal(t, h.ids[30], h.list.Focused())
}

func TestFeedChangeAppendsAndStaysAtBottom(t *testing.T) {
	t.Parallel()
	h := newListHarness(t, 30)
	h.list.Attach(harnessSession)
	h.pump()
	require.True(t, h.list.Following())

	h.addTurn(30)
	require.NoError(t, h.feed.Refresh(context.Background()))
	h.list.HandleFeedChange()
	h.pump()

	_, ok := h.offsetOf(h.ids[30])
	assert.True(t, ok)
	assert.Equal(t, h.list.ScrollHeight()-h.list.ClientHeight(), h.list.ScrollTop())
}

func TestFeedChangeDoesNotStealPinnedPosition(t *testing.T) {
	t.Parallel()
	h := newListHarness(t, 30)
	h.list.Attach(harnessSession)
	h.pump()

	h.list.Update(tea.KeyPressMsg{Code: 'p', Text: "p"})
	h.list.Update(tea.KeyPressMsg{Code: 'p', Text: "p"})
	require.False(t, h.list.Following())
	before := h.list.ScrollTop()

	h.addTurn(30)
	require.NoError(t, h.feed.Refresh(context.Background()))
	h.list.HandleFeedChange()
	h.pump()

	// Appending below the viewport must not move a pinned view.
	assert.Equal(t, before, h.list.ScrollTop())
	assert.False(t, h.list.Following())
}

func TestRevertShrinksSequence(t *testing.T) {
	t.Parallel()
	h := newListHarness(t, 30)
	h.list.Attach(harnessSession)
	h.pump()

	require.NoError(t, h.store.RevertAfter(context.Background(), harnessSession, h.ids[19]))
	require.NoError(t, h.feed.Refresh(context.Background()))
	h.list.HandleFeedChange()
	h.pump()

	offsets := h.list.TurnOffsets()
	require.NotEmpty(t, offsets)
	assert.Equal(t, h.ids[19], offsets[len(offsets)-1].ID)
	for _, off := range offsets {
		assert.LessOrEqual(t, off.ID, h.ids[19])
	}
}

func TestRestoreOffsetPinsAwayFromBottom(t *testing.T) {
	t.Parallel()
	h := newListHarness(t, 50)
	h.list.Attach(harnessSession)
	h.pump()

	h.list.RestoreOffset(3)
	h.pump()

	assert.Equal(t, 3, h.list.ScrollTop())
	assert.False(t, h.list.Following())
}

func TestDetachCancelsScheduledWork(t *testing.T) {
	t.Parallel()
	h := newListHarness(t, 50)
	h.list.Attach(harnessSession)

	h.list.Detach()
	h.pump()

	// The backfill step was cancelled before it ran.
	assert.Len(t, h.list.TurnOffsets(), turns.DefaultInitialCount)
}

func TestParseFragmentRoundTripsNavigationTargets(t *testing.T) {
	t.Parallel()
	h := newListHarness(t, 5)
	h.list.Attach(harnessSession)
	h.pump()

	h.list.ScrollToTurn(h.ids[2])
	h.pump()

	id, ok := turns.ParseFragment(h.loc.fragment)
	require.True(t, ok)
	assert.Equal(t, h.ids[2], id)
}
