package turns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offsetsFor(ids []string, start, perTurn int) []TurnOffset {
	offs := make([]TurnOffset, 0, len(ids)-start)
	for i := start; i < len(ids); i++ {
		offs = append(offs, TurnOffset{ID: ids[i], Top: (i - start) * perTurn})
	}
	return offs
}

func seqIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = string(rune('a'+i/26)) + string(rune('a'+i%26))
	}
	return ids
}

type anchorHarness struct {
	win    *Window
	vp     *fakeViewport
	frames *fakeFrames
	loc    *fakeLocation
	clock  *fakeClock
	ids    []string
	anchor *Anchor

	// autoRender mirrors window changes into the viewport immediately.
	// Tests that simulate a slow frame commit set it to false.
	autoRender bool
}

func newAnchorHarness(t *testing.T, total int) *anchorHarness {
	t.Helper()

	h := &anchorHarness{
		win:        NewWindow(),
		vp:         &fakeViewport{clientHeight: 12},
		frames:     &fakeFrames{},
		loc:        &fakeLocation{},
		clock:      newFakeClock(),
		ids:        seqIDs(total),
		autoRender: true,
	}
	h.win.Reset(total)
	h.render()

	indexOf := func(id string) (int, bool) {
		for i, candidate := range h.ids {
			if candidate == id {
				return i, true
			}
		}
		return 0, false
	}

	h.anchor = NewAnchor(
		h.win,
		h.frames,
		func() Viewport { return h.vp },
		indexOf,
		h.loc,
		func() {
			if h.autoRender {
				h.render()
			}
		},
		WithClock(h.clock.Now),
	)
	return h
}

// render rebuilds the fake viewport from the window, standing in for a frame
// commit. Each turn renders 3 lines.
func (h *anchorHarness) render() {
	h.vp.offsets = offsetsFor(h.ids, h.win.Start(), 3)
	h.vp.scrollHeight = len(h.vp.offsets) * 3
}

func TestProgrammaticScrollDoesNotPin(t *testing.T) {
	t.Parallel()

	h := newAnchorHarness(t, 50)
	require.True(t, h.anchor.Following())

	// A backfill correction moves scrollTop and echoes a scroll event with
	// no gesture in flight.
	h.vp.SetScrollTop(5)
	h.anchor.HandleScroll()

	assert.True(t, h.anchor.Following())
	assert.Empty(t, h.anchor.Focused())
}

func TestUserScrollAwayFromBottomPins(t *testing.T) {
	t.Parallel()

	h := newAnchorHarness(t, 50)

	h.anchor.MarkGesture()
	h.vp.SetScrollTop(5) // far from the bottom (scrollHeight 60, client 12)
	h.anchor.HandleScroll()

	assert.Equal(t, ModePinned, h.anchor.Mode())
}

func TestGestureExpires(t *testing.T) {
	t.Parallel()

	h := newAnchorHarness(t, 50)

	h.anchor.MarkGesture()
	h.clock.Advance(time.Second)

	h.vp.SetScrollTop(5)
	h.anchor.HandleScroll()

	assert.True(t, h.anchor.Following())
}

func TestUserScrollBackToBottomResumesFollowing(t *testing.T) {
	t.Parallel()

	h := newAnchorHarness(t, 50)

	h.anchor.MarkGesture()
	h.vp.SetScrollTop(5)
	h.anchor.HandleScroll()
	require.Equal(t, ModePinned, h.anchor.Mode())

	// scrollHeight 60, client 12: bottom is 48; within tolerance of 2.
	h.anchor.MarkGesture()
	h.vp.SetScrollTop(47)
	h.anchor.HandleScroll()

	assert.True(t, h.anchor.Following())
	assert.Empty(t, h.anchor.Focused())
}

func TestScrollSpyFocusesTurnAtViewportTop(t *testing.T) {
	t.Parallel()

	h := newAnchorHarness(t, 50)

	h.anchor.MarkGesture()
	h.vp.SetScrollTop(10)
	h.anchor.HandleScroll()
	h.frames.Pump()

	// Window start is 30; offsets are 0,3,6,9,12... With scrollTop 10 and a
	// cutoff of 4, the last turn whose top <= 14 is the one at 12: index 4
	// in the materialized suffix, id index 34.
	assert.Equal(t, h.ids[34], h.anchor.Focused())
}

func TestScrollSpyCoalescesPerFrame(t *testing.T) {
	t.Parallel()

	h := newAnchorHarness(t, 50)

	h.anchor.MarkGesture()
	h.vp.SetScrollTop(3)
	h.anchor.HandleScroll()
	h.vp.SetScrollTop(9)
	h.anchor.HandleScroll()

	// Only one spy pass is scheduled; it observes the latest position.
	assert.Len(t, h.frames.queue, 1)
	h.frames.Pump()
	assert.Equal(t, h.ids[33], h.anchor.Focused())
}

func TestScrollSpySkipsSmallViewports(t *testing.T) {
	t.Parallel()

	h := newAnchorHarness(t, 50)
	h.vp.clientHeight = 4

	h.anchor.MarkGesture()
	h.vp.SetScrollTop(10)
	h.anchor.HandleScroll()

	assert.Empty(t, h.frames.queue)
}

func TestScrollToMaterializedTurn(t *testing.T) {
	t.Parallel()

	h := newAnchorHarness(t, 50)

	target := h.ids[40] // materialized (window start 30)
	before := h.vp.setCalls
	h.anchor.ScrollToTurn(target, BehaviorImmediate)

	assert.Equal(t, before+1, h.vp.setCalls)
	assert.Equal(t, (40-30)*3, h.vp.ScrollTop())
	assert.Equal(t, target, h.anchor.Focused())
	assert.Equal(t, "turn-"+target, h.loc.Fragment())
	assert.Equal(t, ModePinned, h.anchor.Mode())
}

func TestScrollToUnmaterializedTurnExpandsAndRetries(t *testing.T) {
	t.Parallel()

	h := newAnchorHarness(t, 50)
	require.Equal(t, 30, h.win.Start())

	// Freeze rendering: the expanded window is not reflected in the
	// viewport until later frames, simulating the node appearing late.
	h.autoRender = false

	target := h.ids[5]
	h.anchor.ScrollToTurn(target, BehaviorImmediate)

	assert.Equal(t, 5, h.win.Start())
	before := h.vp.setCalls

	// Two frames pass before the rendered block exists.
	h.frames.Pump()
	assert.Equal(t, before, h.vp.setCalls)

	h.render()
	h.frames.Pump()

	// Exactly one scrollTop assignment once the node exists.
	assert.Equal(t, before+1, h.vp.setCalls)
	assert.Equal(t, 0, h.vp.ScrollTop()) // index 5 with start 5: offset 0
}

func TestScrollRetriesAreBounded(t *testing.T) {
	t.Parallel()

	h := newAnchorHarness(t, 50)

	h.anchor.ScrollToTurn("missing", BehaviorImmediate)
	before := h.vp.setCalls

	for range DefaultScrollRetries + 5 {
		h.frames.Pump()
	}

	assert.Equal(t, before, h.vp.setCalls)
	assert.Empty(t, h.frames.queue)
}

func TestNavigateByOffsetFromFocus(t *testing.T) {
	t.Parallel()

	h := newAnchorHarness(t, 50)
	visible := h.ids[h.win.Start():]

	h.anchor.ScrollToTurn(visible[5], BehaviorImmediate)
	h.anchor.NavigateByOffset(visible, -2)
	assert.Equal(t, visible[3], h.anchor.Focused())

	h.anchor.NavigateByOffset(visible, 1)
	assert.Equal(t, visible[4], h.anchor.Focused())
}

func TestNavigateByOffsetFromFollowingStartsAtEnds(t *testing.T) {
	t.Parallel()

	h := newAnchorHarness(t, 50)
	visible := h.ids[h.win.Start():]
	require.True(t, h.anchor.Following())

	h.anchor.NavigateByOffset(visible, -1)
	assert.Equal(t, visible[len(visible)-1], h.anchor.Focused())

	h.anchor.Resume()
	h.anchor.NavigateByOffset(visible, 1)
	assert.Equal(t, visible[0], h.anchor.Focused())
}

func TestNavigateByOffsetOutOfRangeIsNoop(t *testing.T) {
	t.Parallel()

	h := newAnchorHarness(t, 50)
	visible := h.ids[h.win.Start():]

	h.anchor.ScrollToTurn(visible[0], BehaviorImmediate)
	h.anchor.NavigateByOffset(visible, -1)
	assert.Equal(t, visible[0], h.anchor.Focused())

	h.anchor.ScrollToTurn(visible[len(visible)-1], BehaviorImmediate)
	h.anchor.NavigateByOffset(visible, 1)
	assert.Equal(t, visible[len(visible)-1], h.anchor.Focused())
}

func TestResumeClearsFocusAndFragment(t *testing.T) {
	t.Parallel()

	h := newAnchorHarness(t, 50)

	h.anchor.ScrollToTurn(h.ids[35], BehaviorImmediate)
	require.NotEmpty(t, h.loc.Fragment())

	h.anchor.Resume()

	assert.True(t, h.anchor.Following())
	assert.Empty(t, h.anchor.Focused())
	assert.Empty(t, h.loc.Fragment())
	assert.Equal(t, h.vp.scrollHeight, h.vp.ScrollTop())
}
