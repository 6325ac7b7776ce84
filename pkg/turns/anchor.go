package turns

import "time"

// Mode is the anchor state: Following tracks the bottom of the transcript,
// Pinned holds a specific turn.
type Mode int

const (
	// ModeFollowing auto-scrolls to the bottom as content arrives.
	ModeFollowing Mode = iota
	// ModePinned suppresses auto-scroll; a focused turn is set.
	ModePinned
)

const (
	// DefaultGestureWindow is how long after the last user input a scroll
	// event is still attributed to the user rather than to a programmatic
	// correction.
	DefaultGestureWindow = 250 * time.Millisecond
	// DefaultBottomTolerance is the distance from the bottom, in lines,
	// within which the anchor resumes Following.
	DefaultBottomTolerance = 2
	// DefaultSpyCutoff is how far below the viewport top, in lines, a
	// turn's top may sit and still count as the focused turn.
	DefaultSpyCutoff = 4
	// DefaultMinSpyHeight disables scroll-spy on viewports shorter than
	// this; on tiny surfaces the "turn at the top" heuristic is noise.
	DefaultMinSpyHeight = 10
	// DefaultScrollRetries bounds the animation-frame retries waiting for
	// a navigation target's rendered block to appear.
	DefaultScrollRetries = 8
)

// Location abstracts the durable navigation marker (a URL-fragment-like slot)
// so a reopened session can restore its position.
type Location interface {
	Fragment() string
	SetFragment(fragment string)
}

// Anchor reconciles user scrolling, programmatic scrolling and the focused
// turn, and exposes the scroll-to-turn primitive.
type Anchor struct {
	win      *Window
	frames   FrameScheduler
	viewport func() Viewport
	indexOf  func(id string) (int, bool) // index in the full loaded sequence
	loc      Location
	onExpand func() // re-render request after the window grows
	now      func() time.Time

	mode        Mode
	focused     string
	lastGesture time.Time

	spyScheduled bool
	cancelSpy    func()
	cancelRetry  func()

	gestureWindow   time.Duration
	bottomTolerance int
	spyCutoff       int
	minSpyHeight    int
	maxRetries      int
}

type AnchorOption func(*Anchor)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) AnchorOption {
	return func(a *Anchor) { a.now = now }
}

// WithScrollRetries overrides the navigation retry bound (minimum 2).
func WithScrollRetries(n int) AnchorOption {
	return func(a *Anchor) { a.maxRetries = max(2, n) }
}

// WithBottomTolerance overrides the resume-following distance in lines.
func WithBottomTolerance(n int) AnchorOption {
	return func(a *Anchor) { a.bottomTolerance = max(0, n) }
}

// NewAnchor creates an anchor controller in Following mode.
func NewAnchor(win *Window, frames FrameScheduler, viewport func() Viewport, indexOf func(string) (int, bool), loc Location, onExpand func(), opts ...AnchorOption) *Anchor {
	a := &Anchor{
		win:             win,
		frames:          frames,
		viewport:        viewport,
		indexOf:         indexOf,
		loc:             loc,
		onExpand:        onExpand,
		now:             time.Now,
		gestureWindow:   DefaultGestureWindow,
		bottomTolerance: DefaultBottomTolerance,
		spyCutoff:       DefaultSpyCutoff,
		minSpyHeight:    DefaultMinSpyHeight,
		maxRetries:      DefaultScrollRetries,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Mode returns the current anchor mode.
func (a *Anchor) Mode() Mode { return a.mode }

// Focused returns the focused turn id, or "" while Following.
func (a *Anchor) Focused() string { return a.focused }

// Following reports whether new content should auto-scroll to the bottom.
func (a *Anchor) Following() bool { return a.mode == ModeFollowing }

// MarkGesture records that the user is actively controlling scroll right now.
// Call from real input paths only (wheel, scroll keys, drag), never from
// programmatic scrolls, or corrections would be misread as gestures.
func (a *Anchor) MarkGesture() {
	a.lastGesture = a.now()
}

func (a *Anchor) gestureActive() bool {
	return !a.lastGesture.IsZero() && a.now().Sub(a.lastGesture) <= a.gestureWindow
}

// HandleScroll processes a scroll position change. Changes without a recent
// gesture are programmatic echoes (backfill correction, layout shift) and are
// ignored so they cannot flip the mode or fight the user's position.
func (a *Anchor) HandleScroll() {
	if !a.gestureActive() {
		return
	}
	vp := a.viewport()
	if vp == nil {
		return
	}

	if a.nearBottom(vp) {
		a.setFollowing()
		return
	}

	a.mode = ModePinned
	if vp.ClientHeight() >= a.minSpyHeight {
		a.scheduleSpy()
	}
}

func (a *Anchor) nearBottom(vp Viewport) bool {
	return vp.ScrollHeight()-vp.ClientHeight()-vp.ScrollTop() <= a.bottomTolerance
}

// scheduleSpy coalesces focus recomputation to at most once per frame; only
// the viewport state at fire time matters, so later scroll events before the
// frame simply ride the same scheduled pass.
func (a *Anchor) scheduleSpy() {
	if a.spyScheduled {
		return
	}
	a.spyScheduled = true
	epoch := a.win.Epoch()
	a.cancelSpy = a.frames.OnNextFrame(func() {
		a.spyScheduled = false
		if epoch != a.win.Epoch() {
			return
		}
		a.runSpy()
	})
}

// runSpy finds the turn at or just above the viewport top: the last rendered
// block whose top sits within the cutoff below the scroll offset. This
// matches how a reader tracks their place better than "topmost fully
// visible".
func (a *Anchor) runSpy() {
	vp := a.viewport()
	if vp == nil {
		return
	}
	limit := vp.ScrollTop() + a.spyCutoff
	var found string
	for _, off := range vp.TurnOffsets() {
		if off.Top > limit {
			break
		}
		found = off.ID
	}
	if found != "" {
		a.focused = found
	}
}

// ScrollToTurn pins the focused turn and scrolls its rendered block to the
// top of the viewport, expanding the window first when the turn is not yet
// materialized. The scroll retries across frames until the block exists,
// bounded by the retry limit, then gives up silently.
func (a *Anchor) ScrollToTurn(id string, behavior ScrollBehavior) {
	a.focused = id
	a.mode = ModePinned

	if idx, ok := a.indexOf(id); ok && idx < a.win.Start() {
		a.win.ExpandToInclude(idx)
		if a.onExpand != nil {
			a.onExpand()
		}
	}

	if a.loc != nil {
		a.loc.SetFragment("turn-" + id)
	}

	if a.cancelRetry != nil {
		a.cancelRetry()
		a.cancelRetry = nil
	}
	a.attemptScroll(id, behavior, a.maxRetries, a.win.Epoch())
}

func (a *Anchor) attemptScroll(id string, behavior ScrollBehavior, retriesLeft int, epoch int) {
	if epoch != a.win.Epoch() {
		return
	}

	vp := a.viewport()
	if vp != nil {
		for _, off := range vp.TurnOffsets() {
			if off.ID == id {
				// Offsets are relative to the content buffer, which
				// is what SetScrollTop addresses.
				vp.SetScrollTop(off.Top)
				_ = behavior // terminal surfaces cannot animate; smooth degrades to immediate
				return
			}
		}
	}

	if retriesLeft <= 0 {
		return
	}
	a.cancelRetry = a.frames.OnNextFrame(func() {
		a.attemptScroll(id, behavior, retriesLeft-1, epoch)
	})
}

// NavigateByOffset moves the focus delta positions through the visible turn
// sequence and scrolls to it. With no focused turn, negative deltas start
// from past-the-end (so -1 lands on the newest turn) and positive deltas
// from before-the-start. Out-of-range targets are a no-op.
func (a *Anchor) NavigateByOffset(ids []string, delta int) {
	if len(ids) == 0 || delta == 0 {
		return
	}

	base := -1
	if a.focused != "" {
		for i, id := range ids {
			if id == a.focused {
				base = i
				break
			}
		}
		if base == -1 {
			return
		}
	} else if delta < 0 {
		base = len(ids)
	}

	target := base + delta
	if target < 0 || target >= len(ids) {
		return
	}
	a.ScrollToTurn(ids[target], BehaviorImmediate)
}

// Resume returns to Following: focus clears, the fragment clears, and the
// viewport snaps to the bottom. Called when the user submits a new prompt or
// explicitly jumps to the end.
func (a *Anchor) Resume() {
	a.setFollowing()
	if vp := a.viewport(); vp != nil {
		vp.SetScrollTop(vp.ScrollHeight())
	}
}

func (a *Anchor) setFollowing() {
	a.mode = ModeFollowing
	a.focused = ""
	// A spy pass scheduled while pinned must not resurrect a focused turn.
	if a.cancelSpy != nil {
		a.cancelSpy()
		a.cancelSpy = nil
	}
	a.spyScheduled = false
	if a.loc != nil {
		a.loc.SetFragment("")
	}
}

// Detach cancels scheduled frame work. Call on session change or teardown.
func (a *Anchor) Detach() {
	if a.cancelSpy != nil {
		a.cancelSpy()
		a.cancelSpy = nil
	}
	if a.cancelRetry != nil {
		a.cancelRetry()
		a.cancelRetry = nil
	}
	a.spyScheduled = false
}
