package turns

// TurnOffset pairs a turn id with the top line of its rendered block within
// the content buffer, in document order.
type TurnOffset struct {
	ID  string
	Top int
}

// Viewport is the scrollable surface the virtualizer measures and corrects.
// All units are content lines. Implementations are owned by the UI loop; the
// virtualizer never retains a Viewport across an async gap (it re-fetches
// through a handle func, which may return nil after unmount).
type Viewport interface {
	ScrollTop() int
	SetScrollTop(top int)
	ScrollHeight() int
	ClientHeight() int
	TurnOffsets() []TurnOffset
}

// ScrollBehavior selects how a programmatic scroll is applied.
type ScrollBehavior int

const (
	// BehaviorImmediate jumps straight to the target offset.
	BehaviorImmediate ScrollBehavior = iota
	// BehaviorSmooth requests an animated scroll; surfaces that cannot
	// animate treat it as immediate.
	BehaviorSmooth
)
