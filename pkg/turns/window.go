// Package turns implements incremental rendering of long session transcripts:
// a materialization window over the ordered turn sequence, idle-time backfill
// that preserves the visual scroll offset, focus/anchor bookkeeping that
// reconciles user and programmatic scrolling, and deep-link navigation that
// waits for the target turn to arrive.
//
// The package is single-threaded by design: all methods are expected to be
// called from the UI event loop, and all deferred work is re-entered through
// the scheduler interfaces rather than background goroutines.
package turns

const (
	// DefaultInitialCount is the number of newest turns materialized when a
	// session is first shown.
	DefaultInitialCount = 20
	// DefaultBatchSize is the number of older turns materialized per
	// backfill step.
	DefaultBatchSize = 20
)

// Window tracks which contiguous suffix [Start, total) of a session's turn
// sequence is materialized for rendering. Start only moves backward (toward
// zero) between resets.
type Window struct {
	start   int
	total   int
	initial int
	batch   int

	// epoch identifies the current reset generation. Deferred callbacks
	// capture it and become no-ops when it no longer matches, so work
	// scheduled for one session cannot corrupt the next.
	epoch int
}

type WindowOption func(*Window)

// WithInitialCount overrides the initial materialized suffix length.
func WithInitialCount(n int) WindowOption {
	return func(w *Window) {
		if n > 0 {
			w.initial = n
		}
	}
}

// WithBatchSize overrides the per-step backfill batch.
func WithBatchSize(n int) WindowOption {
	return func(w *Window) {
		if n > 0 {
			w.batch = n
		}
	}
}

// NewWindow creates an empty window. Call Reset once the sequence is loaded.
func NewWindow(opts ...WindowOption) *Window {
	w := &Window{
		initial: DefaultInitialCount,
		batch:   DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start returns the first materialized index.
func (w *Window) Start() int { return w.start }

// Epoch returns the current reset generation.
func (w *Window) Epoch() int { return w.epoch }

// Reset re-anchors the window to the newest turns of a sequence of the given
// length. Called when the session identity changes or when the sequence
// first becomes ready.
func (w *Window) Reset(totalLength int) {
	w.total = max(0, totalLength)
	w.start = max(0, w.total-w.initial)
	w.epoch++
}

// ExpandToInclude materializes backward so that index is rendered. No-op when
// index is already inside the window. Immediate, not batched: navigation must
// not wait for idle backfill.
func (w *Window) ExpandToInclude(index int) {
	if index >= 0 && index < w.start {
		w.start = index
	}
}

// BackfillStep materializes one more batch of older turns. Returns true while
// further backfill remains possible.
func (w *Window) BackfillStep() bool {
	w.start = max(0, w.start-w.batch)
	return w.start > 0
}

// Complete reports whether the whole sequence is materialized.
func (w *Window) Complete() bool { return w.start == 0 }

// Visible returns the materialized suffix of seq. The full slice is returned
// without copying when the window covers everything. The sequence may be
// shorter than when the window was last reset (an external revert can hide a
// suffix); the result is clamped rather than panicking.
func Visible[T any](w *Window, seq []T) []T {
	if w.start <= 0 {
		return seq
	}
	if w.start >= len(seq) {
		return nil
	}
	return seq[w.start:]
}
