package turns

// Backfiller grows the window backward during idle time. One unit of work is
// in flight at most; each unit advances the window by one batch, waits a
// frame for the render to commit, then corrects the scroll offset so the
// content the user is looking at does not visually jump when older turns are
// inserted above it.
type Backfiller struct {
	win      *Window
	idle     IdleScheduler
	frames   FrameScheduler
	viewport func() Viewport // may return nil when unmounted
	onStep   func()          // invoked after each window mutation to request a re-render

	pending     bool
	cancelIdle  func()
	cancelFrame func()
}

// NewBackfiller wires a backfiller to a window. viewport may return nil when
// the scroll surface is not mounted; the step then advances window state and
// skips the visual correction.
func NewBackfiller(win *Window, idle IdleScheduler, frames FrameScheduler, viewport func() Viewport, onStep func()) *Backfiller {
	return &Backfiller{
		win:      win,
		idle:     idle,
		frames:   frames,
		viewport: viewport,
		onStep:   onStep,
	}
}

// Kick schedules the next backfill unit. Idempotent: a unit already pending
// or a complete window makes this a no-op.
func (b *Backfiller) Kick() {
	if b.pending || b.win.Complete() {
		return
	}
	b.pending = true
	epoch := b.win.Epoch()
	b.cancelIdle = b.idle.ScheduleIdle(func() { b.step(epoch) })
}

// Cancel drops any pending unit of work. Call on session change or teardown.
func (b *Backfiller) Cancel() {
	if b.cancelIdle != nil {
		b.cancelIdle()
		b.cancelIdle = nil
	}
	if b.cancelFrame != nil {
		b.cancelFrame()
		b.cancelFrame = nil
	}
	b.pending = false
}

// Pending reports whether a unit of work is scheduled or mid-flight.
func (b *Backfiller) Pending() bool { return b.pending }

func (b *Backfiller) step(epoch int) {
	if epoch != b.win.Epoch() {
		// The window was reset for another session after this unit was
		// scheduled.
		b.pending = false
		return
	}

	// "Before" measurements; skipped when the surface is unmounted. A
	// surface that mounts between the measurement and the correction is
	// left alone; there is no baseline to correct against.
	var beforeTop, beforeHeight int
	vp := b.viewport()
	measured := vp != nil
	if measured {
		beforeTop = vp.ScrollTop()
		beforeHeight = vp.ScrollHeight()
	}

	b.win.BackfillStep()
	if b.onStep != nil {
		b.onStep()
	}

	// The correction must observe the layout that includes the new batch,
	// one frame after the mutation.
	b.cancelFrame = b.frames.OnNextFrame(func() {
		b.pending = false
		if epoch != b.win.Epoch() {
			return
		}
		if vp := b.viewport(); vp != nil && measured {
			if delta := vp.ScrollHeight() - beforeHeight; delta > 0 {
				vp.SetScrollTop(beforeTop + delta)
			}
		}
		b.Kick()
	})
}
