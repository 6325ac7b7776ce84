package turns

import "time"

// FrameScheduler runs a callback after the next render commit, so layout
// reads (scroll height, turn offsets) observe the frame that resulted from a
// state mutation. The returned cancel func is safe to call after the
// callback has fired.
type FrameScheduler interface {
	OnNextFrame(fn func()) (cancel func())
}

// IdleScheduler runs low-priority work without blocking interaction. The
// returned cancel func is safe to call after the callback has fired.
type IdleScheduler interface {
	ScheduleIdle(fn func()) (cancel func())
}

// TimerScheduler implements IdleScheduler with a minimal-delay deferred
// callback. Go has no UI-idle primitive, so "idle" degrades to "soon": a
// short timer that yields the loop between steps.
//
// The dispatch func marshals the callback back onto the owning event loop
// (e.g. program.Send wrapping); pass nil to run callbacks on the timer
// goroutine.
type TimerScheduler struct {
	delay    time.Duration
	dispatch func(fn func())
}

// NewTimerScheduler creates a scheduler firing after delay, delivering
// callbacks through dispatch.
func NewTimerScheduler(delay time.Duration, dispatch func(fn func())) *TimerScheduler {
	return &TimerScheduler{delay: delay, dispatch: dispatch}
}

func (s *TimerScheduler) ScheduleIdle(fn func()) (cancel func()) {
	run := fn
	if s.dispatch != nil {
		run = func() { s.dispatch(fn) }
	}
	t := time.AfterFunc(s.delay, run)
	return func() { t.Stop() }
}
