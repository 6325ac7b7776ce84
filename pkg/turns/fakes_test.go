package turns

import "time"

// fakeFrames queues frame callbacks; Pump fires one frame's worth.
type fakeFrames struct {
	queue []func()
}

func (f *fakeFrames) OnNextFrame(fn func()) (cancel func()) {
	f.queue = append(f.queue, fn)
	cancelled := false
	idx := len(f.queue) - 1
	return func() {
		if !cancelled {
			cancelled = true
			f.queue[idx] = nil
		}
	}
}

// Pump runs every callback scheduled before this frame. Callbacks scheduled
// while pumping wait for the next Pump, matching real frame semantics.
func (f *fakeFrames) Pump() {
	batch := f.queue
	f.queue = nil
	for _, fn := range batch {
		if fn != nil {
			fn()
		}
	}
}

// fakeIdle queues idle work; RunNext fires the oldest unit.
type fakeIdle struct {
	queue []func()
}

func (f *fakeIdle) ScheduleIdle(fn func()) (cancel func()) {
	f.queue = append(f.queue, fn)
	idx := len(f.queue) - 1
	return func() { f.queue[idx] = nil }
}

func (f *fakeIdle) RunNext() bool {
	for i, fn := range f.queue {
		if fn != nil {
			f.queue[i] = nil
			fn()
			return true
		}
	}
	return false
}

func (f *fakeIdle) PendingCount() int {
	n := 0
	for _, fn := range f.queue {
		if fn != nil {
			n++
		}
	}
	return n
}

// fakeViewport is a measurable scroll surface with scripted turn offsets.
type fakeViewport struct {
	scrollTop    int
	scrollHeight int
	clientHeight int
	offsets      []TurnOffset

	setCalls int
}

func (v *fakeViewport) ScrollTop() int            { return v.scrollTop }
func (v *fakeViewport) ScrollHeight() int         { return v.scrollHeight }
func (v *fakeViewport) ClientHeight() int         { return v.clientHeight }
func (v *fakeViewport) TurnOffsets() []TurnOffset { return v.offsets }

func (v *fakeViewport) SetScrollTop(top int) {
	v.scrollTop = top
	v.setCalls++
}

// fakeLocation is an in-memory fragment slot.
type fakeLocation struct {
	fragment string
	sets     int
}

func (l *fakeLocation) Fragment() string { return l.fragment }
func (l *fakeLocation) SetFragment(f string) {
	l.fragment = f
	l.sets++
}

// fakePending is a one-shot pending-navigation marker store.
type fakePending struct {
	entries map[string]string
	takes   int
}

func (p *fakePending) TakePendingTurn(sessionID string) (string, bool) {
	p.takes++
	id, ok := p.entries[sessionID]
	if ok {
		delete(p.entries, sessionID)
	}
	return id, ok
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time            { return c.t }
func (c *fakeClock) Advance(d time.Duration)   { c.t = c.t.Add(d) }
