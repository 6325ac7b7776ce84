// Package frames provides a single deferred-work stream tied to the render
// cycle: callbacks registered with OnNextFrame run after the next frame, and
// the frame timer is only armed while work is pending, so an idle transcript
// generates no ticks.
package frames

import (
	"sync"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/coderelay/relay/pkg/tui/messages"
)

// frameInterval approximates one render frame.
const frameInterval = time.Second / 60

type entry struct {
	fn        func()
	cancelled bool
}

// Scheduler queues per-frame callbacks. The update loop arms it with Tick
// after every update and drains it with Flush on FrameFlushMsg.
//
// The mutex protects against registration from Cmd goroutines; the typical
// path is single-threaded through the update loop.
type Scheduler struct {
	mu    sync.Mutex
	queue []*entry
	armed bool
}

func New() *Scheduler {
	return &Scheduler{}
}

// OnNextFrame registers fn to run after the next frame. The returned cancel
// func is safe to call after the callback has fired.
func (s *Scheduler) OnNextFrame(fn func()) (cancel func()) {
	e := &entry{fn: fn}
	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		e.cancelled = true
		s.mu.Unlock()
	}
}

// Pending reports whether any callbacks are waiting for a frame.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue) > 0
}

// Tick arms the frame timer when work is pending and no timer is armed yet.
// Returns nil otherwise, so it can be called unconditionally after updates.
func (s *Scheduler) Tick() tea.Cmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.armed || len(s.queue) == 0 {
		return nil
	}
	s.armed = true
	return tea.Tick(frameInterval, func(time.Time) tea.Msg {
		return messages.FrameFlushMsg{}
	})
}

// Flush runs the callbacks queued before this frame. Callbacks registered
// while flushing wait for the next frame. Returns the re-arm command when
// more work was queued during the flush.
func (s *Scheduler) Flush() tea.Cmd {
	s.mu.Lock()
	batch := s.queue
	s.queue = nil
	s.armed = false
	s.mu.Unlock()

	for _, e := range batch {
		s.mu.Lock()
		skip := e.cancelled
		s.mu.Unlock()
		if !skip {
			e.fn()
		}
	}
	return s.Tick()
}
