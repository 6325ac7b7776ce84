package messages

// WheelCoalescedMsg aggregates mouse wheel deltas to reduce render storms.
// Delta is positive for wheel down and negative for wheel up.
type WheelCoalescedMsg struct {
	Delta int
	X     int
	Y     int
}

// FrameFlushMsg drives deferred per-frame work (scroll corrections, focus
// recomputation) scheduled for the frame after a state change.
type FrameFlushMsg struct{}

// DispatchMsg carries a closure from a background timer or watcher back onto
// the update loop, where all transcript state lives.
type DispatchMsg struct {
	Fn func()
}
