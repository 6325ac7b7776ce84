package viewstate

import (
	"context"
	"log/slog"
)

// SessionLocation binds the persisted fragment of one session behind a
// synchronous read/write surface. Reads come from a cache loaded at bind
// time; writes go through to the store, and a write failure keeps the cached
// value so the UI stays consistent within the run.
type SessionLocation struct {
	store     *Store
	sessionID string
	cached    string
}

// BindLocation loads the persisted fragment for a session and returns a
// location bound to it.
func (s *Store) BindLocation(ctx context.Context, sessionID string) *SessionLocation {
	fragment, err := s.GetFragment(ctx, sessionID)
	if err != nil {
		slog.Warn("Failed to load session fragment", "session_id", sessionID, "error", err)
	}
	return &SessionLocation{store: s, sessionID: sessionID, cached: fragment}
}

// Fragment returns the current fragment.
func (l *SessionLocation) Fragment() string { return l.cached }

// SetFragment updates the fragment and persists it.
func (l *SessionLocation) SetFragment(fragment string) {
	l.cached = fragment
	if err := l.store.SetFragment(context.Background(), l.sessionID, fragment); err != nil {
		slog.Warn("Failed to persist session fragment", "session_id", l.sessionID, "error", err)
	}
}

// PendingTurns exposes the one-shot jump markers behind the synchronous
// consume-only surface the navigation resolver expects. Storage errors read
// as "no marker": a broken view state database must not block opening a
// session.
type PendingTurns struct {
	store *Store
}

// PendingTurns returns the consume-only view of the pending jump markers.
func (s *Store) PendingTurns() *PendingTurns {
	return &PendingTurns{store: s}
}

// TakePendingTurn consumes the pending jump marker for a session, if any.
func (p *PendingTurns) TakePendingTurn(sessionID string) (string, bool) {
	turnID, ok, err := p.store.TakePendingTurn(context.Background(), sessionID)
	if err != nil {
		slog.Warn("Failed to take pending jump marker", "session_id", sessionID, "error", err)
		return "", false
	}
	return turnID, ok
}
