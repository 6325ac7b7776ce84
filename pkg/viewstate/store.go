// Package viewstate provides persistent view state storage: per-session
// scroll position and focused-turn fragment, the last active session, and
// one-shot pending jump markers consumed on the next session open.
package viewstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/coderelay/relay/pkg/paths"
	"github.com/coderelay/relay/pkg/sqliteutil"
)

// Store manages persistent view state in a SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a view state store in the default data directory, initializing
// the database if needed.
func New() (*Store, error) {
	return NewAt(filepath.Join(paths.GetDataDir(), "view_state.db"))
}

// NewAt creates a view state store at an explicit database path.
func NewAt(dbPath string) (*Store, error) {
	db, err := sqliteutil.OpenDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening view state store: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating view state store: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS session_views (
			session_id TEXT PRIMARY KEY,
			scroll_x INTEGER NOT NULL DEFAULT 0,
			scroll_y INTEGER NOT NULL DEFAULT 0,
			fragment TEXT NOT NULL DEFAULT '',
			last_active_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS active_session (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			session_id TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS pending_jumps (
			session_id TEXT PRIMARY KEY,
			turn_id TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveScroll persists the scroll position for a session.
func (s *Store) SaveScroll(ctx context.Context, sessionID string, x, y int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_views (session_id, scroll_x, scroll_y, last_active_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_id) DO UPDATE SET
		  scroll_x = excluded.scroll_x,
		  scroll_y = excluded.scroll_y,
		  last_active_at = CURRENT_TIMESTAMP
	`, sessionID, x, y)
	return err
}

// GetScroll returns the persisted scroll position for a session. A session
// never seen before reads as the origin.
func (s *Store) GetScroll(ctx context.Context, sessionID string) (x, y int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT scroll_x, scroll_y FROM session_views WHERE session_id = ?`, sessionID).
		Scan(&x, &y)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, nil
	}
	return x, y, err
}

// SetFragment persists the focused-turn fragment ("turn-<id>") for a session.
// An empty fragment means the session follows the bottom.
func (s *Store) SetFragment(ctx context.Context, sessionID, fragment string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_views (session_id, fragment, last_active_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_id) DO UPDATE SET
		  fragment = excluded.fragment,
		  last_active_at = CURRENT_TIMESTAMP
	`, sessionID, fragment)
	return err
}

// GetFragment returns the persisted fragment for a session, or "" if none.
func (s *Store) GetFragment(ctx context.Context, sessionID string) (string, error) {
	var fragment string
	err := s.db.QueryRowContext(ctx,
		`SELECT fragment FROM session_views WHERE session_id = ?`, sessionID).
		Scan(&fragment)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return fragment, err
}

// SetActiveSession records the currently open session.
func (s *Store) SetActiveSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO active_session (id, session_id)
		VALUES (1, ?)
	`, sessionID)
	return err
}

// GetActiveSession returns the last open session id, or "" if none.
func (s *Store) GetActiveSession(ctx context.Context) (string, error) {
	var sessionID string
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id FROM active_session WHERE id = 1`).Scan(&sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return sessionID, err
}

// SetPendingTurn records a one-shot jump target for a session, typically
// written right before a reload or handoff from another surface.
func (s *Store) SetPendingTurn(ctx context.Context, sessionID, turnID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO pending_jumps (session_id, turn_id, created_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
	`, sessionID, turnID)
	return err
}

// TakePendingTurn reads and clears the pending jump marker for a session.
// The marker is consumed even if the caller later fails to navigate; a stale
// marker must never re-trigger on a later open.
func (s *Store) TakePendingTurn(ctx context.Context, sessionID string) (string, bool, error) {
	var turnID string
	err := s.db.QueryRowContext(ctx,
		`SELECT turn_id FROM pending_jumps WHERE session_id = ?`, sessionID).
		Scan(&turnID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM pending_jumps WHERE session_id = ?`, sessionID); err != nil {
		return "", false, err
	}
	return turnID, turnID != "", nil
}

// DeleteSessionView removes all view state for a session.
func (s *Store) DeleteSessionView(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM session_views WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM pending_jumps WHERE session_id = ?`, sessionID)
	return err
}
