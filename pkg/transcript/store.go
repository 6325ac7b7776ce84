package transcript

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/coderelay/relay/pkg/sqliteutil"
)

var (
	ErrEmptyID  = errors.New("session ID cannot be empty")
	ErrNotFound = errors.New("session not found")
)

// Store defines the interface for transcript storage.
type Store interface {
	AddSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	GetSessionSummaries(ctx context.Context) ([]Summary, error)
	DeleteSession(ctx context.Context, id string) error
	UpdateSessionTitle(ctx context.Context, id, title string) error

	// AddTurn appends a turn to a session's transcript.
	AddTurn(ctx context.Context, sessionID string, turn *Turn) error

	// GetTurns returns the ordered, non-reverted turn sequence of a session.
	GetTurns(ctx context.Context, sessionID string) ([]Turn, error)

	// RevertAfter marks every turn ordered after turnID as reverted, hiding
	// it from GetTurns. The turns stay in storage so the revert is auditable.
	RevertAfter(ctx context.Context, sessionID, turnID string) error
}

// InMemoryStore keeps transcripts in process memory. Used by tests and as a
// scratch backend when no database path is configured.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	turns    map[string][]Turn
	reverted map[string]map[string]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*Session),
		turns:    make(map[string][]Turn),
		reverted: make(map[string]map[string]bool),
	}
}

func (s *InMemoryStore) AddSession(_ context.Context, session *Session) error {
	if session.ID == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *InMemoryStore) GetSession(_ context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return session, nil
}

func (s *InMemoryStore) GetSessionSummaries(_ context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries := make([]Summary, 0, len(s.sessions))
	for _, session := range s.sessions {
		count := 0
		for _, turn := range s.turns[session.ID] {
			if !s.reverted[session.ID][turn.ID] {
				count++
			}
		}
		summaries = append(summaries, Summary{
			ID:        session.ID,
			Title:     session.Title,
			CreatedAt: session.CreatedAt,
			TurnCount: count,
		})
	}
	// Newest first, matching the SQLite query.
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

func (s *InMemoryStore) DeleteSession(_ context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	delete(s.turns, id)
	delete(s.reverted, id)
	return nil
}

func (s *InMemoryStore) UpdateSessionTitle(_ context.Context, id, title string) error {
	if id == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	session.Title = title
	return nil
}

func (s *InMemoryStore) AddTurn(_ context.Context, sessionID string, turn *Turn) error {
	if sessionID == "" || turn.ID == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	stored := *turn
	stored.SessionID = sessionID
	s.turns[sessionID] = append(s.turns[sessionID], stored)
	return nil
}

func (s *InMemoryStore) GetTurns(_ context.Context, sessionID string) ([]Turn, error) {
	if sessionID == "" {
		return nil, ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return nil, ErrNotFound
	}

	var turns []Turn
	for _, turn := range s.turns[sessionID] {
		if !s.reverted[sessionID][turn.ID] {
			turns = append(turns, turn)
		}
	}
	sort.Slice(turns, func(i, j int) bool { return turns[i].ID < turns[j].ID })
	return turns, nil
}

func (s *InMemoryStore) RevertAfter(_ context.Context, sessionID, turnID string) error {
	if sessionID == "" || turnID == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	if s.reverted[sessionID] == nil {
		s.reverted[sessionID] = make(map[string]bool)
	}
	for _, turn := range s.turns[sessionID] {
		if turn.ID > turnID {
			s.reverted[sessionID][turn.ID] = true
		}
	}
	return nil
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the transcript database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqliteutil.OpenDB(path)
	if err != nil {
		return nil, err
	}

	_, err = db.ExecContext(context.Background(), `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS turns (
			id TEXT NOT NULL,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			author TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			reverted INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			PRIMARY KEY (session_id, id)
		);
		CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, id);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing transcript schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AddSession(ctx context.Context, session *Session) error {
	if session.ID == "" {
		return ErrEmptyID
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, title, created_at) VALUES (?, ?, ?)",
		session.ID, session.Title, session.CreatedAt.Format(time.RFC3339))
	return err
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	var title, createdAtStr string
	err := s.db.QueryRowContext(ctx,
		"SELECT title, created_at FROM sessions WHERE id = ?", id).
		Scan(&title, &createdAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	createdAt, err := time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at for session %s: %w", id, err)
	}

	return &Session{ID: id, Title: title, CreatedAt: createdAt}, nil
}

func (s *SQLiteStore) GetSessionSummaries(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.title, s.created_at,
		       (SELECT COUNT(*) FROM turns t WHERE t.session_id = s.id AND t.reverted = 0)
		FROM sessions s
		ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var summary Summary
		var createdAtStr string
		if err := rows.Scan(&summary.ID, &summary.Title, &createdAtStr, &summary.TurnCount); err != nil {
			return nil, err
		}
		summary.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) UpdateSessionTitle(ctx context.Context, id, title string) error {
	if id == "" {
		return ErrEmptyID
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET title = ? WHERE id = ?", title, id)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) AddTurn(ctx context.Context, sessionID string, turn *Turn) error {
	if sessionID == "" || turn.ID == "" {
		return ErrEmptyID
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO turns (id, session_id, role, author, content, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		turn.ID, sessionID, string(turn.Role), turn.Author, turn.Content,
		turn.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting turn: %w", err)
	}

	slog.Debug("[STORE] AddTurn", "session_id", sessionID, "turn_id", turn.ID, "role", turn.Role)
	return nil
}

func (s *SQLiteStore) GetTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	if sessionID == "" {
		return nil, ErrEmptyID
	}

	// Distinguish "unknown session" from "session with no turns".
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM sessions WHERE id = ?", sessionID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, role, author, content, created_at FROM turns WHERE session_id = ? AND reverted = 0 ORDER BY id",
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		turn := Turn{SessionID: sessionID}
		var role, createdAtStr string
		if err := rows.Scan(&turn.ID, &role, &turn.Author, &turn.Content, &createdAtStr); err != nil {
			return nil, err
		}
		turn.Role = Role(role)
		turn.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at for turn %s: %w", turn.ID, err)
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

func (s *SQLiteStore) RevertAfter(ctx context.Context, sessionID, turnID string) error {
	if sessionID == "" || turnID == "" {
		return ErrEmptyID
	}

	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM sessions WHERE id = ?", sessionID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE turns SET reverted = 1 WHERE session_id = ? AND id > ?",
		sessionID, turnID)
	return err
}
