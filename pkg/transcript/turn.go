// Package transcript stores and serves coding-agent session transcripts: an
// ordered sequence of turns per session, durable in SQLite, with a feed that
// tracks external changes to the database.
package transcript

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one entry in a session transcript. IDs sort lexicographically in
// arrival order, so the ordered sequence is just the turns sorted by ID.
type Turn struct {
	ID        string
	SessionID string
	Role      Role
	Author    string
	Content   string
	CreatedAt time.Time
}

// NewTurnID builds a sortable turn id from a per-session sequence number: a
// zero-padded counter prefix keeps lexicographic order equal to arrival
// order, and a uuid suffix keeps ids unique across reverts that reuse a
// sequence position.
func NewTurnID(seq int64) string {
	return fmt.Sprintf("%012d-%s", seq, uuid.NewString())
}

// Session is the transcript container. Turns are stored separately and
// loaded on demand.
type Session struct {
	ID        string
	Title     string
	CreatedAt time.Time
}

// Summary contains lightweight session metadata for listing purposes.
type Summary struct {
	ID        string
	Title     string
	CreatedAt time.Time
	TurnCount int
}
