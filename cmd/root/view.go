package root

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/coderelay/relay/pkg/paths"
	"github.com/coderelay/relay/pkg/transcript"
	"github.com/coderelay/relay/pkg/tui"
	"github.com/coderelay/relay/pkg/userconfig"
	"github.com/coderelay/relay/pkg/viewstate"
)

func newViewCmd(flags *rootFlags) *cobra.Command {
	var turnID string

	cmd := &cobra.Command{
		Use:   "view [session-id]",
		Short: "Open a session transcript",
		Long:  "Open a session transcript, or the session picker when no id is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sessionID string
			if len(args) == 1 {
				sessionID = args[0]
			}
			if turnID != "" && sessionID == "" {
				return fmt.Errorf("--turn requires a session id")
			}
			return runView(cmd.Context(), flags, sessionID, turnID)
		},
	}

	cmd.Flags().StringVar(&turnID, "turn", "", "Jump to this turn after opening the session")

	return cmd
}

// runView wires the stores together and starts the TUI. When turnID is set, a
// one-shot jump marker is written first so the navigation resolver scrolls to
// it once the turn is loaded.
func runView(ctx context.Context, flags *rootFlags, sessionID, turnID string) error {
	cfg, err := userconfig.Load()
	if err != nil {
		return err
	}

	dbPath := resolveDBPath(flags, cfg)
	store, err := transcript.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening session database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close session store", "error", err)
		}
	}()

	views, err := viewstate.New()
	if err != nil {
		return err
	}
	defer func() {
		if err := views.Close(); err != nil {
			slog.Warn("Failed to close view state store", "error", err)
		}
	}()

	// No explicit session: reopen where the user left off, if anywhere.
	if sessionID == "" {
		if active, err := views.GetActiveSession(ctx); err == nil && active != "" {
			if _, err := store.GetSession(ctx, active); err == nil {
				sessionID = active
			}
		}
	}

	if turnID != "" {
		if err := views.SetPendingTurn(ctx, sessionID, turnID); err != nil {
			return fmt.Errorf("recording jump marker: %w", err)
		}
	}

	return tui.Run(ctx, store, views, cfg, dbPath, sessionID)
}

func resolveDBPath(flags *rootFlags, cfg *userconfig.Config) string {
	return cmp.Or(flags.dbPath, cfg.Database, filepath.Join(paths.GetDataDir(), "sessions.db"))
}
