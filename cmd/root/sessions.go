package root

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/coderelay/relay/pkg/transcript"
	"github.com/coderelay/relay/pkg/userconfig"
)

func newSessionsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := userconfig.Load()
			if err != nil {
				return err
			}

			store, err := transcript.NewSQLiteStore(resolveDBPath(flags, cfg))
			if err != nil {
				return fmt.Errorf("opening session database: %w", err)
			}
			defer func() {
				if err := store.Close(); err != nil {
					slog.Warn("Failed to close session store", "error", err)
				}
			}()

			summaries, err := store.GetSessionSummaries(cmd.Context())
			if err != nil {
				return err
			}

			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions recorded.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tTURNS\tCREATED")
			for _, sum := range summaries {
				title := sum.Title
				if title == "" {
					title = "Untitled"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", sum.ID, title, sum.TurnCount, sum.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}
