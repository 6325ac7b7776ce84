// Package root implements the relay command line interface.
package root

import (
	"cmp"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coderelay/relay/pkg/logging"
	"github.com/coderelay/relay/pkg/paths"
)

type rootFlags struct {
	debugMode   bool
	logFilePath string
	dbPath      string
	logFile     io.Closer
}

func NewRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "relay - coding agent session viewer",
		Long:  "relay is a terminal viewer for recorded coding-agent sessions",
		Example: `  relay
  relay view 000000000042-1f0e...
  relay sessions`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Initialize logging before anything else so logs don't break the TUI
			if err := flags.setupLogging(); err != nil {
				// If logging setup fails, fall back to stderr so we still get logs
				slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
					Level: func() slog.Level {
						if flags.debugMode {
							return slog.LevelDebug
						}
						return slog.LevelInfo
					}(),
				})))
			}
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if flags.logFile != nil {
				if err := flags.logFile.Close(); err != nil {
					slog.Error("Failed to close log file", "error", err)
				}
			}
			return nil
		},
		// Bare "relay" opens the session picker.
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runView(cmd.Context(), &flags, "", "")
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.debugMode, "debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&flags.logFilePath, "log-file", "", "Path to debug log file (default: ~/.relay/relay.debug.log; only used with --debug)")
	cmd.PersistentFlags().StringVar(&flags.dbPath, "db", "", "Path to the session database (default: ~/.relay/sessions.db)")

	cmd.AddCommand(newViewCmd(&flags))
	cmd.AddCommand(newSessionsCmd(&flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func Execute(ctx context.Context, stdout, stderr io.Writer, args ...string) error {
	rootCmd := NewRootCmd()
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetContext(ctx)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// setupLogging configures slog logging behavior. With --debug, logs go to a
// rotating file under the data directory (or --log-file); otherwise logging
// is discarded so it never corrupts the TUI.
func (f *rootFlags) setupLogging() error {
	if !f.debugMode {
		slog.SetDefault(slog.New(slog.DiscardHandler))
		return nil
	}

	path := cmp.Or(strings.TrimSpace(f.logFilePath), filepath.Join(paths.GetDataDir(), "relay.debug.log"))

	logFile, err := logging.NewRotatingFile(path)
	if err != nil {
		return err
	}
	f.logFile = logFile

	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug})))

	return nil
}
