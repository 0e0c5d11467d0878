package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/esqlite/internal/protocol"
	"github.com/roach88/esqlite/internal/store"
)

// NewPortCommand creates the port command.
func NewPortCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "port",
		Short: "Serve the command protocol on stdin/stdout",
		Long: `Open the database and answer length-prefixed command frames read
from stdin with reply frames on stdout, one at a time, until a close
command or end of input. Logs go to stderr.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolveTarget(rootOpts)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := store.Open(ctx, t.path, t.storeOpts...)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open database", err)
			}

			slog.Info("serving protocol", "conn", t.name, "path", t.path, "driver", store.DriverName())
			if err := protocol.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), s); err != nil {
				return WrapExitError(ExitFailure, "protocol stream failed", err)
			}
			return nil
		},
	}
}
