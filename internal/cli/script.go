package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/esqlite/internal/protocol"
)

// OutcomeJSON is one script statement's result.
type OutcomeJSON struct {
	SQL   string `json:"sql"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// NewScriptCommand creates the script command.
func NewScriptCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script <file|->",
		Short: "Run a multi-statement script",
		Long: `Run every statement of a SQL script in order, stopping at the first
failure. Statements after a failure are not run.

Exit codes:
  0 - Every statement succeeded
  1 - A statement failed
  2 - Command error (unreadable file, database cannot open)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runScript(cmd *cobra.Command, opts *RootOptions, file string) error {
	var (
		src []byte
		err error
	)
	if file == "-" {
		src, err = io.ReadAll(cmd.InOrStdin())
	} else {
		src, err = os.ReadFile(file)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read script", err)
	}

	ctx := cmd.Context()
	reg, conn, err := openConn(ctx, opts)
	if err != nil {
		return err
	}
	defer reg.CloseAll()

	out := newFormatter(opts, cmd.OutOrStdout())
	outcomes, runErr := conn.Script(ctx, string(src))
	if runErr != nil && outcomes == nil {
		return out.Error(runErr)
	}

	data := make([]OutcomeJSON, len(outcomes))
	for i, o := range outcomes {
		data[i] = outcomeJSON(o)
	}

	if runErr != nil {
		if !out.JSON() {
			writeOutcomes(out.Writer, data)
		}
		return out.Error(runErr)
	}
	return out.Success(data, func(w io.Writer) {
		writeOutcomes(w, data)
	})
}

func outcomeJSON(o protocol.Outcome) OutcomeJSON {
	j := OutcomeJSON{SQL: o.SQL, OK: o.OK()}
	if !o.OK() {
		j.Error = fmt.Sprintf("%s: %s", o.Error.Code, o.Error.Message)
	}
	return j
}

func writeOutcomes(w io.Writer, outcomes []OutcomeJSON) {
	for i, o := range outcomes {
		status := "ok"
		if !o.OK {
			status = "FAILED"
		}
		fmt.Fprintf(w, "%d. %s %s\n", i+1, status, o.SQL)
	}
}
