package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/esqlite/internal/codec"
	"github.com/roach88/esqlite/internal/ir"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Params []string
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <sql>",
		Short: "Run one statement",
		Long: `Run one SQL statement and print its result.

Parameters are SQL literals: 42, 1.5, 'text', X'CAFE', NULL. Prefix a
parameter with a name and '=' to bind it by name.

Examples:
  esqlite exec --db app.db "SELECT * FROM users"
  esqlite exec --db app.db "SELECT * FROM users WHERE id = ?" --param 7
  esqlite exec --db app.db "INSERT INTO users (name) VALUES (:name)" --param ":name='ann'"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "bound parameter as a SQL literal, optionally name=literal")

	return cmd
}

func runExec(cmd *cobra.Command, opts *ExecOptions, sql string) error {
	params, err := parseParams(opts.Params)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid parameter", err)
	}

	ctx := cmd.Context()
	reg, conn, err := openConn(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer reg.CloseAll()

	out := newFormatter(opts.RootOptions, cmd.OutOrStdout())
	res, err := conn.ExecParams(ctx, sql, params...)
	if err != nil {
		return out.Error(err)
	}

	return out.Success(resultJSON(res), func(w io.Writer) {
		if res.Columns != nil {
			writeTable(w, res.Columns, res.Rows)
			return
		}
		fmt.Fprintf(w, "ok rows_affected=%d last_insert_id=%d\n", res.RowsAffected, res.LastInsertID)
	})
}

// parseParams converts --param flags. "name=literal" binds by name when
// name starts with ':', '@' or '$'; "?N=literal" binds by index.
func parseParams(raw []string) ([]ir.Param, error) {
	params := make([]ir.Param, 0, len(raw))
	for _, p := range raw {
		name, lit := "", p
		if len(p) > 0 && strings.ContainsRune(":@$?", rune(p[0])) {
			if n, l, ok := strings.Cut(p, "="); ok {
				name, lit = n, l
			}
		}

		v, err := codec.ParseLiteral(lit)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}

		switch {
		case name == "":
			params = append(params, ir.P(v))
		case name[0] == '?':
			idx, err := strconv.Atoi(name[1:])
			if err != nil || idx < 1 {
				return nil, fmt.Errorf("%s: invalid parameter index", p)
			}
			params = append(params, ir.Indexed(idx, v))
		default:
			params = append(params, ir.Named(name, v))
		}
	}
	return params, nil
}
