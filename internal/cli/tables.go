package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/esqlite/internal/querysql"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "tables",
		Short:         "List user tables",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg, conn, err := openConn(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer reg.CloseAll()

			out := newFormatter(rootOpts, cmd.OutOrStdout())
			tables, err := conn.ListTables(ctx)
			if err != nil {
				return out.Error(err)
			}
			return out.Success(tables, func(w io.Writer) {
				for _, t := range tables {
					fmt.Fprintln(w, t)
				}
			})
		},
	}
}

// ColumnJSON is one column of the schema command's JSON output.
type ColumnJSON struct {
	Name        string   `json:"name"`
	Type        string   `json:"type,omitempty"`
	Constraints []string `json:"constraints,omitempty"`
	Definition  string   `json:"definition"`
}

// SchemaJSON is the schema command's JSON output.
type SchemaJSON struct {
	Table   string       `json:"table"`
	Exists  bool         `json:"exists"`
	Columns []ColumnJSON `json:"columns,omitempty"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Show a table's columns",
		Long: `Show the columns of a table as parsed from its stored definition.

Exit codes:
  0 - Table exists
  1 - Table does not exist, or its definition cannot be parsed
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			table := args[0]
			ctx := cmd.Context()
			reg, conn, err := openConn(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer reg.CloseAll()

			out := newFormatter(rootOpts, cmd.OutOrStdout())
			cols, exists, err := conn.TableInfo(ctx, table)
			if err != nil {
				return out.Error(err)
			}

			data := SchemaJSON{Table: table, Exists: exists}
			for _, col := range cols {
				c := ColumnJSON{
					Name:       col.Name,
					Type:       string(col.Type),
					Definition: querysql.Default.ColumnDefinition(col),
				}
				for _, con := range col.Constraints {
					c.Constraints = append(c.Constraints, con.Kind())
				}
				data.Columns = append(data.Columns, c)
			}

			if err := out.Success(data, func(w io.Writer) {
				if !exists {
					fmt.Fprintf(w, "table %s does not exist\n", table)
					return
				}
				for _, c := range data.Columns {
					fmt.Fprintln(w, c.Definition)
				}
			}); err != nil {
				return err
			}
			if !exists {
				return NewExitError(ExitFailure, fmt.Sprintf("table %s does not exist", table))
			}
			return nil
		},
	}
}
