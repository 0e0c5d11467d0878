package engine

import (
	"context"

	"github.com/roach88/esqlite/internal/ir"
	"github.com/roach88/esqlite/internal/protocol"
	"github.com/roach88/esqlite/internal/querysql"
	"github.com/roach88/esqlite/internal/schema"
)

// Result is a fully materialized statement result.
//
// Statements that return columns fill Columns and Rows (Rows is empty, not
// nil, when no row matched). INSERT, UPDATE, DELETE and REPLACE fill
// RowsAffected and LastInsertID instead.
type Result struct {
	Columns      []string
	Rows         []ir.Row
	RowsAffected int64
	LastInsertID int64
}

func resultOf(reply protocol.Reply) *Result {
	rows := reply.Rows
	if reply.Kind == protocol.KindRows && rows == nil {
		rows = []ir.Row{}
	}
	return &Result{
		Columns:      reply.Columns,
		Rows:         rows,
		RowsAffected: reply.RowsAffected,
		LastInsertID: reply.LastInsertID,
	}
}

// Exec runs one statement and returns its materialized result.
func (c *Conn) Exec(ctx context.Context, sql string) (*Result, error) {
	return c.ExecParams(ctx, sql)
}

// ExecParams runs one statement with bound parameters. Parameters are passed
// to the engine as typed values; the statement text is not rewritten.
func (c *Conn) ExecParams(ctx context.Context, sql string, params ...ir.Param) (*Result, error) {
	reply, err := c.call(ctx, protocol.Exec(sql, params...))
	if err != nil {
		return nil, err
	}
	return resultOf(reply), nil
}

// Script runs a multi-statement script, stopping at the first failure.
//
// The outcomes hold one entry per attempted statement. When a statement
// failed, err is that statement's error and it is the last outcome.
func (c *Conn) Script(ctx context.Context, sql string) ([]protocol.Outcome, error) {
	reply, err := c.call(ctx, protocol.Script(sql))
	if err != nil {
		return nil, err
	}
	if err := reply.Expect(protocol.KindOutcomes); err != nil {
		return nil, err
	}
	if n := len(reply.Outcomes); n > 0 && !reply.Outcomes[n-1].OK() {
		return reply.Outcomes, reply.Outcomes[n-1].Error
	}
	return reply.Outcomes, nil
}

// CreateTable creates table with the given ordered columns.
func (c *Conn) CreateTable(ctx context.Context, table string, cols ir.TableSchema) error {
	sql, err := c.builder.CreateTable(table, cols)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, protocol.Exec(sql))
	return err
}

// ListTables returns user table names in name order.
func (c *Conn) ListTables(ctx context.Context) ([]string, error) {
	res, err := c.Exec(ctx, querysql.ListTables)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		if name, ok := row[0].(ir.Text); ok {
			names = append(names, string(name))
		}
	}
	return names, nil
}

// TableInfo returns the table's columns as parsed from its stored
// definition. A table that does not exist is reported with exists false and
// a nil error.
func (c *Conn) TableInfo(ctx context.Context, table string) (cols ir.TableSchema, exists bool, err error) {
	res, err := c.ExecParams(ctx, querysql.TableDefinition, ir.P(ir.Text(table)))
	if err != nil {
		return nil, false, err
	}
	if len(res.Rows) == 0 {
		return nil, false, nil
	}

	def, ok := res.Rows[0][0].(ir.Text)
	if !ok {
		return nil, true, ir.Errorf(ir.ErrCodeInvalidSchema, "table %s has no stored definition", table)
	}
	cols, err = schema.Parse(string(def))
	if err != nil {
		return nil, true, err
	}
	return cols, true, nil
}

// Write inserts one row and returns its rowid.
func (c *Conn) Write(ctx context.Context, table string, fields []ir.Field) (int64, error) {
	sql, err := c.builder.Insert(table, fields)
	if err != nil {
		return 0, err
	}
	reply, err := c.call(ctx, protocol.Exec(sql))
	if err != nil {
		return 0, err
	}
	return reply.LastInsertID, nil
}

// Update sets fields on every row matching where and returns the number of
// rows changed.
func (c *Conn) Update(ctx context.Context, table string, where ir.Predicate, fields []ir.Field) (int64, error) {
	sql, err := c.builder.Update(table, where, fields)
	if err != nil {
		return 0, err
	}
	reply, err := c.call(ctx, protocol.Exec(sql))
	if err != nil {
		return 0, err
	}
	return reply.RowsAffected, nil
}

// Read returns the rows matching where, projected onto columns (all columns
// when none are given).
func (c *Conn) Read(ctx context.Context, table string, where ir.Predicate, columns ...string) (*Result, error) {
	return c.read(ctx, table, &where, columns)
}

// ReadAll returns every row of table.
func (c *Conn) ReadAll(ctx context.Context, table string, columns ...string) (*Result, error) {
	return c.read(ctx, table, nil, columns)
}

func (c *Conn) read(ctx context.Context, table string, where *ir.Predicate, columns []string) (*Result, error) {
	sql, err := c.builder.Select(table, where, columns...)
	if err != nil {
		return nil, err
	}
	return c.Exec(ctx, sql)
}

// Delete removes every row matching where and returns the number removed.
func (c *Conn) Delete(ctx context.Context, table string, where ir.Predicate) (int64, error) {
	sql, err := c.builder.Delete(table, where)
	if err != nil {
		return 0, err
	}
	reply, err := c.call(ctx, protocol.Exec(sql))
	if err != nil {
		return 0, err
	}
	return reply.RowsAffected, nil
}

// DropTable drops table.
func (c *Conn) DropTable(ctx context.Context, table string) error {
	sql, err := c.builder.DropTable(table)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, protocol.Exec(sql))
	return err
}

// Prepare compiles a statement and returns its handle. The handle is valid
// until Finalize or until the connection closes.
func (c *Conn) Prepare(ctx context.Context, sql string) (ir.Handle, error) {
	reply, err := c.call(ctx, protocol.Prepare(sql))
	if err != nil {
		return "", err
	}
	if err := reply.Expect(protocol.KindHandle); err != nil {
		return "", err
	}
	return reply.Handle, nil
}

// Columns returns the result column names of a prepared statement.
func (c *Conn) Columns(ctx context.Context, h ir.Handle) ([]string, error) {
	reply, err := c.call(ctx, protocol.OnHandle(protocol.OpColumns, h))
	if err != nil {
		return nil, err
	}
	if err := reply.Expect(protocol.KindColumns); err != nil {
		return nil, err
	}
	return reply.Columns, nil
}

// Bind replaces the statement's parameters and rewinds it.
func (c *Conn) Bind(ctx context.Context, h ir.Handle, params ...ir.Param) error {
	_, err := c.call(ctx, protocol.Bind(h, params...))
	return err
}

// Next steps the statement. ok is false once the statement is done; it
// stays done until Reset or Bind.
func (c *Conn) Next(ctx context.Context, h ir.Handle) (row ir.Row, ok bool, err error) {
	reply, err := c.call(ctx, protocol.OnHandle(protocol.OpNext, h))
	if err != nil {
		return nil, false, err
	}
	switch reply.Kind {
	case protocol.KindRow:
		return reply.Row, true, nil
	case protocol.KindDone:
		return nil, false, nil
	default:
		return nil, false, reply.Expect(protocol.KindRow)
	}
}

// Reset rewinds the statement, keeping its bindings.
func (c *Conn) Reset(ctx context.Context, h ir.Handle) error {
	_, err := c.call(ctx, protocol.OnHandle(protocol.OpReset, h))
	return err
}

// Finalize releases the statement. Later use of h fails with
// INVALID_HANDLE.
func (c *Conn) Finalize(ctx context.Context, h ir.Handle) error {
	_, err := c.call(ctx, protocol.OnHandle(protocol.OpFinalize, h))
	return err
}

// CreateFunction would register an SQL-callable function. There is no
// callback bridge to the engine, so it always fails with NOT_IMPLEMENTED.
func (c *Conn) CreateFunction(ctx context.Context, name string, arity int) error {
	_, err := c.call(ctx, protocol.Command{Op: protocol.OpCreateFunction, Function: name, Arity: arity})
	return err
}
