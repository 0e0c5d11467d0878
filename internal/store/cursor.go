package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/esqlite/internal/codec"
	"github.com/roach88/esqlite/internal/ir"
)

// cursor reads a result set straight from the driver connection.
//
// Through database/sql a value arrives only after the driver has converted
// it by declared column type (DATE and TIMESTAMP text or integers become
// time.Time, BOOLEAN integers become bool). Rows are therefore pulled from
// the driver with that conversion turned off; see plainRows.
type cursor struct {
	conn *sql.Conn
	rows driver.Rows
	cols []string
	dest []driver.Value
}

// queryFunc starts a result set on the driver connection dc.
type queryFunc func(dc any) (driver.Rows, error)

// query runs a statement on the connection.
func (s *Store) query(ctx context.Context, query string, args []any) (*cursor, error) {
	return s.openCursor(ctx, query, args, func(dc any) (driver.Rows, error) {
		return queryConn(ctx, dc, query, args)
	})
}

// openCursor runs start and prepares the cursor for reading. When the
// driver cannot read the result plainly, a SELECT-form statement is re-run
// with its declared column types stripped.
func (s *Store) openCursor(ctx context.Context, query string, args []any, start queryFunc) (*cursor, error) {
	c := &cursor{conn: s.conn}
	err := s.conn.Raw(func(dc any) error {
		rows, err := start(dc)
		if err != nil {
			return err
		}
		c.cols = rows.Columns()

		if !plainRows(rows) {
			if text, ok := undeclared(query, len(c.cols)); ok {
				if plain, err := queryConn(ctx, dc, text, args); err == nil {
					rows.Close()
					rows = plain
				}
			}
		}
		c.rows = rows
		return nil
	})
	if err != nil {
		return nil, engineError(err)
	}
	c.dest = make([]driver.Value, len(c.cols))
	return c, nil
}

// next reads one row. ok is false once the result set is exhausted.
func (c *cursor) next() (row ir.Row, ok bool, err error) {
	var stepErr error
	if err := c.conn.Raw(func(any) error {
		stepErr = c.rows.Next(c.dest)
		return nil
	}); err != nil {
		return nil, false, engineError(err)
	}
	if errors.Is(stepErr, io.EOF) {
		return nil, false, nil
	}
	if stepErr != nil {
		return nil, false, engineError(stepErr)
	}

	row = make(ir.Row, len(c.dest))
	for i, v := range c.dest {
		val, err := codec.FromEngine(v)
		if err != nil {
			return nil, false, ir.Errorf(ir.CodeOf(err), "column %s: %s", c.cols[i], ir.AsError(err).Message)
		}
		row[i] = val
	}
	return row, true, nil
}

// close releases the result set. close is idempotent.
func (c *cursor) close() error {
	if c.rows == nil {
		return nil
	}
	var closeErr error
	err := c.conn.Raw(func(any) error {
		closeErr = c.rows.Close()
		return nil
	})
	c.rows = nil
	if err != nil {
		return err
	}
	return closeErr
}

// drain reads every remaining row and closes the cursor.
func (c *cursor) drain() ([]ir.Row, error) {
	defer c.close()

	result := []ir.Row{}
	for {
		row, ok, err := c.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return result, nil
		}
		result = append(result, row)
	}
}

func queryConn(ctx context.Context, dc any, query string, args []any) (driver.Rows, error) {
	q, ok := dc.(driver.QueryerContext)
	if !ok {
		return nil, fmt.Errorf("driver %s does not support queries on a connection", driverName)
	}
	return q.QueryContext(ctx, query, namedValues(args))
}

// namedValues converts bind arguments the way database/sql does: every
// argument gets a 1-based ordinal and sql.Named arguments carry their name.
func namedValues(args []any) []driver.NamedValue {
	out := make([]driver.NamedValue, len(args))
	for i, a := range args {
		nv := driver.NamedValue{Ordinal: i + 1, Value: a}
		if n, ok := a.(sql.NamedArg); ok {
			nv.Name, nv.Value = n.Name, n.Value
		}
		out[i] = nv
	}
	return out
}

// undeclared wraps a single SELECT, WITH or VALUES statement so that none of
// its n result columns has a declared type. Columns are renamed through a
// CTE column list and passed through unary plus, which keeps the value and
// its storage class.
func undeclared(query string, n int) (string, bool) {
	stmts := SplitStatements(query)
	if len(stmts) != 1 || n == 0 {
		return "", false
	}
	switch leadingKeyword(stmts[0]) {
	case "SELECT", "WITH", "VALUES":
	default:
		return "", false
	}

	names := make([]string, n)
	exprs := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("c%d", i+1)
		exprs[i] = "+" + names[i]
	}
	return fmt.Sprintf("WITH esqlite_rows(%s) AS (\n%s\n) SELECT %s FROM esqlite_rows",
		strings.Join(names, ", "), stmts[0], strings.Join(exprs, ", ")), true
}
