package store

import (
	"context"
	"database/sql/driver"
	"fmt"

	"github.com/roach88/esqlite/internal/codec"
	"github.com/roach88/esqlite/internal/ir"
	"github.com/roach88/esqlite/internal/protocol"
)

// prepared is one live statement and its cursor.
//
// The cursor is opened lazily by columns or the first next, and closed by
// bind, reset, finalize or exhaustion. After exhaustion next reports done
// until the statement is reset or rebound.
type prepared struct {
	sql  string
	stmt driver.Stmt
	args []any
	cur  *cursor
	cols []string
	done bool
}

func (p *prepared) closeCursor() error {
	if p.cur == nil {
		return nil
	}
	err := p.cur.close()
	p.cur = nil
	return err
}

func (s *Store) prepare(ctx context.Context, query string) protocol.Reply {
	var stmt driver.Stmt
	err := s.conn.Raw(func(dc any) error {
		pc, ok := dc.(driver.ConnPrepareContext)
		if !ok {
			return fmt.Errorf("driver %s does not support prepared statements", driverName)
		}
		var err error
		stmt, err = pc.PrepareContext(ctx, query)
		return err
	})
	if err != nil {
		return protocol.ErrorReply(engineError(err))
	}

	h := s.handles.Generate()
	if _, exists := s.prepared[h]; exists {
		s.closeStmt(stmt)
		return protocol.ErrorReply(ir.Errorf(ir.ErrCodeEngine, "handle %s issued twice", h))
	}
	s.prepared[h] = &prepared{sql: query, stmt: stmt}
	return protocol.Reply{Kind: protocol.KindHandle, Handle: h}
}

// closeStmt finalizes a driver statement on the connection that owns it.
func (s *Store) closeStmt(stmt driver.Stmt) error {
	var closeErr error
	if err := s.conn.Raw(func(any) error {
		closeErr = stmt.Close()
		return nil
	}); err != nil {
		return err
	}
	return closeErr
}

func (s *Store) lookup(h ir.Handle) (*prepared, error) {
	p, ok := s.prepared[h]
	if !ok {
		return nil, ir.Errorf(ir.ErrCodeInvalidHandle, "unknown or finalized handle %s", h)
	}
	return p, nil
}

// open starts the cursor if it is not running. Cursors outlive the command
// that opened them, so they are detached from its cancellation.
func (s *Store) open(ctx context.Context, p *prepared) error {
	if p.cur != nil {
		return nil
	}
	if n := p.stmt.NumInput(); n >= 0 && n != len(p.args) {
		return ir.Errorf(ir.ErrCodeEngine, "sql: expected %d arguments, got %d", n, len(p.args))
	}

	ctx = context.WithoutCancel(ctx)
	c, err := s.openCursor(ctx, p.sql, p.args, func(any) (driver.Rows, error) {
		sq, ok := p.stmt.(driver.StmtQueryContext)
		if !ok {
			return nil, fmt.Errorf("driver %s does not support statement queries", driverName)
		}
		return sq.QueryContext(ctx, namedValues(p.args))
	})
	if err != nil {
		return err
	}
	p.cur, p.cols = c, c.cols
	return nil
}

func (s *Store) columns(ctx context.Context, h ir.Handle) protocol.Reply {
	p, err := s.lookup(h)
	if err != nil {
		return protocol.ErrorReply(err)
	}
	if p.cols == nil {
		if err := s.open(ctx, p); err != nil {
			return protocol.ErrorReply(err)
		}
	}
	return protocol.Reply{Kind: protocol.KindColumns, Columns: p.cols}
}

func (s *Store) bind(h ir.Handle, params []ir.Param) protocol.Reply {
	p, err := s.lookup(h)
	if err != nil {
		return protocol.ErrorReply(err)
	}
	args, err := codec.BindArgs(params)
	if err != nil {
		return protocol.ErrorReply(err)
	}
	if err := p.closeCursor(); err != nil {
		return protocol.ErrorReply(engineError(err))
	}
	p.args, p.done = args, false
	return protocol.Ack()
}

func (s *Store) next(ctx context.Context, h ir.Handle) protocol.Reply {
	p, err := s.lookup(h)
	if err != nil {
		return protocol.ErrorReply(err)
	}
	if p.done {
		return protocol.Done()
	}
	if err := s.open(ctx, p); err != nil {
		return protocol.ErrorReply(err)
	}

	row, ok, err := p.cur.next()
	if err != nil || !ok {
		p.done = true
		if cerr := p.closeCursor(); cerr != nil && err == nil {
			err = engineError(cerr)
		}
		if err != nil {
			return protocol.ErrorReply(err)
		}
		return protocol.Done()
	}
	return protocol.Reply{Kind: protocol.KindRow, Row: row}
}

func (s *Store) reset(h ir.Handle) protocol.Reply {
	p, err := s.lookup(h)
	if err != nil {
		return protocol.ErrorReply(err)
	}
	if err := p.closeCursor(); err != nil {
		return protocol.ErrorReply(engineError(err))
	}
	p.done = false
	return protocol.Ack()
}

func (s *Store) finalize(h ir.Handle) protocol.Reply {
	if _, err := s.lookup(h); err != nil {
		return protocol.ErrorReply(err)
	}
	if err := s.release(h); err != nil {
		return protocol.ErrorReply(engineError(err))
	}
	return protocol.Ack()
}

// release closes a statement and forgets its handle.
func (s *Store) release(h ir.Handle) error {
	p := s.prepared[h]
	delete(s.prepared, h)

	cursorErr := p.closeCursor()
	if err := s.closeStmt(p.stmt); err != nil {
		return fmt.Errorf("finalize %s: %w", h, err)
	}
	return cursorErr
}

// Live returns the number of live prepared statements.
func (s *Store) Live() int {
	return len(s.prepared)
}
