package store

import (
	"context"

	"github.com/roach88/esqlite/internal/codec"
	"github.com/roach88/esqlite/internal/ir"
	"github.com/roach88/esqlite/internal/protocol"
)

// Call executes one command. It implements protocol.Backend.
func (s *Store) Call(ctx context.Context, cmd protocol.Command) protocol.Reply {
	if s.closed {
		return protocol.ErrorReply(ir.NewError(ir.ErrCodeConnectionClosed, "store is closed"))
	}
	if err := cmd.Validate(); err != nil {
		return protocol.ErrorReply(err)
	}

	switch cmd.Op {
	case protocol.OpExec:
		return s.exec(ctx, cmd.SQL, cmd.Params)
	case protocol.OpScript:
		return s.script(ctx, cmd.SQL)
	case protocol.OpPrepare:
		return s.prepare(ctx, cmd.SQL)
	case protocol.OpColumns:
		return s.columns(ctx, cmd.Handle)
	case protocol.OpBind:
		return s.bind(cmd.Handle, cmd.Params)
	case protocol.OpNext:
		return s.next(ctx, cmd.Handle)
	case protocol.OpReset:
		return s.reset(cmd.Handle)
	case protocol.OpFinalize:
		return s.finalize(cmd.Handle)
	case protocol.OpCreateFunction:
		return protocol.NotImplemented(cmd.Op)
	case protocol.OpClose:
		if err := s.Close(); err != nil {
			return protocol.ErrorReply(err)
		}
		return protocol.Ack()
	default:
		return protocol.ErrorReply(ir.Errorf(ir.ErrCodeProtocol, "unknown opcode %d", byte(cmd.Op)))
	}
}

// exec runs one statement to completion and materializes its rows.
//
// The statement is always stepped, including statements with no result
// columns, so DML takes effect before the reply is built.
func (s *Store) exec(ctx context.Context, query string, params []ir.Param) protocol.Reply {
	args, err := codec.BindArgs(params)
	if err != nil {
		return protocol.ErrorReply(err)
	}

	c, err := s.query(ctx, query, args)
	if err != nil {
		return protocol.ErrorReply(err)
	}
	cols := c.cols
	result, err := c.drain()
	if err != nil {
		return protocol.ErrorReply(err)
	}

	if len(cols) > 0 {
		return protocol.Reply{Kind: protocol.KindRows, Columns: cols, Rows: result}
	}

	reply := protocol.Ack()
	if isDML(query) {
		if err := s.conn.QueryRowContext(ctx, "SELECT changes(), last_insert_rowid()").
			Scan(&reply.RowsAffected, &reply.LastInsertID); err != nil {
			return protocol.ErrorReply(engineError(err))
		}
	}
	return reply
}
