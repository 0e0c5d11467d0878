package protocol

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/roach88/esqlite/internal/ir"
)

// Client is a Backend that forwards commands over a byte stream to a
// process running Serve.
type Client struct {
	mu     sync.Mutex
	rw     io.ReadWriteCloser
	closed bool
}

// NewClient wraps rw. The client owns rw and closes it on Close.
func NewClient(rw io.ReadWriteCloser) *Client {
	return &Client{rw: rw}
}

// Call sends cmd and waits for its reply. Transport failures are reported
// as PROTOCOL_ERROR replies and leave the client closed.
func (c *Client) Call(ctx context.Context, cmd Command) Reply {
	if err := ctx.Err(); err != nil {
		return ErrorReply(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrorReply(ir.NewError(ir.ErrCodeConnectionClosed, "client is closed"))
	}
	if cmd.Op == OpClose {
		return c.closeLocked()
	}
	return c.roundTrip(cmd)
}

// Close sends a close command and closes the stream.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	return c.closeLocked().Err()
}

func (c *Client) closeLocked() Reply {
	reply := c.roundTrip(Command{Op: OpClose})
	if c.closed {
		return reply
	}
	c.closed = true
	if err := c.rw.Close(); err != nil && reply.Err() == nil {
		return ErrorReply(err)
	}
	return reply
}

func (c *Client) roundTrip(cmd Command) Reply {
	if err := WriteCommand(c.rw, cmd); err != nil {
		return c.broken(err)
	}
	reply, err := ReadReply(c.rw)
	if err != nil {
		return c.broken(err)
	}
	return reply
}

// broken marks the stream unusable after a transport error.
func (c *Client) broken(err error) Reply {
	if ir.CodeOf(err) == ir.ErrCodeProtocol {
		return ErrorReply(err)
	}
	if !c.closed {
		c.closed = true
		_ = c.rw.Close()
	}
	if errors.Is(err, io.EOF) {
		return ErrorReply(ir.NewError(ir.ErrCodeConnectionClosed, "server closed the stream"))
	}
	return ErrorReply(ir.Errorf(ir.ErrCodeProtocol, "%v", err))
}
