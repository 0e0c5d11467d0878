package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/esqlite/internal/ir"
	"github.com/roach88/esqlite/internal/protocol"
	"github.com/roach88/esqlite/internal/querysql"
	"github.com/roach88/esqlite/internal/store"
)

// State is a connection lifecycle state.
type State int32

const (
	// StateOpen accepts requests.
	StateOpen State = iota
	// StateClosing rejects new requests; the worker is releasing the backend.
	StateClosing
	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Conn is a named, serialized connection to one engine backend.
//
// Thread-safety model:
//   - All exported methods: safe from any goroutine
//   - Backend calls: only from the worker goroutine, one at a time
//
// INVARIANTS:
//   - At most one backend call in flight
//   - Requests dispatch in seq order, which is enqueue order
//   - Exactly one reply per accepted request
type Conn struct {
	name    string
	backend protocol.Backend
	builder querysql.Builder
	clock   *Clock
	queue   *requestQueue

	mu    sync.Mutex
	state State

	done chan struct{}
}

type options struct {
	builder   querysql.Builder
	storeOpts []store.Option
}

// Option configures New and Open.
type Option func(*options)

// WithUnsafeLiterals renders Text literals without escaping. Only for
// callers that escape their own values; see codec.RenderUnsafe.
func WithUnsafeLiterals() Option {
	return func(o *options) {
		o.builder = querysql.Builder{Unsafe: true}
	}
}

// WithStoreOptions passes options through to store.Open.
func WithStoreOptions(opts ...store.Option) Option {
	return func(o *options) {
		o.storeOpts = append(o.storeOpts, opts...)
	}
}

func collect(opts []Option) options {
	o := options{builder: querysql.Default}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New starts a worker that owns backend. The Conn closes backend when it
// is closed.
func New(name string, backend protocol.Backend, opts ...Option) *Conn {
	o := collect(opts)
	c := &Conn{
		name:    name,
		backend: backend,
		builder: o.builder,
		clock:   NewClock(),
		queue:   newRequestQueue(),
		state:   StateOpen,
		done:    make(chan struct{}),
	}
	go c.run()
	return c
}

// Open opens a SQLite store at path and starts a Conn that owns it.
func Open(ctx context.Context, name, path string, opts ...Option) (*Conn, error) {
	o := collect(opts)
	s, err := store.Open(ctx, path, o.storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("open connection %s: %w", name, err)
	}
	return New(name, s, opts...), nil
}

// Name returns the connection's logical name.
func (c *Conn) Name() string {
	return c.name
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Seq returns the seq of the most recently accepted request.
func (c *Conn) Seq() int64 {
	return c.clock.Current()
}

// Close releases the backend after every earlier request has been
// answered. Requests submitted after Close fail with CONNECTION_CLOSED.
// Close blocks until the worker has stopped and is safe to call repeatedly.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.state != StateOpen {
		c.mu.Unlock()
		<-c.done
		return nil
	}
	c.state = StateClosing
	req := &request{
		seq:   c.clock.Next(),
		ctx:   context.Background(),
		cmd:   protocol.Command{Op: protocol.OpClose},
		reply: make(chan protocol.Reply, 1),
	}
	c.queue.Enqueue(req)
	c.queue.Close()
	c.mu.Unlock()

	reply := <-req.reply
	<-c.done
	return reply.Err()
}

// call submits cmd and waits for its reply.
//
// If ctx ends while the request is queued the request is skipped. Once
// dispatched it runs to completion even if the caller has stopped waiting.
func (c *Conn) call(ctx context.Context, cmd protocol.Command) (protocol.Reply, error) {
	if err := ctx.Err(); err != nil {
		return protocol.Reply{}, err
	}

	req := &request{ctx: ctx, cmd: cmd, reply: make(chan protocol.Reply, 1)}
	if !c.enqueue(req) {
		return protocol.Reply{}, c.closedError()
	}

	select {
	case reply := <-req.reply:
		return reply, reply.Err()
	case <-ctx.Done():
		return protocol.Reply{}, ctx.Err()
	}
}

func (c *Conn) enqueue(req *request) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen {
		return false
	}
	req.seq = c.clock.Next()
	return c.queue.Enqueue(req)
}

func (c *Conn) closedError() error {
	return ir.Errorf(ir.ErrCodeConnectionClosed, "connection %s is closed", c.name)
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// run is the single worker loop. It is the only goroutine that touches the
// backend.
func (c *Conn) run() {
	defer close(c.done)
	slog.Info("connection worker starting", "conn", c.name)

	for {
		req, ok := c.queue.TryDequeue()
		if ok {
			if stop := c.process(req); stop {
				break
			}
			continue
		}

		<-c.queue.Wait()
		if c.queue.IsClosed() && c.queue.Len() == 0 {
			break
		}
	}

	c.drain()
	c.setState(StateClosed)
	slog.Info("connection worker stopped", "conn", c.name, "seq", c.clock.Current())
}

// process answers one request. It returns true when the worker must stop.
func (c *Conn) process(req *request) bool {
	if req.cmd.Op == protocol.OpClose {
		slog.Debug("closing connection", "conn", c.name, "seq", req.seq)
		reply := protocol.Ack()
		if err := c.backend.Close(); err != nil {
			slog.Warn("backend close failed", "conn", c.name, "error", err)
			reply = protocol.ErrorReply(err)
		}
		req.reply <- reply
		return true
	}

	if err := req.ctx.Err(); err != nil {
		slog.Debug("request abandoned before dispatch",
			"conn", c.name,
			"seq", req.seq,
			"op", req.cmd.Op,
		)
		req.reply <- protocol.ErrorReply(err)
		return false
	}

	slog.Debug("dispatching request",
		"conn", c.name,
		"seq", req.seq,
		"op", req.cmd.Op,
	)

	reply, panicked := c.dispatch(req)
	if reply.Kind == protocol.KindError {
		slog.Warn("request failed",
			"conn", c.name,
			"seq", req.seq,
			"op", req.cmd.Op,
			"error", reply.Error,
		)
	}
	req.reply <- reply

	if panicked {
		c.terminate()
		return true
	}
	return false
}

// dispatch calls the backend, converting a panic into an error reply.
func (c *Conn) dispatch(req *request) (reply protocol.Reply, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("backend panicked",
				"conn", c.name,
				"seq", req.seq,
				"op", req.cmd.Op,
				"panic", r,
			)
			reply = protocol.ErrorReply(ir.Errorf(ir.ErrCodeEngine, "backend panicked: %v", r))
			panicked = true
		}
	}()

	// The caller may stop waiting, but a dispatched request is never aborted
	ctx := context.WithoutCancel(req.ctx)
	return c.backend.Call(ctx, req.cmd), false
}

// terminate handles abnormal termination: no more requests are accepted
// and the backend, with every live handle, is released.
func (c *Conn) terminate() {
	c.mu.Lock()
	c.state = StateClosing
	c.queue.Close()
	c.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("backend close panicked", "conn", c.name, "panic", r)
		}
	}()
	if err := c.backend.Close(); err != nil {
		slog.Warn("backend close failed", "conn", c.name, "error", err)
	}
}

// drain fails every request still queued after the worker stopped.
func (c *Conn) drain() {
	for {
		req, ok := c.queue.TryDequeue()
		if !ok {
			return
		}
		if req.cmd.Op == protocol.OpClose {
			req.reply <- protocol.Ack()
			continue
		}
		req.reply <- protocol.ErrorReply(c.closedError())
	}
}
