package protocol

import "context"

// Backend executes commands against one engine connection.
//
// Call must not be invoked concurrently; the serializing coordinator is the
// only caller. Every Call returns exactly one Reply and never panics on bad
// input. Close releases the connection and every live prepared statement.
type Backend interface {
	Call(ctx context.Context, cmd Command) Reply
	Close() error
}
