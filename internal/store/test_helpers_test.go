package store

import (
	"context"
	"testing"

	"github.com/roach88/esqlite/internal/ir"
	"github.com/roach88/esqlite/internal/protocol"
)

// createTestStore creates a new in-memory store for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:", opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustExec runs a statement and fails the test on an error reply.
func mustExec(t *testing.T, s *Store, sql string, params ...ir.Param) protocol.Reply {
	t.Helper()
	reply := s.Call(context.Background(), protocol.Exec(sql, params...))
	if err := reply.Err(); err != nil {
		t.Fatalf("exec %q: %v", sql, err)
	}
	return reply
}

// mustPrepare prepares a statement and returns its handle.
func mustPrepare(t *testing.T, s *Store, sql string) ir.Handle {
	t.Helper()
	reply := s.Call(context.Background(), protocol.Prepare(sql))
	if err := reply.Expect(protocol.KindHandle); err != nil {
		t.Fatalf("prepare %q: %v", sql, err)
	}
	return reply.Handle
}
