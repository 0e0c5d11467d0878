package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/esqlite/internal/ir"
)

// HandleGenerator issues prepared-statement handles.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type HandleGenerator interface {
	Generate() ir.Handle
}

// UUIDv7Generator issues time-sortable UUIDv7 handles.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 handle.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() ir.Handle {
	return ir.Handle(uuid.Must(uuid.NewV7()).String())
}

// FixedGenerator returns predetermined handles for testing.
type FixedGenerator struct {
	mu      sync.Mutex
	handles []ir.Handle
	idx     int
}

// NewFixedGenerator creates a generator that returns handles in order.
func NewFixedGenerator(handles ...ir.Handle) *FixedGenerator {
	return &FixedGenerator{handles: handles}
}

// Generate returns the next predetermined handle.
//
// Panics if all handles have been consumed, to catch a test that prepares
// more statements than it expected.
func (g *FixedGenerator) Generate() ir.Handle {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.handles) {
		panic("FixedGenerator: all handles exhausted")
	}
	h := g.handles[g.idx]
	g.idx++
	return h
}
