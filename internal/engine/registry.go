package engine

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/roach88/esqlite/internal/ir"
)

// DefaultName is the logical name of the implicit connection.
const DefaultName = "default"

// Registry maps logical names to open connections.
//
// Callers normally thread a *Conn explicitly; Default is a convenience for
// code that works against the single implicit connection.
type Registry struct {
	mu      sync.Mutex
	conns   map[string]*Conn
	opening map[string]bool

	open func(ctx context.Context, name, path string, opts ...Option) (*Conn, error)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:   make(map[string]*Conn),
		opening: make(map[string]bool),
		open:    Open,
	}
}

// Open opens a connection under name. The name must not be in use.
//
// The name is reserved while the database opens, so the registry stays
// usable by other callers and a second Open of the same name fails at once.
func (r *Registry) Open(ctx context.Context, name, path string, opts ...Option) (*Conn, error) {
	r.mu.Lock()
	if r.inUse(name) {
		r.mu.Unlock()
		return nil, ir.Errorf(ir.ErrCodeEngine, "connection %s is already open", name)
	}
	r.opening[name] = true
	r.mu.Unlock()

	c, err := r.open(ctx, name, path, opts...)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.opening, name)
	if err != nil {
		return nil, err
	}
	r.conns[name] = c
	return c, nil
}

func (r *Registry) inUse(name string) bool {
	_, exists := r.conns[name]
	return exists || r.opening[name]
}

// Register adds an existing connection under its own name.
func (r *Registry) Register(c *Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inUse(c.Name()) {
		return ir.Errorf(ir.ErrCodeEngine, "connection %s is already open", c.Name())
	}
	r.conns[c.Name()] = c
	return nil
}

// Get returns the connection registered under name.
func (r *Registry) Get(name string) (*Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[name]
	if !ok {
		return nil, ir.Errorf(ir.ErrCodeConnectionClosed, "no open connection named %s", name)
	}
	return c, nil
}

// Default returns the connection named DefaultName.
func (r *Registry) Default() (*Conn, error) {
	return r.Get(DefaultName)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.conns))
	for name := range r.conns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes and unregisters the named connection.
func (r *Registry) Close(name string) error {
	r.mu.Lock()
	c, ok := r.conns[name]
	delete(r.conns, name)
	r.mu.Unlock()

	if !ok {
		return ir.Errorf(ir.ErrCodeConnectionClosed, "no open connection named %s", name)
	}
	return c.Close()
}

// CloseAll closes every registered connection.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*Conn)
	r.mu.Unlock()

	var errs []error
	for _, c := range conns {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
