package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/esqlite/internal/ir"
)

// DefaultBusyTimeout is how long a statement waits on a locked database.
const DefaultBusyTimeout = 5 * time.Second

// Store owns one SQLite connection and answers protocol commands on it.
//
// Store is not safe for concurrent use. The serializing coordinator is its
// only caller; see engine.Conn.
type Store struct {
	db       *sql.DB
	conn     *sql.Conn
	path     string
	handles  HandleGenerator
	prepared map[ir.Handle]*prepared
	closed   bool
}

type options struct {
	busyTimeout time.Duration
	pragmas     []string
	handles     HandleGenerator
}

// Option configures Open.
type Option func(*options)

// WithBusyTimeout overrides DefaultBusyTimeout.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		o.busyTimeout = d
	}
}

// WithPragmas adds pragmas applied after the defaults.
// Each entry is either "name = value" or a full "PRAGMA ..." statement.
func WithPragmas(pragmas ...string) Option {
	return func(o *options) {
		o.pragmas = append(o.pragmas, pragmas...)
	}
}

// WithHandleGenerator replaces the UUIDv7 handle generator.
func WithHandleGenerator(g HandleGenerator) Option {
	return func(o *options) {
		o.handles = g
	}
}

// Open opens the database at path (":memory:" for an ephemeral database)
// and applies the connection pragmas.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	o := options{
		busyTimeout: DefaultBusyTimeout,
		handles:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One engine handle for the store's lifetime
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applyPragmas(ctx, conn, pragmaList(path, o)); err != nil {
		conn.Close()
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &Store{
		db:       db,
		conn:     conn,
		path:     path,
		handles:  o.handles,
		prepared: make(map[ir.Handle]*prepared),
	}, nil
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close finalizes every live prepared statement and closes the connection.
// Close is idempotent.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	for h := range s.prepared {
		if err := s.release(h); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.conn.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close connection: %w", err)
	}
	if err := s.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close database: %w", err)
	}
	return firstErr
}

// DriverName returns the database/sql driver in use.
func DriverName() string {
	return driverName
}

// DriverType returns "cgo" for mattn/go-sqlite3 or "purego" for
// modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// IsMemory reports whether path names an in-memory database.
func IsMemory(path string) bool {
	return path == "" || path == ":memory:" ||
		strings.HasPrefix(path, "file::memory:") ||
		strings.Contains(path, "mode=memory")
}

func pragmaList(path string, o options) []string {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", o.busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}
	if !IsMemory(path) {
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
		)
	}
	for _, p := range o.pragmas {
		p = strings.TrimSpace(p)
		if !strings.HasPrefix(strings.ToUpper(p), "PRAGMA") {
			p = "PRAGMA " + p
		}
		pragmas = append(pragmas, p)
	}
	return pragmas
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, conn *sql.Conn, pragmas []string) error {
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// pragma reads a single pragma value. Used by tests.
func (s *Store) pragma(ctx context.Context, name string) (string, error) {
	var value string
	if err := s.conn.QueryRowContext(ctx, "PRAGMA "+name).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to query %s: %w", name, err)
	}
	return value, nil
}
