// Package store is the engine side of the protocol: one SQLite connection
// answering protocol.Commands.
//
// # Connection model
//
// A Store holds exactly one *sql.Conn for its lifetime. Every statement,
// prepared cursor and catalog query runs on that connection, so in-memory
// databases keep their contents and open cursors interleave with other
// statements on the same engine handle.
//
// # Database Configuration
//
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - WAL mode and synchronous=NORMAL for file databases
//
// Extra pragmas can be supplied with WithPragmas.
//
// # Drivers
//
// The default build links github.com/mattn/go-sqlite3 (cgo). Building with
// -tags purego links modernc.org/sqlite instead. Both report engine result
// codes, which are copied verbatim into ir.Error.
package store
