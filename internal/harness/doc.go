// Package harness replays YAML scenarios against a connection and checks
// the outcome of every step.
//
// # Scenario Format
//
//	name: users_crud
//	description: "Create, write and read back a table"
//	setup: |
//	  CREATE TABLE audit (msg TEXT);
//	steps:
//	  - op: create_table
//	    table: users
//	    columns:
//	      - {name: id, type: integer, constraints: [primary_key]}
//	      - {name: name, type: text, constraints: [unique]}
//	  - op: write
//	    table: users
//	    fields: {name: "a'"}
//	    expect: {last_insert_id: 1}
//	  - op: exec
//	    sql: "INSERT INTO users (name) VALUES ('a''')"
//	    expect: {error: CONSTRAINT_VIOLATION}
//	assertions:
//	  - type: row_count
//	    table: users
//	    count: 1
//
// Mapping order in fields is kept, so it is also the column order of the
// generated INSERT. Values take their type from the YAML tag: integers are
// Integer, floats are Real, strings are Text, null is Null, booleans are
// Integer 1/0 and !!binary is Blob.
//
// A step without expect must succeed. With expect, only the fields given
// are compared; expect.error names the error code the step must fail with.
//
// # Assertion Types
//
//   - row_count: the table (optionally narrowed by where) has count rows
//   - table_exists: the table exists or not
//   - final_state: every matching row has the expected column values
//
// # Determinism
//
// Each scenario runs against a fresh in-memory database on one connection,
// so the trace, including each step's seq, is the same on every run and is
// compared with a golden file by RunWithGolden.
package harness
