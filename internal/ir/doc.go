// Package ir provides the shared data model for esqlite.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the value model and the
// error taxonomy at the bottom of the dependency graph.
//
// Key design constraints:
//   - Value is a sealed interface over Integer, Real, Text, Blob and Null
//   - Booleans have no variant of their own; they travel as Integer 1/0
//   - Constraints are a closed variant set (PrimaryKey, Unique, NotNull, Default)
//   - Column order in a TableSchema is the engine's column order
//   - All JSON tags use snake_case
package ir
