// Package querysql synthesizes SQLite statement text from structured input.
//
// Every function here is pure: no I/O, deterministic output for a given
// input. Literals are embedded through the codec's escaping renderer unless a
// Builder is explicitly constructed with Unsafe set.
//
// Identifiers (table and column names) are emitted bare. Callers must choose
// names that need no quoting; names are not quoted or rewritten here.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/esqlite/internal/codec"
	"github.com/roach88/esqlite/internal/ir"
)

// Builder renders statements.
//
// The zero value escapes every literal. Set Unsafe for callers that have
// already escaped their Text values; see codec.RenderUnsafe.
type Builder struct {
	Unsafe bool
}

// Default is the escaping builder used by the package-level functions.
var Default = Builder{}

// literal renders one value according to the builder's escaping mode.
func (b Builder) literal(v ir.Value) string {
	if b.Unsafe {
		return codec.RenderUnsafe(v)
	}
	return codec.Render(v)
}

// CreateTable emits CREATE TABLE name (col type constraints, ...).
//
// Constraint order within a column is fixed regardless of input order:
// PRIMARY KEY [ASC|DESC] [AUTOINCREMENT], UNIQUE, NOT NULL, DEFAULT <literal>.
func (b Builder) CreateTable(table string, schema ir.TableSchema) (string, error) {
	if table == "" {
		return "", ir.NewError(ir.ErrCodeInvalidSchema, "table name is empty")
	}
	if err := schema.Validate(); err != nil {
		return "", err
	}

	defs := make([]string, len(schema))
	for i, col := range schema {
		defs[i] = b.ColumnDefinition(col)
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", ")), nil
}

// ColumnDefinition renders one column definition. The column is assumed to
// be valid (see ir.ColumnDescriptor.Validate).
func (b Builder) ColumnDefinition(col ir.ColumnDescriptor) string {
	parts := []string{col.Name}
	if col.Type != "" {
		parts = append(parts, strings.ToUpper(string(col.Type)))
	}

	if pk, ok := col.PrimaryKey(); ok {
		parts = append(parts, "PRIMARY KEY")
		if order := pk.Order.String(); order != "" {
			parts = append(parts, order)
		}
		if pk.Autoincrement {
			parts = append(parts, "AUTOINCREMENT")
		}
	}
	if col.Has("unique") {
		parts = append(parts, "UNIQUE")
	}
	if col.Has("not_null") {
		parts = append(parts, "NOT NULL")
	}
	if d, ok := col.Default(); ok {
		if d.Keyword != "" {
			parts = append(parts, "DEFAULT", strings.ToUpper(d.Keyword))
		} else {
			lit := b.literal(d.Value)
			if strings.HasPrefix(lit, "CAST(") {
				// DEFAULT takes an expression only in parentheses
				lit = "(" + lit + ")"
			}
			parts = append(parts, "DEFAULT", lit)
		}
	}

	return strings.Join(parts, " ")
}

// Insert emits INSERT INTO table (cols) VALUES (literals).
// Column order follows fields.
func (b Builder) Insert(table string, fields []ir.Field) (string, error) {
	if err := checkTarget(table, fields); err != nil {
		return "", err
	}

	cols := make([]string, len(fields))
	vals := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Column
		vals[i] = b.literal(f.Value)
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(cols, ", "),
		strings.Join(vals, ", ")), nil
}

// Update emits UPDATE table SET col=lit, ... WHERE key = lit.
func (b Builder) Update(table string, where ir.Predicate, fields []ir.Field) (string, error) {
	if err := checkTarget(table, fields); err != nil {
		return "", err
	}
	whereClause, err := b.where(&where)
	if err != nil {
		return "", err
	}

	sets := make([]string, len(fields))
	for i, f := range fields {
		sets[i] = f.Column + "=" + b.literal(f.Value)
	}

	return fmt.Sprintf("UPDATE %s SET %s%s", table, strings.Join(sets, ", "), whereClause), nil
}

// Select emits SELECT cols|* FROM table [WHERE key = lit].
// A nil predicate reads the whole table; an empty projection selects *.
func (b Builder) Select(table string, where *ir.Predicate, columns ...string) (string, error) {
	if table == "" {
		return "", ir.NewError(ir.ErrCodeInvalidSchema, "table name is empty")
	}
	for _, c := range columns {
		if c == "" {
			return "", ir.NewError(ir.ErrCodeInvalidSchema, "projected column name is empty")
		}
	}
	whereClause, err := b.where(where)
	if err != nil {
		return "", err
	}

	projection := "*"
	if len(columns) > 0 {
		projection = strings.Join(columns, ", ")
	}

	return fmt.Sprintf("SELECT %s FROM %s%s", projection, table, whereClause), nil
}

// Delete emits DELETE FROM table WHERE key = lit.
func (b Builder) Delete(table string, where ir.Predicate) (string, error) {
	if table == "" {
		return "", ir.NewError(ir.ErrCodeInvalidSchema, "table name is empty")
	}
	whereClause, err := b.where(&where)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("DELETE FROM %s%s", table, whereClause), nil
}

// DropTable emits DROP TABLE table.
func (b Builder) DropTable(table string) (string, error) {
	if table == "" {
		return "", ir.NewError(ir.ErrCodeInvalidSchema, "table name is empty")
	}
	return "DROP TABLE " + table, nil
}

// where renders " WHERE col = lit", or "" for a nil predicate.
func (b Builder) where(p *ir.Predicate) (string, error) {
	if p == nil {
		return "", nil
	}
	if p.Column == "" {
		return "", ir.NewError(ir.ErrCodeInvalidSchema, "predicate column is empty")
	}
	return fmt.Sprintf(" WHERE %s = %s", p.Column, b.literal(p.Value)), nil
}

// checkTarget validates a table name and a non-empty column->value mapping.
func checkTarget(table string, fields []ir.Field) error {
	if table == "" {
		return ir.NewError(ir.ErrCodeInvalidSchema, "table name is empty")
	}
	if len(fields) == 0 {
		return ir.NewError(ir.ErrCodeInvalidSchema, "no columns given")
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Column == "" {
			return ir.NewError(ir.ErrCodeInvalidSchema, "column name is empty")
		}
		if seen[f.Column] {
			return ir.Errorf(ir.ErrCodeInvalidSchema, "column %s given twice", f.Column)
		}
		seen[f.Column] = true
	}
	return nil
}

// Package-level helpers using the escaping Default builder.

// CreateTable is Default.CreateTable.
func CreateTable(table string, schema ir.TableSchema) (string, error) {
	return Default.CreateTable(table, schema)
}

// Insert is Default.Insert.
func Insert(table string, fields []ir.Field) (string, error) {
	return Default.Insert(table, fields)
}

// Update is Default.Update.
func Update(table string, where ir.Predicate, fields []ir.Field) (string, error) {
	return Default.Update(table, where, fields)
}

// Select is Default.Select.
func Select(table string, where *ir.Predicate, columns ...string) (string, error) {
	return Default.Select(table, where, columns...)
}

// Delete is Default.Delete.
func Delete(table string, where ir.Predicate) (string, error) {
	return Default.Delete(table, where)
}

// DropTable is Default.DropTable.
func DropTable(table string) (string, error) {
	return Default.DropTable(table)
}
