package ir

import (
	"fmt"
	"strings"
)

// ColumnType is a lowercased declared column type.
// Any bare type name the engine accepts is valid; the constants cover the
// common storage classes and synonyms.
type ColumnType string

const (
	TypeInteger ColumnType = "integer"
	TypeInt     ColumnType = "int"
	TypeText    ColumnType = "text"
	TypeReal    ColumnType = "real"
	TypeDouble  ColumnType = "double"
	TypeFloat   ColumnType = "float"
	TypeBlob    ColumnType = "blob"
	TypeNumeric ColumnType = "numeric"
	TypeBoolean ColumnType = "boolean"
)

// SortOrder is the optional direction of a PRIMARY KEY.
type SortOrder int

const (
	// OrderNone emits no direction keyword.
	OrderNone SortOrder = iota
	// OrderAsc emits ASC.
	OrderAsc
	// OrderDesc emits DESC.
	OrderDesc
)

// String returns the SQL keyword for the order, or "" for OrderNone.
func (o SortOrder) String() string {
	switch o {
	case OrderAsc:
		return "ASC"
	case OrderDesc:
		return "DESC"
	default:
		return ""
	}
}

// Constraint is a sealed interface over the supported column constraints.
// Only PrimaryKey, Unique, NotNull and Default implement it.
type Constraint interface {
	constraint()
	// Kind returns the constraint name used in diagnostics.
	Kind() string
}

// PrimaryKey marks the column as the table's primary key.
type PrimaryKey struct {
	Order         SortOrder
	Autoincrement bool
}

func (PrimaryKey) constraint()  {}
func (PrimaryKey) Kind() string { return "primary_key" }

// Unique marks the column UNIQUE.
type Unique struct{}

func (Unique) constraint()  {}
func (Unique) Kind() string { return "unique" }

// NotNull marks the column NOT NULL.
type NotNull struct{}

func (NotNull) constraint()  {}
func (NotNull) Kind() string { return "not_null" }

// Default gives the column a default value.
// Keyword is set for the engine's time keywords (CURRENT_TIME, CURRENT_DATE,
// CURRENT_TIMESTAMP); otherwise Value holds the literal default.
type Default struct {
	Value   Value
	Keyword string
}

func (Default) constraint()  {}
func (Default) Kind() string { return "default" }

// DefaultKeywords are the non-literal defaults accepted in a Default.
var DefaultKeywords = []string{"CURRENT_TIME", "CURRENT_DATE", "CURRENT_TIMESTAMP"}

// IsDefaultKeyword reports whether s (any case) is one of DefaultKeywords.
func IsDefaultKeyword(s string) bool {
	for _, k := range DefaultKeywords {
		if strings.EqualFold(s, k) {
			return true
		}
	}
	return false
}

// ColumnDescriptor describes one table column.
type ColumnDescriptor struct {
	Name        string
	Type        ColumnType
	Constraints []Constraint
}

// Column is a shorthand constructor for ColumnDescriptor.
// Example: ir.Column("id", ir.TypeInteger, ir.PrimaryKey{})
func Column(name string, typ ColumnType, constraints ...Constraint) ColumnDescriptor {
	return ColumnDescriptor{Name: name, Type: typ, Constraints: constraints}
}

// PrimaryKey returns the column's primary key constraint, if any.
func (c ColumnDescriptor) PrimaryKey() (PrimaryKey, bool) {
	for _, con := range c.Constraints {
		if pk, ok := con.(PrimaryKey); ok {
			return pk, true
		}
	}
	return PrimaryKey{}, false
}

// Default returns the column's default constraint, if any.
func (c ColumnDescriptor) Default() (Default, bool) {
	for _, con := range c.Constraints {
		if d, ok := con.(Default); ok {
			return d, true
		}
	}
	return Default{}, false
}

// Has reports whether the column carries a constraint of the given kind.
func (c ColumnDescriptor) Has(kind string) bool {
	for _, con := range c.Constraints {
		if con.Kind() == kind {
			return true
		}
	}
	return false
}

// Validate checks the column invariants: a non-empty name, at most one
// primary key, at most one default, and no repeated UNIQUE/NOT NULL.
func (c ColumnDescriptor) Validate() error {
	if c.Name == "" {
		return NewError(ErrCodeInvalidSchema, "column name is empty")
	}
	seen := make(map[string]bool, len(c.Constraints))
	for _, con := range c.Constraints {
		if con == nil {
			return NewError(ErrCodeInvalidSchema, fmt.Sprintf("column %s: nil constraint", c.Name))
		}
		if seen[con.Kind()] {
			return NewError(ErrCodeInvalidSchema, fmt.Sprintf("column %s: duplicate %s constraint", c.Name, con.Kind()))
		}
		seen[con.Kind()] = true
		if d, ok := con.(Default); ok {
			if d.Keyword != "" && !IsDefaultKeyword(d.Keyword) {
				return NewError(ErrCodeInvalidSchema, fmt.Sprintf("column %s: unsupported default keyword %q", c.Name, d.Keyword))
			}
			if d.Keyword == "" && d.Value == nil {
				return NewError(ErrCodeInvalidSchema, fmt.Sprintf("column %s: default has no value", c.Name))
			}
		}
	}
	return nil
}

// TableSchema is the ordered column list of a table.
type TableSchema []ColumnDescriptor

// Names returns the column names in order.
func (s TableSchema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Lookup returns the named column.
func (s TableSchema) Lookup(name string) (ColumnDescriptor, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDescriptor{}, false
}

// Validate checks every column and rejects duplicate column names.
func (s TableSchema) Validate() error {
	if len(s) == 0 {
		return NewError(ErrCodeInvalidSchema, "table has no columns")
	}
	names := make(map[string]bool, len(s))
	for _, c := range s {
		if err := c.Validate(); err != nil {
			return err
		}
		key := strings.ToLower(c.Name)
		if names[key] {
			return NewError(ErrCodeInvalidSchema, fmt.Sprintf("duplicate column %s", c.Name))
		}
		names[key] = true
	}
	return nil
}
