package ir

import (
	"encoding/json"
	"fmt"
)

// Field is one column->value pair. An ordered []Field is the column->value
// mapping used by insert and update; its order is the emitted column order.
type Field struct {
	Column string `json:"column"`
	Value  Value  `json:"value"`
}

// F is a shorthand for Field for ergonomic construction.
// Example: []ir.Field{ir.F("id", ir.Integer(1)), ir.F("name", ir.Text("cart"))}
func F(column string, value Value) Field {
	return Field{Column: column, Value: value}
}

// Predicate is a single-column equality condition used to target rows for
// read, update and delete. Compound and range predicates are not supported.
type Predicate struct {
	Column string `json:"column"`
	Value  Value  `json:"value"`
}

// Where builds a Predicate.
func Where(column string, value Value) *Predicate {
	return &Predicate{Column: column, Value: value}
}

// Param is one bound parameter.
//
// Name selects a named placeholder (":name", "@name" or "$name"; the sigil is
// optional). Index selects a numbered placeholder ("?N", 1-based). When both
// are zero the parameter is positional and fills the next free slot.
type Param struct {
	Name  string `json:"name,omitempty"`
	Index int    `json:"index,omitempty"`
	Value Value  `json:"value"`
}

// P builds a positional parameter.
func P(v Value) Param {
	return Param{Value: v}
}

// Named builds a named parameter.
func Named(name string, v Value) Param {
	return Param{Name: name, Value: v}
}

// Indexed builds a numbered parameter for a "?N" placeholder.
func Indexed(index int, v Value) Param {
	return Param{Index: index, Value: v}
}

// Handle is an opaque prepared-statement reference.
// Handles are unique per statement and owned by one connection.
type Handle string

// valueJSON carries a Value through encoding/json inside a larger struct.
type valueJSON struct {
	v Value
}

func (w valueJSON) MarshalJSON() ([]byte, error) { return MarshalValue(w.v) }

func (w *valueJSON) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalValue(data)
	if err != nil {
		return err
	}
	w.v = v
	return nil
}

// MarshalJSON implements json.Marshaler for Field.
func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Column string    `json:"column"`
		Value  valueJSON `json:"value"`
	}{f.Column, valueJSON{f.Value}})
}

// UnmarshalJSON implements json.Unmarshaler for Field.
func (f *Field) UnmarshalJSON(data []byte) error {
	var raw struct {
		Column string    `json:"column"`
		Value  valueJSON `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("field: %w", err)
	}
	f.Column, f.Value = raw.Column, orNull(raw.Value.v)
	return nil
}

// MarshalJSON implements json.Marshaler for Predicate.
func (p Predicate) MarshalJSON() ([]byte, error) {
	return Field(p).MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler for Predicate.
func (p *Predicate) UnmarshalJSON(data []byte) error {
	var f Field
	if err := f.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("predicate: %w", err)
	}
	*p = Predicate(f)
	return nil
}

// MarshalJSON implements json.Marshaler for Param.
func (p Param) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name  string    `json:"name,omitempty"`
		Index int       `json:"index,omitempty"`
		Value valueJSON `json:"value"`
	}{p.Name, p.Index, valueJSON{p.Value}})
}

// UnmarshalJSON implements json.Unmarshaler for Param.
func (p *Param) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name  string    `json:"name,omitempty"`
		Index int       `json:"index,omitempty"`
		Value valueJSON `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("param: %w", err)
	}
	p.Name, p.Index, p.Value = raw.Name, raw.Index, orNull(raw.Value.v)
	return nil
}

// orNull maps a missing value to Null.
func orNull(v Value) Value {
	if v == nil {
		return Null{}
	}
	return v
}
