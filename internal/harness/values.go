package harness

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/esqlite/internal/ir"
)

// valueOf converts a YAML scalar to a Value using its resolved tag:
// !!int is Integer, !!float is Real, !!str is Text, !!null is Null,
// !!bool is Integer 1/0 and !!binary (base64) is Blob.
func valueOf(n *yaml.Node) (ir.Value, error) {
	if n.Kind == yaml.AliasNode {
		return valueOf(n.Alias)
	}
	if n.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("line %d: expected a scalar value", n.Line)
	}

	switch n.ShortTag() {
	case "!!null":
		return ir.Null{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return ir.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, fmt.Errorf("line %d: integer %s out of int64 range", n.Line, n.Value)
		}
		return ir.Integer(i), nil
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			var d float64
			if derr := n.Decode(&d); derr != nil {
				return nil, fmt.Errorf("line %d: %w", n.Line, derr)
			}
			f = d
		}
		return ir.Real(f), nil
	case "!!binary":
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Value), ""))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid base64: %w", n.Line, err)
		}
		return ir.Blob(b), nil
	default:
		return ir.Text(n.Value), nil
	}
}

// fieldsOf converts a mapping to ordered fields, keeping document order.
func fieldsOf(n *yaml.Node) ([]ir.Field, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	fields := make([]ir.Field, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		v, err := valueOf(n.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", n.Content[i].Value, err)
		}
		fields = append(fields, ir.F(n.Content[i].Value, v))
	}
	return fields, nil
}

// predicateOf converts a single-entry mapping to an equality predicate.
// A zero node yields nil.
func predicateOf(n *yaml.Node) (*ir.Predicate, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	fields, err := fieldsOf(n)
	if err != nil {
		return nil, err
	}
	if len(fields) != 1 {
		return nil, fmt.Errorf("line %d: where takes exactly one column, got %d", n.Line, len(fields))
	}
	return ir.Where(fields[0].Column, fields[0].Value), nil
}

// paramsOf converts a sequence to positional parameters, or a mapping to
// named ones. Mapping keys keep their sigil (":id", "$id", "@id"); a key of
// the form "?N" is an indexed parameter.
func paramsOf(n *yaml.Node) ([]ir.Param, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.SequenceNode:
		params := make([]ir.Param, len(n.Content))
		for i, item := range n.Content {
			v, err := valueOf(item)
			if err != nil {
				return nil, fmt.Errorf("params[%d]: %w", i, err)
			}
			params[i] = ir.P(v)
		}
		return params, nil
	case yaml.MappingNode:
		fields, err := fieldsOf(n)
		if err != nil {
			return nil, err
		}
		params := make([]ir.Param, len(fields))
		for i, f := range fields {
			if idx, ok := strings.CutPrefix(f.Column, "?"); ok {
				k, err := strconv.Atoi(idx)
				if err != nil || k < 1 {
					return nil, fmt.Errorf("params: invalid index %q", f.Column)
				}
				params[i] = ir.Indexed(k, f.Value)
				continue
			}
			params[i] = ir.Named(f.Column, f.Value)
		}
		return params, nil
	default:
		return nil, fmt.Errorf("line %d: params must be a sequence or mapping", n.Line)
	}
}

// rowOf converts a sequence of scalars to a row.
func rowOf(n *yaml.Node) (ir.Row, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expected a row sequence", n.Line)
	}
	row := make(ir.Row, len(n.Content))
	for i, item := range n.Content {
		v, err := valueOf(item)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		row[i] = v
	}
	return row, nil
}

// rowsOf converts a sequence of row sequences.
func rowsOf(n *yaml.Node) ([]ir.Row, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expected a sequence of rows", n.Line)
	}
	rows := make([]ir.Row, len(n.Content))
	for i, item := range n.Content {
		row, err := rowOf(item)
		if err != nil {
			return nil, fmt.Errorf("rows[%d]: %w", i, err)
		}
		rows[i] = row
	}
	return rows, nil
}

// schemaOf converts column specs to a table schema.
func schemaOf(specs []ColumnSpec) (ir.TableSchema, error) {
	schema := make(ir.TableSchema, len(specs))
	for i, spec := range specs {
		col, err := spec.descriptor()
		if err != nil {
			return nil, fmt.Errorf("columns[%d] %s: %w", i, spec.Name, err)
		}
		schema[i] = col
	}
	return schema, nil
}

func (c ColumnSpec) descriptor() (ir.ColumnDescriptor, error) {
	col := ir.ColumnDescriptor{Name: c.Name, Type: ir.ColumnType(strings.ToLower(c.Type))}

	for _, text := range c.Constraints {
		words := strings.Fields(strings.ToLower(text))
		if len(words) == 0 {
			return col, fmt.Errorf("empty constraint")
		}
		switch words[0] {
		case "primary_key":
			pk := ir.PrimaryKey{}
			for _, w := range words[1:] {
				switch w {
				case "asc":
					pk.Order = ir.OrderAsc
				case "desc":
					pk.Order = ir.OrderDesc
				case "autoincrement":
					pk.Autoincrement = true
				default:
					return col, fmt.Errorf("unknown primary_key option %q", w)
				}
			}
			col.Constraints = append(col.Constraints, pk)
		case "unique":
			col.Constraints = append(col.Constraints, ir.Unique{})
		case "not_null":
			col.Constraints = append(col.Constraints, ir.NotNull{})
		default:
			return col, fmt.Errorf("unknown constraint %q", text)
		}
		if words[0] != "primary_key" && len(words) > 1 {
			return col, fmt.Errorf("constraint %q takes no options", words[0])
		}
	}

	if c.Default.Kind != 0 {
		d := ir.Default{}
		if c.Default.Style == 0 && ir.IsDefaultKeyword(c.Default.Value) {
			d.Keyword = strings.ToUpper(c.Default.Value)
		} else {
			v, err := valueOf(&c.Default)
			if err != nil {
				return col, fmt.Errorf("default: %w", err)
			}
			d.Value = v
		}
		col.Constraints = append(col.Constraints, d)
	}
	return col, nil
}
