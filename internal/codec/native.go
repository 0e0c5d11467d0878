package codec

import (
	"database/sql"
	"math"
	"strings"
	"time"

	"github.com/roach88/esqlite/internal/ir"
)

// TimeFormat is the text form used for time.Time values. It matches the
// first layout the SQLite drivers accept when reading timestamps back.
const TimeFormat = "2006-01-02 15:04:05.999999999-07:00"

// FromNative converts a Go scalar into a Value.
//
// Supported: nil, bool (as Integer 1/0), all integer kinds, float32/64,
// string, []byte, time.Time, and ir.Value itself. Anything else, including
// uint values above MaxInt64, fails with INVALID_VALUE.
func FromNative(x any) (ir.Value, error) {
	switch val := x.(type) {
	case nil:
		return ir.Null{}, nil
	case ir.Value:
		if b, ok := val.(ir.Blob); ok && b == nil {
			return ir.Blob{}, nil
		}
		return val, nil
	case bool:
		return ir.Bool(val), nil
	case int:
		return ir.Integer(val), nil
	case int8:
		return ir.Integer(val), nil
	case int16:
		return ir.Integer(val), nil
	case int32:
		return ir.Integer(val), nil
	case int64:
		return ir.Integer(val), nil
	case uint:
		return fromUint(uint64(val))
	case uint8:
		return ir.Integer(val), nil
	case uint16:
		return ir.Integer(val), nil
	case uint32:
		return ir.Integer(val), nil
	case uint64:
		return fromUint(val)
	case float32:
		return ir.Real(val), nil
	case float64:
		return ir.Real(val), nil
	case string:
		return ir.Text(val), nil
	case []byte:
		if val == nil {
			return ir.Blob{}, nil
		}
		return ir.Blob(val), nil
	case time.Time:
		return ir.Text(val.Format(TimeFormat)), nil
	default:
		return nil, ir.Errorf(ir.ErrCodeInvalidValue, "unsupported value type %T", x)
	}
}

func fromUint(u uint64) (ir.Value, error) {
	if u > math.MaxInt64 {
		return nil, ir.Errorf(ir.ErrCodeInvalidValue, "unsigned value %d overflows int64", u)
	}
	return ir.Integer(u), nil
}

// FromEngine converts a value read from the engine into a Value. The store
// reads rows without the drivers' declared-type conversion, so only int64,
// float64, string, []byte and nil arrive here. A converted value (bool or
// time.Time) is refused instead of being re-rendered, since its stored form
// is no longer known.
func FromEngine(x any) (ir.Value, error) {
	switch val := x.(type) {
	case nil:
		return ir.Null{}, nil
	case int64:
		return ir.Integer(val), nil
	case float64:
		return ir.Real(val), nil
	case string:
		return ir.Text(val), nil
	case []byte:
		out := make(ir.Blob, len(val))
		copy(out, val)
		return out, nil
	default:
		return nil, ir.Errorf(ir.ErrCodeEngine, "driver converted a stored value to %T", x)
	}
}

// ToDriver converts a Value into the typed argument handed to the driver's
// bind primitive. Text binds as string, Blob as []byte; nothing is rendered
// to literal text.
func ToDriver(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.Integer:
		return int64(val), nil
	case ir.Real:
		return float64(val), nil
	case ir.Text:
		return string(val), nil
	case ir.Blob:
		if val == nil {
			return []byte{}, nil
		}
		return []byte(val), nil
	case ir.Null, nil:
		return nil, nil
	default:
		return nil, ir.Errorf(ir.ErrCodeInvalidValue, "unsupported value type %T", v)
	}
}

// BindArgs turns params into database/sql arguments.
//
// Positional params fill slots 1..n in order, skipping slots claimed by an
// Index param. Index params fill slot Index ("?N"). Named params become
// sql.Named with any leading ':', '@' or '$' removed; the driver resolves
// the name against all three sigils. The statement text is never touched,
// so mixing styles is left to the engine's placeholder rules.
func BindArgs(params []ir.Param) ([]any, error) {
	var (
		slots  []any
		filled []bool
		named  []any
	)

	set := func(i int, v any) error {
		for len(slots) <= i {
			slots = append(slots, nil)
			filled = append(filled, false)
		}
		if filled[i] {
			return ir.Errorf(ir.ErrCodeInvalidValue, "parameter slot ?%d bound twice", i+1)
		}
		slots[i], filled[i] = v, true
		return nil
	}

	// Numbered params first so positional ones flow around them
	for _, p := range params {
		if p.Index == 0 {
			continue
		}
		if p.Index < 0 {
			return nil, ir.Errorf(ir.ErrCodeInvalidValue, "parameter index %d out of range", p.Index)
		}
		if p.Name != "" {
			return nil, ir.Errorf(ir.ErrCodeInvalidValue, "parameter %q has both a name and an index", p.Name)
		}
		arg, err := ToDriver(p.Value)
		if err != nil {
			return nil, err
		}
		if err := set(p.Index-1, arg); err != nil {
			return nil, err
		}
	}

	next := 0
	for _, p := range params {
		if p.Index != 0 {
			continue
		}
		arg, err := ToDriver(p.Value)
		if err != nil {
			return nil, err
		}
		if p.Name != "" {
			name := strings.TrimLeft(p.Name, ":@$")
			if name == "" {
				return nil, ir.Errorf(ir.ErrCodeInvalidValue, "parameter name %q is empty", p.Name)
			}
			named = append(named, sql.Named(name, arg))
			continue
		}
		for next < len(filled) && filled[next] {
			next++
		}
		if err := set(next, arg); err != nil {
			return nil, err
		}
		next++
	}

	for i, ok := range filled {
		if !ok {
			return nil, ir.Errorf(ir.ErrCodeInvalidValue, "parameter slot ?%d has no value", i+1)
		}
	}

	return append(slots, named...), nil
}
