package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"
)

// Value is a sealed interface representing one engine value.
// Only Integer, Real, Text, Blob and Null implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Integer is a 64-bit signed engine integer.
type Integer int64

func (Integer) value() {}

// Real is a double-precision engine float.
type Real float64

func (Real) value() {}

// Text is an engine string. The bytes are carried verbatim; they are
// expected to be UTF-8 but are never normalized.
type Text string

func (Text) value() {}

// Blob is an opaque byte sequence.
type Blob []byte

func (Blob) value() {}

// Null is the engine NULL.
type Null struct{}

func (Null) value() {}

// Bool returns the boolean-as-integer representation of b.
func Bool(b bool) Integer {
	if b {
		return 1
	}
	return 0
}

// Equal reports whether two values are the same variant with the same payload.
// Real NaN equals NaN.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Integer:
		y, ok := b.(Integer)
		return ok && x == y
	case Real:
		y, ok := b.(Real)
		return ok && (x == y || (math.IsNaN(float64(x)) && math.IsNaN(float64(y))))
	case Text:
		y, ok := b.(Text)
		return ok && x == y
	case Blob:
		y, ok := b.(Blob)
		return ok && bytes.Equal(x, y)
	case Null:
		_, ok := b.(Null)
		return ok
	case nil:
		return b == nil
	default:
		return false
	}
}

// TypeName returns the engine storage class name of v.
func TypeName(v Value) string {
	switch v.(type) {
	case Integer:
		return "integer"
	case Real:
		return "real"
	case Text:
		return "text"
	case Blob:
		return "blob"
	case Null:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Row is one result tuple, in result-column order.
type Row []Value

// MarshalJSON encodes the row as an array of value envelopes.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := MarshalValue(v)
		if err != nil {
			return nil, fmt.Errorf("row[%d]: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an array of value envelopes.
func (r *Row) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*r = nil
		return nil
	}
	out := make(Row, len(raw))
	for i, elem := range raw {
		v, err := UnmarshalValue(elem)
		if err != nil {
			return fmt.Errorf("row[%d]: %w", i, err)
		}
		out[i] = v
	}
	*r = out
	return nil
}

// valueEnvelope is the JSON wire form of a non-null Value.
// Exactly one field is set. Integers travel as JSON numbers (decoded with
// UseNumber so all 64 bits survive), reals as strconv text so NaN and
// infinities survive, and text that is not valid UTF-8 as base64.
type valueEnvelope struct {
	Int    *json.Number `json:"int,omitempty"`
	Real   *string      `json:"real,omitempty"`
	Text   *string      `json:"text,omitempty"`
	Text64 []byte       `json:"text64,omitempty"`
	Blob   []byte       `json:"blob,omitempty"`
	IsBlob bool         `json:"is_blob,omitempty"`
}

// MarshalValue encodes a Value as JSON.
// Uses type-switch dispatch so every variant has exactly one encoding.
func MarshalValue(v Value) ([]byte, error) {
	var env valueEnvelope
	switch val := v.(type) {
	case Null:
		return []byte("null"), nil
	case nil:
		return []byte("null"), nil
	case Integer:
		n := json.Number(strconv.FormatInt(int64(val), 10))
		env.Int = &n
	case Real:
		s := strconv.FormatFloat(float64(val), 'g', -1, 64)
		env.Real = &s
	case Text:
		if utf8.ValidString(string(val)) {
			s := string(val)
			env.Text = &s
		} else {
			env.Text64 = []byte(val)
		}
	case Blob:
		env.Blob = []byte(val)
		// An empty blob would be dropped by omitempty
		env.IsBlob = true
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
	return json.Marshal(env)
}

// UnmarshalValue decodes the JSON form produced by MarshalValue.
func UnmarshalValue(data []byte) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}
	if bytes.Equal(data, []byte("null")) {
		return Null{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var env valueEnvelope
	if err := dec.Decode(&env); err != nil {
		return nil, err
	}

	switch {
	case env.Int != nil:
		n, err := env.Int.Int64()
		if err != nil {
			return nil, fmt.Errorf("integer out of int64 range: %s", *env.Int)
		}
		return Integer(n), nil
	case env.Real != nil:
		f, err := strconv.ParseFloat(*env.Real, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real %q: %w", *env.Real, err)
		}
		return Real(f), nil
	case env.Text != nil:
		return Text(*env.Text), nil
	case env.Text64 != nil:
		return Text(env.Text64), nil
	case env.IsBlob || env.Blob != nil:
		if env.Blob == nil {
			return Blob{}, nil
		}
		return Blob(env.Blob), nil
	default:
		return nil, fmt.Errorf("value envelope has no variant: %s", string(data))
	}
}
