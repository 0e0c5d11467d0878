// Package codec converts between ir.Value and the engine's representations:
// SQL literal text, typed bind arguments, and raw driver values.
//
// Literal rendering is the only quoting defense for values embedded in
// statement text: Render doubles every single quote in Text. Text holding
// a NUL byte is written as a blob cast to TEXT. Bound parameters never pass
// through literal rendering.
package codec

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/esqlite/internal/ir"
)

// Engine spellings for values that have no ordinary literal.
const (
	nullKeyword = "NULL"
	posInf      = "9e999"
	negInf      = "-9e999"
)

// Render returns the SQL literal for v with Text escaped.
// The mapping is total: every Value has a literal.
func Render(v ir.Value) string {
	return render(v, true)
}

// RenderUnsafe returns the SQL literal for v without escaping Text.
// The caller is responsible for Text that contains single quotes.
func RenderUnsafe(v ir.Value) string {
	return render(v, false)
}

// RenderNative converts a Go value with FromNative and renders it.
func RenderNative(x any) (string, error) {
	v, err := FromNative(x)
	if err != nil {
		return "", err
	}
	return Render(v), nil
}

func render(v ir.Value, escape bool) string {
	switch val := v.(type) {
	case ir.Integer:
		return strconv.FormatInt(int64(val), 10)
	case ir.Real:
		return renderReal(float64(val))
	case ir.Text:
		if strings.IndexByte(string(val), 0) >= 0 {
			// A quoted literal ends at the first NUL
			return "CAST(" + renderBlob([]byte(val)) + " AS TEXT)"
		}
		if escape {
			return quote(string(val))
		}
		return "'" + string(val) + "'"
	case ir.Blob:
		return renderBlob(val)
	default:
		// ir.Null and a nil interface both render as NULL
		return nullKeyword
	}
}

// renderReal formats f so the engine reads it back as the same REAL.
// The shortest round-trip form is used; a '.0' suffix keeps integral
// values from being read back as INTEGER.
func renderReal(f float64) string {
	switch {
	case math.IsNaN(f):
		// The engine stores NaN as NULL
		return nullKeyword
	case math.IsInf(f, 1):
		return posInf
	case math.IsInf(f, -1):
		return negInf
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

func renderBlob(b []byte) string {
	return "X'" + strings.ToUpper(hex.EncodeToString(b)) + "'"
}

// quote wraps s in single quotes, doubling embedded quotes.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
