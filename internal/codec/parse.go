package codec

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/roach88/esqlite/internal/ir"
)

// ParseLiteral is the inverse of Render for a single literal token.
//
// Accepted forms: 'text' (with '' for an embedded quote), X'hex' blobs,
// NULL, TRUE/FALSE (as Integer 1/0), decimal integers and reals with an
// optional sign, and the infinity spellings Render produces. Integers that
// overflow int64 are read as Real, matching the engine.
func ParseLiteral(s string) (ir.Value, error) {
	lit := strings.TrimSpace(s)
	if lit == "" {
		return nil, ir.NewError(ir.ErrCodeInvalidValue, "empty literal")
	}

	switch upper := strings.ToUpper(lit); {
	case upper == nullKeyword:
		return ir.Null{}, nil
	case upper == "TRUE":
		return ir.Integer(1), nil
	case upper == "FALSE":
		return ir.Integer(0), nil
	case lit[0] == '\'':
		return parseText(lit)
	case (lit[0] == 'x' || lit[0] == 'X') && len(lit) > 1 && lit[1] == '\'':
		return parseBlob(lit)
	case strings.HasPrefix(upper, "CAST(") && strings.HasSuffix(upper, ")"):
		return parseCast(lit)
	}

	return parseNumber(lit)
}

func parseText(lit string) (ir.Value, error) {
	if len(lit) < 2 || lit[len(lit)-1] != '\'' {
		return nil, ir.Errorf(ir.ErrCodeInvalidValue, "unterminated text literal %s", lit)
	}
	body := lit[1 : len(lit)-1]

	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\'' {
			if i+1 >= len(body) || body[i+1] != '\'' {
				return nil, ir.Errorf(ir.ErrCodeInvalidValue, "unescaped quote in text literal %s", lit)
			}
			i++
		}
		b.WriteByte(c)
	}
	return ir.Text(b.String()), nil
}

func parseBlob(lit string) (ir.Value, error) {
	if len(lit) < 3 || lit[len(lit)-1] != '\'' {
		return nil, ir.Errorf(ir.ErrCodeInvalidValue, "unterminated blob literal %s", lit)
	}
	raw, err := hex.DecodeString(lit[2 : len(lit)-1])
	if err != nil {
		return nil, ir.Errorf(ir.ErrCodeInvalidValue, "invalid blob literal %s: %v", lit, err)
	}
	return ir.Blob(raw), nil
}

// parseCast accepts the CAST(X'..' AS TEXT) form Render uses for Text
// holding a NUL byte.
func parseCast(lit string) (ir.Value, error) {
	inner := strings.TrimSpace(lit[len("CAST(") : len(lit)-1])
	i := strings.LastIndex(strings.ToUpper(inner), " AS ")
	if i < 0 || !strings.EqualFold(strings.TrimSpace(inner[i+len(" AS "):]), "TEXT") {
		return nil, ir.Errorf(ir.ErrCodeInvalidValue, "unsupported literal %s", lit)
	}
	operand := strings.TrimSpace(inner[:i])
	if len(operand) < 2 || (operand[0] != 'x' && operand[0] != 'X') || operand[1] != '\'' {
		return nil, ir.Errorf(ir.ErrCodeInvalidValue, "unsupported literal %s", lit)
	}
	raw, err := parseBlob(operand)
	if err != nil {
		return nil, err
	}
	return ir.Text(raw.(ir.Blob)), nil
}

func parseNumber(lit string) (ir.Value, error) {
	body := strings.TrimLeft(lit, "+-")
	if body == "" || (body[0] != '.' && (body[0] < '0' || body[0] > '9')) {
		return nil, ir.Errorf(ir.ErrCodeInvalidValue, "unsupported literal %s", lit)
	}

	if !strings.ContainsAny(lit, ".eE") {
		if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return ir.Integer(n), nil
		}
	}

	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		// ParseFloat reports overflow (9e999) with a usable +/-Inf result
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return ir.Real(f), nil
		}
		return nil, ir.Errorf(ir.ErrCodeInvalidValue, "unsupported literal %s", lit)
	}
	return ir.Real(f), nil
}
