// Package schema parses the engine's stored CREATE TABLE text back into an
// ir.TableSchema.
//
// The grammar is deliberately small: the column list is split on commas and
// each column on whitespace, both outside quotes. Quoted literals and
// identifiers keep their text exactly. Column lists containing parentheses (CHECK
// expressions, table constraints, sized types like VARCHAR(20)) and
// constraint keywords outside PRIMARY KEY / UNIQUE / NOT NULL / DEFAULT are
// rejected with INVALID_SCHEMA instead of being guessed at.
package schema

import (
	"strings"

	"github.com/roach88/esqlite/internal/codec"
	"github.com/roach88/esqlite/internal/ir"
)

// constraintKeywords end the declared type of a column.
var constraintKeywords = map[string]bool{
	"PRIMARY":    true,
	"UNIQUE":     true,
	"NOT":        true,
	"DEFAULT":    true,
	"NULL":       true,
	"CHECK":      true,
	"REFERENCES": true,
	"COLLATE":    true,
	"CONSTRAINT": true,
	"GENERATED":  true,
	"AS":         true,
}

// Parse converts a CREATE TABLE statement into its ordered column list.
func Parse(definition string) (ir.TableSchema, error) {
	body, err := columnList(definition)
	if err != nil {
		return nil, err
	}

	defs, err := splitColumns(body)
	if err != nil {
		return nil, err
	}
	schema := make(ir.TableSchema, 0, len(defs))
	for _, def := range defs {
		col, err := parseColumn(strings.TrimSpace(def))
		if err != nil {
			return nil, err
		}
		schema = append(schema, col)
	}

	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return schema, nil
}

// columnList returns the text between the outer parentheses.
func columnList(definition string) (string, error) {
	open := strings.Index(definition, "(")
	if open == -1 {
		return "", ir.Errorf(ir.ErrCodeInvalidSchema, "missing '(' in %q", definition)
	}
	end := strings.LastIndex(definition, ")")
	if end == -1 || end <= open {
		return "", ir.Errorf(ir.ErrCodeInvalidSchema, "missing or misplaced ')' in %q", definition)
	}

	head := strings.Fields(definition[:open])
	if len(head) < 3 || !strings.EqualFold(head[0], "CREATE") || !containsFold(head, "TABLE") {
		return "", ir.Errorf(ir.ErrCodeInvalidSchema, "not a CREATE TABLE statement: %q", definition)
	}
	if tail := strings.TrimSpace(definition[end+1:]); tail != "" {
		// WITHOUT ROWID, STRICT
		return "", ir.Errorf(ir.ErrCodeInvalidSchema, "unsupported table options %q", tail)
	}

	body := definition[open+1 : end]
	if strings.TrimSpace(body) == "" {
		return "", ir.NewError(ir.ErrCodeInvalidSchema, "no column definitions")
	}
	return body, nil
}

// parseColumn parses "name [type...] constraint...".
func parseColumn(def string) (ir.ColumnDescriptor, error) {
	if def == "" {
		return ir.ColumnDescriptor{}, ir.NewError(ir.ErrCodeInvalidSchema, "empty column definition")
	}
	tokens, err := tokenize(def)
	if err != nil {
		return ir.ColumnDescriptor{}, err
	}
	col := ir.ColumnDescriptor{Name: unquoteIdent(tokens[0])}
	if constraintKeywords[strings.ToUpper(tokens[0])] {
		return ir.ColumnDescriptor{}, ir.Errorf(ir.ErrCodeInvalidSchema, "table constraint %q is not supported", def)
	}

	i := 1
	var typ []string
	for ; i < len(tokens) && !constraintKeywords[strings.ToUpper(tokens[i])]; i++ {
		typ = append(typ, strings.ToLower(tokens[i]))
	}
	col.Type = ir.ColumnType(strings.Join(typ, " "))

	constraints, err := parseConstraints(col.Name, tokens[i:])
	if err != nil {
		return ir.ColumnDescriptor{}, err
	}
	col.Constraints = constraints
	return col, nil
}

// parseConstraints is a greedy scan over the constraint tokens.
func parseConstraints(column string, tokens []string) ([]ir.Constraint, error) {
	var out []ir.Constraint

	for i := 0; i < len(tokens); {
		switch strings.ToUpper(tokens[i]) {
		case "PRIMARY":
			if !keywordAt(tokens, i+1, "KEY") {
				return nil, unexpected(column, tokens, i)
			}
			i += 2
			pk := ir.PrimaryKey{}
			if keywordAt(tokens, i, "ASC") {
				pk.Order = ir.OrderAsc
				i++
			} else if keywordAt(tokens, i, "DESC") {
				pk.Order = ir.OrderDesc
				i++
			}
			if keywordAt(tokens, i, "AUTOINCREMENT") {
				pk.Autoincrement = true
				i++
			}
			out = append(out, pk)

		case "UNIQUE":
			out = append(out, ir.Unique{})
			i++

		case "NOT":
			if !keywordAt(tokens, i+1, "NULL") {
				return nil, unexpected(column, tokens, i)
			}
			out = append(out, ir.NotNull{})
			i += 2

		case "DEFAULT":
			lit, next, err := defaultToken(column, tokens, i+1)
			if err != nil {
				return nil, err
			}
			d, err := parseDefault(column, lit)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
			i = next

		default:
			return nil, unexpected(column, tokens, i)
		}
	}

	return out, nil
}

// defaultToken returns the DEFAULT operand at tokens[i] and the index after
// it. A quoted literal is always a single token.
func defaultToken(column string, tokens []string, i int) (string, int, error) {
	if i >= len(tokens) {
		return "", 0, ir.Errorf(ir.ErrCodeInvalidSchema, "column %s: DEFAULT without a value", column)
	}
	return tokens[i], i + 1, nil
}

func parseDefault(column, lit string) (ir.Default, error) {
	if ir.IsDefaultKeyword(lit) {
		return ir.Default{Keyword: strings.ToUpper(lit)}, nil
	}
	v, err := codec.ParseLiteral(lit)
	if err != nil {
		return ir.Default{}, ir.Errorf(ir.ErrCodeInvalidSchema, "column %s: unsupported DEFAULT %s", column, lit)
	}
	return ir.Default{Value: v}, nil
}

func containsFold(tokens []string, keyword string) bool {
	for _, t := range tokens {
		if strings.EqualFold(t, keyword) {
			return true
		}
	}
	return false
}

func keywordAt(tokens []string, i int, keyword string) bool {
	return i < len(tokens) && strings.EqualFold(tokens[i], keyword)
}

func unexpected(column string, tokens []string, i int) error {
	return ir.Errorf(ir.ErrCodeInvalidSchema, "column %s: unsupported constraint text %q",
		column, strings.Join(tokens[i:], " "))
}

// closers maps each opening quote character to its closing one.
var closers = map[byte]byte{'\'': '\'', '"': '"', '`': '`', '[': ']'}

// scanQuoted returns the index just past the quoted run opening at s[i]. A
// doubled closing quote inside the run stands for itself.
func scanQuoted(s string, i int) (int, error) {
	closer := closers[s[i]]
	for j := i + 1; j < len(s); j++ {
		if s[j] != closer {
			continue
		}
		if closer != ']' && j+1 < len(s) && s[j+1] == closer {
			j++
			continue
		}
		return j + 1, nil
	}
	return 0, ir.Errorf(ir.ErrCodeInvalidSchema, "unterminated quote in %q", s[i:])
}

// splitColumns splits the column list on commas outside quotes.
func splitColumns(body string) ([]string, error) {
	var defs []string
	start := 0
	for i := 0; i < len(body); {
		switch c := body[i]; {
		case closers[c] != 0:
			end, err := scanQuoted(body, i)
			if err != nil {
				return nil, err
			}
			i = end
		case c == '(' || c == ')':
			return nil, ir.Errorf(ir.ErrCodeInvalidSchema, "nested parentheses in column list are not supported: %q", body)
		case c == ',':
			defs = append(defs, body[start:i])
			i++
			start = i
		default:
			i++
		}
	}
	return append(defs, body[start:]), nil
}

// tokenize splits a column definition on whitespace outside quotes.
func tokenize(def string) ([]string, error) {
	var tokens []string
	start := -1
	for i := 0; i < len(def); {
		c := def[i]
		if isSpace(c) {
			if start >= 0 {
				tokens = append(tokens, def[start:i])
				start = -1
			}
			i++
			continue
		}
		if start < 0 {
			start = i
		}
		if closers[c] == 0 {
			i++
			continue
		}
		end, err := scanQuoted(def, i)
		if err != nil {
			return nil, err
		}
		i = end
	}
	if start >= 0 {
		tokens = append(tokens, def[start:])
	}
	return tokens, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

// unquoteIdent strips one level of double-quote, backtick or bracket quoting.
func unquoteIdent(s string) string {
	if len(s) < 2 {
		return s
	}
	closer, ok := closers[s[0]]
	if !ok || s[0] == '\'' || s[len(s)-1] != closer {
		return s
	}
	body := s[1 : len(s)-1]
	if closer == ']' {
		return body
	}
	return strings.ReplaceAll(body, string([]byte{closer, closer}), string(closer))
}
