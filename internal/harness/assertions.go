package harness

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/esqlite/internal/codec"
	"github.com/roach88/esqlite/internal/engine"
	"github.com/roach88/esqlite/internal/ir"
)

// EvaluateAssertions checks every assertion against the connection and
// returns one message per failure. The error is for assertions whose
// values cannot be converted.
func EvaluateAssertions(ctx context.Context, conn *engine.Conn, assertions []Assertion) ([]string, error) {
	var failures []string
	for i, a := range assertions {
		msg, err := evaluateAssertion(ctx, conn, a)
		if err != nil {
			return nil, fmt.Errorf("assertions[%d]: %w", i, err)
		}
		if msg != "" {
			failures = append(failures, fmt.Sprintf("assertions[%d] (%s %s): %s", i, a.Type, a.Table, msg))
		}
	}
	return failures, nil
}

func evaluateAssertion(ctx context.Context, conn *engine.Conn, a Assertion) (string, error) {
	switch a.Type {
	case AssertTableExists:
		return assertTableExists(ctx, conn, a)
	case AssertRowCount:
		res, msg, err := selectRows(ctx, conn, a)
		if res == nil {
			return msg, err
		}
		if len(res.Rows) != a.Count {
			return fmt.Sprintf("expected %d rows, got %d", a.Count, len(res.Rows)), nil
		}
		return "", nil
	case AssertFinalState:
		return assertFinalState(ctx, conn, a)
	default:
		return "", fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertTableExists(ctx context.Context, conn *engine.Conn, a Assertion) (string, error) {
	tables, err := conn.ListTables(ctx)
	if err != nil {
		return "list tables: " + err.Error(), nil
	}
	if exists := slices.Contains(tables, a.Table); exists != *a.Exists {
		return fmt.Sprintf("expected exists=%t, got %t", *a.Exists, exists), nil
	}
	return "", nil
}

// selectRows reads the rows an assertion applies to. A nil result comes
// with a failure message or an error.
func selectRows(ctx context.Context, conn *engine.Conn, a Assertion) (*engine.Result, string, error) {
	where, err := predicateOf(&a.Where)
	if err != nil {
		return nil, "", err
	}

	var res *engine.Result
	if where != nil {
		res, err = conn.Read(ctx, a.Table, *where)
	} else {
		res, err = conn.ReadAll(ctx, a.Table)
	}
	if err != nil {
		return nil, "query failed: " + err.Error(), nil
	}
	return res, "", nil
}

func assertFinalState(ctx context.Context, conn *engine.Conn, a Assertion) (string, error) {
	want, err := fieldsOf(&a.Expect)
	if err != nil {
		return "", err
	}

	res, msg, err := selectRows(ctx, conn, a)
	if res == nil {
		return msg, err
	}
	if len(res.Rows) == 0 {
		return "no matching rows", nil
	}

	for _, f := range want {
		idx := slices.Index(res.Columns, f.Column)
		if idx < 0 {
			return fmt.Sprintf("column %s not in result", f.Column), nil
		}
		for n, row := range res.Rows {
			if !ir.Equal(row[idx], f.Value) {
				return fmt.Sprintf("row %d column %s: expected %s, got %s",
					n, f.Column, renderAgainst(f.Value, row[idx]), renderAgainst(row[idx], f.Value)), nil
			}
		}
	}
	return "", nil
}

// renderAgainst renders v, naming its storage class when other's differs.
func renderAgainst(v, other ir.Value) string {
	if ir.TypeName(v) == ir.TypeName(other) {
		return codec.Render(v)
	}
	return fmt.Sprintf("%s (%s)", codec.Render(v), ir.TypeName(v))
}
