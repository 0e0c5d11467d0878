package store

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/esqlite/internal/codec"
	"github.com/roach88/esqlite/internal/ir"
	"github.com/roach88/esqlite/internal/protocol"
)

func TestExec_DMLReportsChanges(t *testing.T) {
	s := createTestStore(t)
	mustExec(t, s, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)")

	reply := mustExec(t, s, "INSERT INTO t (name) VALUES ('a'), ('b')")
	assert.Equal(t, protocol.KindAck, reply.Kind)
	assert.Equal(t, int64(2), reply.RowsAffected)
	assert.Equal(t, int64(2), reply.LastInsertID)

	reply = mustExec(t, s, "  -- rename\n UPDATE t SET name = 'c'")
	assert.Equal(t, int64(2), reply.RowsAffected)

	reply = mustExec(t, s, "CREATE INDEX t_name ON t (name)")
	assert.Equal(t, protocol.Ack(), reply, "DDL carries no counts")
}

func TestExec_MaterializesTypedRows(t *testing.T) {
	s := createTestStore(t)
	mustExec(t, s, "CREATE TABLE v (i INTEGER, r REAL, t TEXT, b BLOB, n TEXT)")
	mustExec(t, s, "INSERT INTO v VALUES (?, ?, ?, ?, ?)",
		ir.P(ir.Integer(-3)), ir.P(ir.Real(0.25)), ir.P(ir.Text("a'b")), ir.P(ir.Blob{0, 1}), ir.P(ir.Null{}))

	reply := mustExec(t, s, "SELECT i, r, t, b, n FROM v")
	require.NoError(t, reply.Expect(protocol.KindRows))
	assert.Equal(t, []string{"i", "r", "t", "b", "n"}, reply.Columns)
	assert.Equal(t, []ir.Row{{ir.Integer(-3), ir.Real(0.25), ir.Text("a'b"), ir.Blob{0, 1}, ir.Null{}}}, reply.Rows)

	reply = mustExec(t, s, "SELECT * FROM v WHERE i = 99")
	assert.Equal(t, protocol.KindRows, reply.Kind)
	assert.Empty(t, reply.Rows)
}

func TestExec_EscapedLiteralsRoundTrip(t *testing.T) {
	s := createTestStore(t)
	values := []ir.Value{
		ir.Integer(math.MaxInt64),
		ir.Integer(math.MinInt64),
		ir.Real(0.1),
		ir.Real(-1e300),
		ir.Text("a'"),
		ir.Text("''; DROP TABLE x; --"),
		ir.Text(""),
		ir.Text("a\x00b"),
		ir.Blob{0xde, 0xad},
		ir.Null{},
	}

	for _, v := range values {
		reply := mustExec(t, s, "SELECT "+codec.Render(v))
		require.Len(t, reply.Rows, 1)
		assert.True(t, ir.Equal(v, reply.Rows[0][0]), "%s came back as %#v", codec.Render(v), reply.Rows[0][0])
	}
}

func TestExec_Int64BoundariesThroughBoundParams(t *testing.T) {
	s := createTestStore(t)
	mustExec(t, s, "CREATE TABLE n (v INTEGER)")
	mustExec(t, s, "INSERT INTO n VALUES (?), (?)", ir.P(ir.Integer(math.MaxInt64)), ir.P(ir.Integer(math.MinInt64)))

	reply := mustExec(t, s, "SELECT v FROM n ORDER BY v")
	assert.Equal(t, []ir.Row{{ir.Integer(math.MinInt64)}, {ir.Integer(math.MaxInt64)}}, reply.Rows)

	// Past the boundary the engine switches to REAL rather than wrapping
	reply = mustExec(t, s, "SELECT v + 1 FROM n WHERE v = ?", ir.P(ir.Integer(math.MaxInt64)))
	require.Len(t, reply.Rows, 1)
	assert.IsType(t, ir.Real(0), reply.Rows[0][0])
	assert.False(t, ir.Equal(ir.Integer(math.MaxInt64), reply.Rows[0][0]))
	assert.False(t, ir.Equal(ir.Integer(math.MinInt64), reply.Rows[0][0]))

	reply = mustExec(t, s, "SELECT v - 1 FROM n WHERE v = ?", ir.P(ir.Integer(math.MinInt64)))
	assert.IsType(t, ir.Real(0), reply.Rows[0][0])
}

func TestExec_NamedAndNumberedParams(t *testing.T) {
	s := createTestStore(t)

	reply := mustExec(t, s, "SELECT :a, @b, $c",
		ir.Named(":a", ir.Integer(1)), ir.Named("b", ir.Text("two")), ir.Named("$c", ir.Real(3.5)))
	assert.Equal(t, []ir.Row{{ir.Integer(1), ir.Text("two"), ir.Real(3.5)}}, reply.Rows)

	reply = mustExec(t, s, "SELECT ?2, ?1", ir.Indexed(1, ir.Text("x")), ir.Indexed(2, ir.Text("y")))
	assert.Equal(t, []ir.Row{{ir.Text("y"), ir.Text("x")}}, reply.Rows)
}

func TestExec_EngineErrorCodes(t *testing.T) {
	s := createTestStore(t)
	mustExec(t, s, "CREATE TABLE u (id INTEGER PRIMARY KEY, email TEXT UNIQUE NOT NULL)")
	mustExec(t, s, "INSERT INTO u (email) VALUES ('a@x')")

	tests := []struct {
		name       string
		sql        string
		code       ir.ErrorCode
		engineCode int
	}{
		{"syntax", "SELEC 1", ir.ErrCodeSyntax, 1},
		{"missing table", "SELECT * FROM nope", ir.ErrCodeSyntax, 1},
		{"unique", "INSERT INTO u (email) VALUES ('a@x')", ir.ErrCodeConstraint, 19},
		{"not null", "INSERT INTO u (email) VALUES (NULL)", ir.ErrCodeConstraint, 19},
		{"rowid mismatch", "INSERT INTO u (id, email) VALUES ('abc', 'b@x')", ir.ErrCodeTypeMismatch, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := s.Call(context.Background(), protocol.Exec(tt.sql))
			require.Equal(t, protocol.KindError, reply.Kind)
			assert.Equal(t, tt.code, reply.Error.Code)
			assert.Equal(t, tt.engineCode, reply.Error.EngineCode)
			assert.NotEmpty(t, reply.Error.Message)
		})
	}

	// Failures leave the connection usable and the data untouched
	reply := mustExec(t, s, "SELECT count(*) FROM u")
	assert.Equal(t, []ir.Row{{ir.Integer(1)}}, reply.Rows)
}

func TestExec_ConstraintKeepsExtendedCode(t *testing.T) {
	s := createTestStore(t)
	mustExec(t, s, "CREATE TABLE k (a TEXT UNIQUE)")
	mustExec(t, s, "INSERT INTO k VALUES ('x')")

	reply := s.Call(context.Background(), protocol.Exec("INSERT INTO k VALUES ('x')"))
	require.Equal(t, protocol.KindError, reply.Kind)
	assert.Equal(t, 2067, reply.Error.ExtendedCode) // SQLITE_CONSTRAINT_UNIQUE
}

func TestExec_BindErrorsBeforeEngine(t *testing.T) {
	s := createTestStore(t)
	mustExec(t, s, "CREATE TABLE t (a INTEGER)")

	reply := s.Call(context.Background(), protocol.Exec("INSERT INTO t VALUES (?1)",
		ir.Indexed(1, ir.Integer(1)), ir.Indexed(1, ir.Integer(2))))
	assert.Equal(t, ir.ErrCodeInvalidValue, ir.CodeOf(reply.Err()))

	reply = mustExec(t, s, "SELECT count(*) FROM t")
	assert.Equal(t, []ir.Row{{ir.Integer(0)}}, reply.Rows)
}

func TestEngineError_Classify(t *testing.T) {
	assert.Equal(t, ir.ErrCodeSyntax, classify(1))
	assert.Equal(t, ir.ErrCodeConstraint, classify(19))
	assert.Equal(t, ir.ErrCodeTypeMismatch, classify(20))
	assert.Equal(t, ir.ErrCodeEngine, classify(5))

	assert.Nil(t, engineError(nil))
	assert.Equal(t, ir.ErrCodeEngine, engineError(assert.AnError).Code)

	inner := ir.NewError(ir.ErrCodeInvalidValue, "x")
	assert.Same(t, inner, engineError(inner))
}

// seedEvents stores values whose storage class does not match what the
// declared column type suggests.
func seedEvents(t *testing.T, s *Store) []ir.Row {
	t.Helper()
	mustExec(t, s, "CREATE TABLE ev (at TIMESTAMP, d DATE, dt DATETIME, flag BOOLEAN)")
	rows := []ir.Row{
		{ir.Integer(1700000000), ir.Text("2024-01-02"), ir.Text("not a date"), ir.Integer(5)},
		{ir.Text("2024-01-02 03:04:05"), ir.Integer(20240102), ir.Real(1.5), ir.Text("yes")},
		{ir.Integer(0), ir.Null{}, ir.Text("2024-01-02T03:04:05Z"), ir.Integer(0)},
	}
	for _, row := range rows {
		params := make([]ir.Param, len(row))
		for i, v := range row {
			params[i] = ir.P(v)
		}
		mustExec(t, s, "INSERT INTO ev VALUES (?, ?, ?, ?)", params...)
	}
	return rows
}

func TestExec_DeclaredTypesKeepStoredValues(t *testing.T) {
	s := createTestStore(t)
	want := seedEvents(t, s)

	reply := mustExec(t, s, "SELECT at, d, dt, flag FROM ev ORDER BY rowid;")
	require.NoError(t, reply.Expect(protocol.KindRows))
	assert.Equal(t, []string{"at", "d", "dt", "flag"}, reply.Columns)
	assert.Equal(t, want, reply.Rows)

	reply = mustExec(t, s, "SELECT * FROM ev WHERE flag = 5 -- first row")
	require.NoError(t, reply.Expect(protocol.KindRows))
	assert.Equal(t, []string{"at", "d", "dt", "flag"}, reply.Columns)
	assert.Equal(t, want[:1], reply.Rows)

	reply = mustExec(t, s, "WITH x AS (SELECT d AS day FROM ev) SELECT day FROM x WHERE day IS NOT NULL")
	require.NoError(t, reply.Expect(protocol.KindRows))
	assert.Equal(t, []string{"day"}, reply.Columns)
	assert.Equal(t, []ir.Row{{ir.Text("2024-01-02")}, {ir.Integer(20240102)}}, reply.Rows)
}

func TestUndeclared(t *testing.T) {
	text, ok := undeclared("SELECT a, b FROM t;", 2)
	require.True(t, ok)
	assert.Equal(t, "WITH esqlite_rows(c1, c2) AS (\nSELECT a, b FROM t\n) SELECT +c1, +c2 FROM esqlite_rows", text)

	_, ok = undeclared("  -- note\n values (1)", 1)
	assert.True(t, ok)

	for _, query := range []string{
		"INSERT INTO t VALUES (1) RETURNING a",
		"SELECT 1; SELECT 2",
		"PRAGMA table_info(t)",
	} {
		_, ok := undeclared(query, 1)
		assert.False(t, ok, query)
	}
	_, ok = undeclared("SELECT 1", 0)
	assert.False(t, ok)
}
