package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/esqlite/internal/ir"
	"github.com/roach88/esqlite/internal/protocol"
)

func TestScript_StopsAtFirstFailure(t *testing.T) {
	s := createTestStore(t)

	reply := s.Call(context.Background(), protocol.Script(`
		CREATE TABLE t (a INTEGER UNIQUE);
		INSERT INTO t VALUES (1);
		INSERT INTO t VALUES (2);
		INSERT INTO t VALUES (1);
		INSERT INTO t VALUES (3);
	`))
	require.NoError(t, reply.Expect(protocol.KindOutcomes))
	require.Len(t, reply.Outcomes, 4)

	for _, o := range reply.Outcomes[:3] {
		assert.True(t, o.OK(), o.SQL)
	}
	last := reply.Outcomes[3]
	assert.Equal(t, "INSERT INTO t VALUES (1)", last.SQL)
	require.NotNil(t, last.Error)
	assert.Equal(t, ir.ErrCodeConstraint, last.Error.Code)

	rows := mustExec(t, s, "SELECT a FROM t ORDER BY a")
	assert.Equal(t, []ir.Row{{ir.Integer(1)}, {ir.Integer(2)}}, rows.Rows, "statement after the failure did not run")
}

func TestScript_AllOK(t *testing.T) {
	s := createTestStore(t)
	reply := s.Call(context.Background(), protocol.Script("CREATE TABLE a (x); CREATE TABLE b (y);"))
	require.NoError(t, reply.Err())
	require.Len(t, reply.Outcomes, 2)
	assert.True(t, reply.Outcomes[0].OK())
	assert.True(t, reply.Outcomes[1].OK())
}

func TestScript_Trigger(t *testing.T) {
	s := createTestStore(t)
	reply := s.Call(context.Background(), protocol.Script(`
		CREATE TABLE t (a INTEGER);
		CREATE TABLE log (msg TEXT);
		CREATE TRIGGER t_ins AFTER INSERT ON t BEGIN
			INSERT INTO log VALUES ('a;b');
			INSERT INTO log VALUES (CASE WHEN new.a > 0 THEN 'pos' ELSE 'neg' END);
		END;
		INSERT INTO t VALUES (5);
	`))
	require.NoError(t, reply.Err())
	require.Len(t, reply.Outcomes, 4)
	for _, o := range reply.Outcomes {
		require.True(t, o.OK(), "%s: %v", o.SQL, o.Error)
	}

	rows := mustExec(t, s, "SELECT msg FROM log ORDER BY rowid")
	assert.Equal(t, []ir.Row{{ir.Text("a;b")}, {ir.Text("pos")}}, rows.Rows)
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"only comments", "-- nothing;\n/* here; */", nil},
		{"no trailing semicolon", "SELECT 1; SELECT 2", []string{"SELECT 1", "SELECT 2"}},
		{"semicolon in string", "SELECT 'a;b'; SELECT 2;", []string{"SELECT 'a;b'", "SELECT 2"}},
		{"escaped quote", "SELECT 'it''s;'; SELECT 2", []string{"SELECT 'it''s;'", "SELECT 2"}},
		{"quoted identifiers", "SELECT \"a;\", [b;], `c;` FROM t", []string{"SELECT \"a;\", [b;], `c;` FROM t"}},
		{"line comment", "SELECT 1 -- one; two\n; SELECT 2", []string{"SELECT 1 -- one; two", "SELECT 2"}},
		{"block comment", "SELECT /* ; */ 1;", []string{"SELECT /* ; */ 1"}},
		{"empty statements", ";;SELECT 1;;", []string{"SELECT 1"}},
		{
			"transaction keywords",
			"BEGIN; INSERT INTO t VALUES (1); END;",
			[]string{"BEGIN", "INSERT INTO t VALUES (1)", "END"},
		},
		{
			"temp trigger",
			"CREATE TEMP TRIGGER x AFTER DELETE ON t BEGIN DELETE FROM u; END; SELECT 1",
			[]string{"CREATE TEMP TRIGGER x AFTER DELETE ON t BEGIN DELETE FROM u; END", "SELECT 1"},
		},
		{"drop trigger", "DROP TRIGGER x; SELECT 1", []string{"DROP TRIGGER x", "SELECT 1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitStatements(tt.in))
		})
	}
}

func TestLeadingKeyword(t *testing.T) {
	assert.Equal(t, "INSERT", leadingKeyword("  insert into t"))
	assert.Equal(t, "DELETE", leadingKeyword("-- c\n/* d */ delete from t"))
	assert.Equal(t, "", leadingKeyword("  -- only"))
	assert.True(t, isDML("REPLACE INTO t VALUES (1)"))
	assert.False(t, isDML("SELECT 1"))
}
