package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/esqlite/internal/ir"
	"github.com/roach88/esqlite/internal/protocol"
)

func TestExec_TextOutput(t *testing.T) {
	db := tempDB(t)

	out, err := run(t, nil, "exec", "--db", db, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT UNIQUE)")
	require.NoError(t, err)
	assert.Equal(t, "ok rows_affected=0 last_insert_id=0\n", out)

	out, err = run(t, nil, "exec", "--db", db, "INSERT INTO users (name) VALUES (?)", "--param", "'ann'")
	require.NoError(t, err)
	assert.Equal(t, "ok rows_affected=1 last_insert_id=1\n", out)

	_, err = run(t, nil, "exec", "--db", db, "INSERT INTO users (name) VALUES (:name)", "-p", ":name='李雷'")
	require.NoError(t, err)

	out, err = run(t, nil, "exec", "--db", db, "SELECT id, name FROM users ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"id  name",
		"--  ----",
		"1   ann",
		"2   李雷",
		"(2 rows)",
		"",
	}, "\n"), out)
}

func TestExec_JSONOutput(t *testing.T) {
	out, err := run(t, nil, "exec", "--db", ":memory:", "--format", "json",
		"SELECT ?1 AS i, ?2 AS t, ?3 AS b, NULL AS n", "-p", "9223372036854775807", "-p", "'x'", "-p", "X'CAFE'")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Columns []string            `json:"columns"`
			Rows    [][]json.RawMessage `json:"rows"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"i", "t", "b", "n"}, resp.Data.Columns)
	require.Len(t, resp.Data.Rows, 1)

	row := resp.Data.Rows[0]
	assert.Equal(t, "9223372036854775807", string(row[0]))
	assert.Equal(t, `"x"`, string(row[1]))
	assert.Equal(t, `"yv4="`, string(row[2]))
	assert.Equal(t, "null", string(row[3]))
}

func TestExec_Errors(t *testing.T) {
	out, err := run(t, nil, "exec", "--db", ":memory:", "SELEKT 1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, strings.HasPrefix(out, "Error [SYNTAX_ERROR]: "), out)

	out, err = run(t, nil, "exec", "--db", ":memory:", "--format", "json", "SELEKT 1")
	require.Error(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SYNTAX_ERROR", resp.Error.Code)
	assert.Equal(t, 1, resp.Error.EngineCode)

	_, err = run(t, nil, "exec", "--db", ":memory:", "SELECT ?", "-p", "'unterminated")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"1", "'a=b'", ":n=2.5", "?3=NULL", "$x=X'00'"})
	require.NoError(t, err)
	assert.Equal(t, []ir.Param{
		ir.P(ir.Integer(1)),
		ir.P(ir.Text("a=b")),
		ir.Named(":n", ir.Real(2.5)),
		ir.Indexed(3, ir.Null{}),
		ir.Named("$x", ir.Blob{0x00}),
	}, params)

	_, err = parseParams([]string{"?0=1"})
	assert.Error(t, err)
}

func TestScript(t *testing.T) {
	db := tempDB(t)
	file := filepath.Join(t.TempDir(), "schema.sql")
	require.NoError(t, os.WriteFile(file, []byte(`
		CREATE TABLE s (a INTEGER);
		INSERT INTO s VALUES (1);
		INSERT INTO missing VALUES (2);
		INSERT INTO s VALUES (3);
	`), 0o644))

	out, err := run(t, nil, "script", "--db", db, file)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "1. ok CREATE TABLE s (a INTEGER)\n")
	assert.Contains(t, out, "2. ok INSERT INTO s VALUES (1)\n")
	assert.Contains(t, out, "3. FAILED INSERT INTO missing VALUES (2)\n")
	assert.NotContains(t, out, "VALUES (3)")

	out, err = run(t, strings.NewReader("INSERT INTO s VALUES (4); INSERT INTO s VALUES (5)"),
		"script", "--db", db, "--format", "json", "-")
	require.NoError(t, err)
	var resp struct {
		Data []OutcomeJSON `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []OutcomeJSON{
		{SQL: "INSERT INTO s VALUES (4)", OK: true},
		{SQL: "INSERT INTO s VALUES (5)", OK: true},
	}, resp.Data)

	out, err = run(t, nil, "exec", "--db", db, "SELECT a FROM s ORDER BY a")
	require.NoError(t, err)
	assert.Contains(t, out, "(3 rows)")

	_, err = run(t, nil, "script", "--db", db, filepath.Join(t.TempDir(), "nope.sql"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTablesAndSchema(t *testing.T) {
	db := tempDB(t)
	_, err := run(t, nil, "exec", "--db", db,
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT UNIQUE NOT NULL, score REAL DEFAULT 0.5)")
	require.NoError(t, err)

	out, err := run(t, nil, "tables", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "users\n", out)

	out, err = run(t, nil, "schema", "--db", db, "users")
	require.NoError(t, err)
	assert.Equal(t, "id INTEGER PRIMARY KEY\nname TEXT UNIQUE NOT NULL\nscore REAL DEFAULT 0.5\n", out)

	out, err = run(t, nil, "schema", "--db", db, "--format", "json", "users")
	require.NoError(t, err)
	var resp struct {
		Data SchemaJSON `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.Exists)
	require.Len(t, resp.Data.Columns, 3)
	assert.Equal(t, []string{"unique", "not_null"}, resp.Data.Columns[1].Constraints)

	out, err = run(t, nil, "schema", "--db", db, "missing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "table missing does not exist\n", out)
}

func TestPort_ServesFrames(t *testing.T) {
	var in bytes.Buffer
	require.NoError(t, protocol.WriteCommand(&in, protocol.Exec("CREATE TABLE t (a)")))
	require.NoError(t, protocol.WriteCommand(&in, protocol.Exec("INSERT INTO t VALUES (?)", ir.P(ir.Integer(-9223372036854775808)))))
	require.NoError(t, protocol.WriteCommand(&in, protocol.Exec("SELECT a FROM t")))
	require.NoError(t, protocol.WriteCommand(&in, protocol.Command{Op: protocol.OpClose}))

	out, err := run(t, &in, "port", "--db", ":memory:")
	require.NoError(t, err)

	r := bytes.NewReader([]byte(out))
	for _, want := range []protocol.Kind{protocol.KindAck, protocol.KindAck} {
		reply, err := protocol.ReadReply(r)
		require.NoError(t, err)
		assert.Equal(t, want, reply.Kind)
	}

	reply, err := protocol.ReadReply(r)
	require.NoError(t, err)
	require.NoError(t, reply.Expect(protocol.KindRows))
	assert.Equal(t, []ir.Row{{ir.Integer(-9223372036854775808)}}, reply.Rows)

	reply, err = protocol.ReadReply(r)
	require.NoError(t, err)
	assert.Equal(t, protocol.KindAck, reply.Kind)
	assert.Zero(t, r.Len(), "nothing after the close reply")
}

func TestTestCommand(t *testing.T) {
	dir := t.TempDir()
	scenario := `name: smoke
description: "Write and read one row"
steps:
  - op: create_table
    table: t
    columns:
      - {name: a, type: integer}
  - op: write
    table: t
    fields: {a: 1}
assertions:
  - {type: row_count, table: t, count: 1}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "smoke.yaml"), []byte(scenario), 0o644))

	out, err := run(t, nil, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "ok   smoke (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "smoke.golden"))
	require.NoError(t, err)
	assert.Equal(t, "scenario: smoke\n[1] seq=1 create_table t: ok\n[2] seq=2 write t: ok last_insert_id=1\n", string(golden))

	out, err = run(t, nil, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")

	// A drifted golden file fails the run
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "smoke.golden"), []byte("stale\n"), 0o644))
	out, err = run(t, nil, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Failed)

	out, err = run(t, nil, "test", dir, "--filter", "nomatch*")
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")

	_, err = run(t, nil, "test", filepath.Join(dir, "absent"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDisplayWidth(t *testing.T) {
	assert.Equal(t, 3, displayWidth("abc"))
	assert.Equal(t, 4, displayWidth("李雷"))
	assert.Equal(t, 5, displayWidth("ａb"+"李"))
}
