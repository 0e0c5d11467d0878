package harness

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/esqlite/internal/engine"
	"github.com/roach88/esqlite/internal/ir"
	"github.com/roach88/esqlite/internal/querysql"
)

// Harness runs one scenario's steps against a connection.
type Harness struct {
	conn    *engine.Conn
	handles map[string]ir.Handle
	logger  *slog.Logger
}

// Run executes a scenario against a fresh in-memory database and returns
// the result. The returned error is for scenarios that cannot run at all:
// a failing setup script or values that cannot be converted. Failed
// expectations are reported in the Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	conn, err := engine.Open(ctx, scenario.Name, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory connection: %w", err)
	}
	defer conn.Close()

	return RunOn(ctx, conn, scenario)
}

// RunOn executes a scenario against an existing connection.
func RunOn(ctx context.Context, conn *engine.Conn, scenario *Scenario) (*Result, error) {
	h := &Harness{
		conn:    conn,
		handles: make(map[string]ir.Handle),
		logger:  slog.With("scenario", scenario.Name),
	}

	if scenario.Setup != "" {
		if _, err := conn.Script(ctx, scenario.Setup); err != nil {
			return nil, fmt.Errorf("failed to execute setup: %w", err)
		}
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		ev, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
		ev.Step = i + 1
		ev.Seq = conn.Seq()
		result.Trace = append(result.Trace, ev)

		for _, msg := range checkExpect(ev, step.Expect) {
			result.AddError(fmt.Sprintf("step %d (%s): %s", ev.Step, step.Op, msg))
		}
		h.logger.Debug("step completed", "step", ev.Step, "op", step.Op, "code", ev.Code)
	}

	failures, err := EvaluateAssertions(ctx, conn, scenario.Assertions)
	if err != nil {
		return nil, err
	}
	for _, msg := range failures {
		result.AddError(msg)
	}
	return result, nil
}

// execute runs one step. Operation errors are recorded on the event; the
// returned error is reserved for scenario conversion problems.
func (h *Harness) execute(ctx context.Context, step Step) (TraceEvent, error) {
	ev := TraceEvent{Op: step.Op}
	c := h.conn

	fail := func(err error) (TraceEvent, error) {
		if err != nil {
			e := ir.AsError(err)
			ev.Code, ev.Message = e.Code, e.Message
		}
		return ev, nil
	}

	switch step.Op {
	case OpExec:
		ev.Target = step.SQL
		params, err := paramsOf(&step.Params)
		if err != nil {
			return ev, err
		}
		res, err := c.ExecParams(ctx, step.SQL, params...)
		if err != nil {
			return fail(err)
		}
		ev.Columns, ev.Rows = res.Columns, res.Rows
		ev.RowsAffected, ev.LastInsertID = res.RowsAffected, res.LastInsertID

	case OpScript:
		outcomes, err := c.Script(ctx, step.SQL)
		ev.Outcomes = len(outcomes)
		return fail(err)

	case OpCreateTable:
		ev.Target = step.Table
		schema, err := schemaOf(step.Columns)
		if err != nil {
			return ev, err
		}
		return fail(c.CreateTable(ctx, step.Table, schema))

	case OpListTables:
		tables, err := c.ListTables(ctx)
		if err != nil {
			return fail(err)
		}
		ev.Tables = tables

	case OpTableInfo:
		ev.Target = step.Table
		schema, exists, err := c.TableInfo(ctx, step.Table)
		ev.Exists = exists
		if err != nil {
			return fail(err)
		}
		ev.Schema = schema

	case OpWrite:
		ev.Target = step.Table
		fields, err := fieldsOf(&step.Fields)
		if err != nil {
			return ev, err
		}
		id, err := c.Write(ctx, step.Table, fields)
		if err != nil {
			return fail(err)
		}
		ev.LastInsertID = id

	case OpUpdate:
		ev.Target = step.Table
		where, fields, err := whereAndFields(step)
		if err != nil {
			return ev, err
		}
		n, err := c.Update(ctx, step.Table, *where, fields)
		if err != nil {
			return fail(err)
		}
		ev.RowsAffected = n

	case OpRead:
		ev.Target = step.Table
		where, err := predicateOf(&step.Where)
		if err != nil {
			return ev, err
		}
		var res *engine.Result
		if where != nil {
			res, err = c.Read(ctx, step.Table, *where, step.Project...)
		} else {
			res, err = c.ReadAll(ctx, step.Table, step.Project...)
		}
		if err != nil {
			return fail(err)
		}
		ev.Columns, ev.Rows = res.Columns, res.Rows

	case OpDelete:
		ev.Target = step.Table
		where, err := predicateOf(&step.Where)
		if err != nil {
			return ev, err
		}
		n, err := c.Delete(ctx, step.Table, *where)
		if err != nil {
			return fail(err)
		}
		ev.RowsAffected = n

	case OpDropTable:
		ev.Target = step.Table
		return fail(c.DropTable(ctx, step.Table))

	case OpPrepare:
		ev.Target = step.As
		handle, err := c.Prepare(ctx, step.SQL)
		if err != nil {
			return fail(err)
		}
		h.handles[step.As] = handle

	case OpColumns:
		ev.Target = step.Handle
		cols, err := c.Columns(ctx, h.handles[step.Handle])
		if err != nil {
			return fail(err)
		}
		ev.Columns = cols

	case OpBind:
		ev.Target = step.Handle
		params, err := paramsOf(&step.Params)
		if err != nil {
			return ev, err
		}
		return fail(c.Bind(ctx, h.handles[step.Handle], params...))

	case OpNext:
		ev.Target = step.Handle
		row, ok, err := c.Next(ctx, h.handles[step.Handle])
		if err != nil {
			return fail(err)
		}
		if ok {
			ev.Rows = []ir.Row{row}
		} else {
			ev.Done = true
		}

	case OpReset:
		ev.Target = step.Handle
		return fail(c.Reset(ctx, h.handles[step.Handle]))

	case OpFinalize:
		ev.Target = step.Handle
		return fail(c.Finalize(ctx, h.handles[step.Handle]))

	case OpCreateFunction:
		ev.Target = step.Function
		return fail(c.CreateFunction(ctx, step.Function, step.Arity))

	default:
		return ev, fmt.Errorf("unknown op %q", step.Op)
	}

	return ev, nil
}

func whereAndFields(step Step) (*ir.Predicate, []ir.Field, error) {
	where, err := predicateOf(&step.Where)
	if err != nil {
		return nil, nil, err
	}
	if where == nil {
		return nil, nil, fmt.Errorf("where is required")
	}
	fields, err := fieldsOf(&step.Fields)
	if err != nil {
		return nil, nil, err
	}
	return where, fields, nil
}

// checkExpect compares an event with its expectation. A step without an
// expectation must succeed.
func checkExpect(ev TraceEvent, exp *Expect) []string {
	if exp == nil {
		if !ev.OK() {
			return []string{fmt.Sprintf("unexpected error %s: %s", ev.Code, ev.Message)}
		}
		return nil
	}

	if exp.Error != "" {
		if string(ev.Code) != exp.Error {
			return []string{fmt.Sprintf("expected error %s, got %s", exp.Error, describe(ev))}
		}
		return nil
	}
	if !ev.OK() {
		return []string{fmt.Sprintf("unexpected error %s: %s", ev.Code, ev.Message)}
	}

	var errs []string
	mismatch := func(field string, want, got any) {
		errs = append(errs, fmt.Sprintf("%s: expected %v, got %v", field, want, got))
	}

	if exp.Columns != nil && !slices.Equal(exp.Columns, ev.Columns) {
		mismatch("columns", exp.Columns, ev.Columns)
	}
	if exp.Rows.Kind != 0 {
		want, err := rowsOf(&exp.Rows)
		if err != nil {
			errs = append(errs, "rows: "+err.Error())
		} else if !rowsEqual(want, ev.Rows) {
			mismatch("rows", renderRows(want), renderRows(ev.Rows))
		}
	}
	if exp.Row.Kind != 0 {
		want, err := rowOf(&exp.Row)
		switch {
		case err != nil:
			errs = append(errs, "row: "+err.Error())
		case len(ev.Rows) != 1 || !rowsEqual([]ir.Row{want}, ev.Rows):
			mismatch("row", renderRow(want), renderRows(ev.Rows))
		}
	}
	if exp.Done != nil && *exp.Done != ev.Done {
		mismatch("done", *exp.Done, ev.Done)
	}
	if exp.RowsAffected != nil && *exp.RowsAffected != ev.RowsAffected {
		mismatch("rows_affected", *exp.RowsAffected, ev.RowsAffected)
	}
	if exp.LastInsertID != nil && *exp.LastInsertID != ev.LastInsertID {
		mismatch("last_insert_id", *exp.LastInsertID, ev.LastInsertID)
	}
	if exp.Exists != nil && *exp.Exists != ev.Exists {
		mismatch("exists", *exp.Exists, ev.Exists)
	}
	if exp.Tables != nil && !slices.Equal(exp.Tables, ev.Tables) {
		mismatch("tables", exp.Tables, ev.Tables)
	}
	if exp.Schema != nil {
		want, err := schemaOf(exp.Schema)
		if err != nil {
			errs = append(errs, "schema: "+err.Error())
		} else if w, g := definitions(want), definitions(ev.Schema); !slices.Equal(w, g) {
			mismatch("schema", w, g)
		}
	}
	if exp.Outcomes != nil && *exp.Outcomes != ev.Outcomes {
		mismatch("outcomes", *exp.Outcomes, ev.Outcomes)
	}
	return errs
}

func describe(ev TraceEvent) string {
	if ev.OK() {
		return "success"
	}
	return fmt.Sprintf("%s (%s)", ev.Code, ev.Message)
}

func rowsEqual(a, b []ir.Row) bool {
	return slices.EqualFunc(a, b, func(x, y ir.Row) bool {
		return slices.EqualFunc(x, y, ir.Equal)
	})
}

func renderRows(rows []ir.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = renderRow(r)
	}
	return out
}

// definitions renders each column as DDL, which is how schemas compare.
func definitions(schema ir.TableSchema) []string {
	out := make([]string, len(schema))
	for i, col := range schema {
		out[i] = querysql.Default.ColumnDefinition(col)
	}
	return out
}
