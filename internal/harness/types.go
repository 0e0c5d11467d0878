package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/esqlite/internal/codec"
	"github.com/roach88/esqlite/internal/ir"
	"github.com/roach88/esqlite/internal/querysql"
)

// TraceEvent records the outcome of one step.
type TraceEvent struct {
	Step   int
	Seq    int64
	Op     string
	Target string

	// Code is the error code, empty on success.
	Code ir.ErrorCode
	// Message is the error text. It is not part of the rendered trace.
	Message string

	Columns      []string
	Rows         []ir.Row
	RowsAffected int64
	LastInsertID int64
	Tables       []string
	Exists       bool
	Schema       ir.TableSchema
	Outcomes     int
	Done         bool
}

// OK reports whether the step succeeded.
func (e TraceEvent) OK() bool {
	return e.Code == ""
}

// String renders the event as its trace line followed by any row or
// column lines, each indented by four spaces.
func (e TraceEvent) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] seq=%d %s", e.Step, e.Seq, e.Op)
	if e.Target != "" {
		b.WriteString(" " + e.Target)
	}
	if !e.OK() {
		fmt.Fprintf(&b, ": %s\n", e.Code)
		return b.String()
	}
	b.WriteString(": ok")

	switch e.Op {
	case OpListTables:
		fmt.Fprintf(&b, " tables=%s", strings.Join(e.Tables, ","))
	case OpTableInfo:
		fmt.Fprintf(&b, " exists=%t", e.Exists)
	case OpScript:
		fmt.Fprintf(&b, " outcomes=%d", e.Outcomes)
	case OpNext:
		if e.Done {
			b.WriteString(" done")
		}
	}
	if e.Columns != nil {
		fmt.Fprintf(&b, " columns=%s", strings.Join(e.Columns, ","))
	}
	if e.RowsAffected != 0 {
		fmt.Fprintf(&b, " rows_affected=%d", e.RowsAffected)
	}
	if e.LastInsertID != 0 {
		fmt.Fprintf(&b, " last_insert_id=%d", e.LastInsertID)
	}
	b.WriteByte('\n')

	for _, col := range e.Schema {
		b.WriteString("    " + querysql.Default.ColumnDefinition(col) + "\n")
	}
	for _, row := range e.Rows {
		b.WriteString("    " + renderRow(row) + "\n")
	}
	return b.String()
}

// renderRow renders a row as a parenthesized list of SQL literals.
func renderRow(row ir.Row) string {
	lits := make([]string, len(row))
	for i, v := range row {
		lits[i] = codec.Render(v)
	}
	return "(" + strings.Join(lits, ", ") + ")"
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// FormatTrace renders the whole trace, headed by the scenario name.
func FormatTrace(name string, trace []TraceEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	for _, e := range trace {
		b.WriteString(e.String())
	}
	return b.String()
}
