package protocol

import (
	"fmt"

	"github.com/roach88/esqlite/internal/ir"
)

// Kind tags the shape of a Reply. The numeric value is the frame tag.
type Kind byte

const (
	// KindAck acknowledges a command with no result set.
	KindAck Kind = iota + 1
	// KindRows carries a fully materialized result set.
	KindRows
	// KindError carries a structured error.
	KindError
	// KindHandle carries a new prepared-statement handle.
	KindHandle
	// KindColumns carries result column names.
	KindColumns
	// KindRow carries one stepped row.
	KindRow
	// KindDone means a prepared statement has no more rows.
	KindDone
	// KindOutcomes carries per-statement script outcomes.
	KindOutcomes
)

var kindNames = map[Kind]string{
	KindAck:      "ack",
	KindRows:     "rows",
	KindError:    "error",
	KindHandle:   "handle",
	KindColumns:  "columns",
	KindRow:      "row",
	KindDone:     "done",
	KindOutcomes: "outcomes",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}

// Valid reports whether k is a known reply kind.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// Reply is the single answer to one Command.
type Reply struct {
	Kind Kind `json:"-"`

	Columns []string `json:"columns,omitempty"`
	Rows    []ir.Row `json:"rows,omitempty"`
	Row     ir.Row   `json:"row,omitempty"`

	Handle ir.Handle `json:"handle,omitempty"`

	// RowsAffected and LastInsertID are set on acks for INSERT, UPDATE,
	// DELETE and REPLACE.
	RowsAffected int64 `json:"rows_affected,omitempty"`
	LastInsertID int64 `json:"last_insert_id,omitempty"`

	Outcomes []Outcome `json:"outcomes,omitempty"`

	Error *ir.Error `json:"error,omitempty"`
}

// Outcome is the result of one statement in a script.
type Outcome struct {
	SQL   string    `json:"sql"`
	Error *ir.Error `json:"error,omitempty"`
}

// OK reports whether the statement succeeded.
func (o Outcome) OK() bool { return o.Error == nil }

// Ack is an empty acknowledgement.
func Ack() Reply { return Reply{Kind: KindAck} }

// Done is the end-of-rows sentinel for next.
func Done() Reply { return Reply{Kind: KindDone} }

// ErrorReply wraps err as a KindError reply. Unstructured errors become
// ENGINE_ERROR.
func ErrorReply(err error) Reply {
	return Reply{Kind: KindError, Error: ir.AsError(err)}
}

// NotImplemented is the reply for surface operations without an engine
// bridge.
func NotImplemented(op Op) Reply {
	return ErrorReply(ir.Errorf(ir.ErrCodeNotImplemented, "%s is not implemented", op))
}

// Err returns the reply's error, or nil on success.
func (r Reply) Err() error {
	if r.Kind == KindError {
		if r.Error == nil {
			return ir.NewError(ir.ErrCodeProtocol, "error reply without error")
		}
		return r.Error
	}
	return nil
}

// Expect returns the reply's error, or PROTOCOL_ERROR if the reply is a
// success of a different kind than want.
func (r Reply) Expect(want Kind) error {
	if err := r.Err(); err != nil {
		return err
	}
	if r.Kind != want {
		return ir.Errorf(ir.ErrCodeProtocol, "expected %s reply, got %s", want, r.Kind)
	}
	return nil
}
