package protocol

import (
	"fmt"

	"github.com/roach88/esqlite/internal/ir"
)

// Op is a command opcode. The numeric value is the frame tag.
type Op byte

const (
	// OpExec executes one statement with optional bound parameters.
	OpExec Op = iota + 1
	// OpScript executes a multi-statement script.
	OpScript
	// OpPrepare compiles a statement and returns a handle.
	OpPrepare
	// OpColumns returns a prepared statement's result column names.
	OpColumns
	// OpBind replaces a prepared statement's parameters and rewinds it.
	OpBind
	// OpNext steps a prepared statement by one row.
	OpNext
	// OpReset rewinds a prepared statement, keeping its bindings.
	OpReset
	// OpFinalize releases a prepared statement.
	OpFinalize
	// OpCreateFunction registers an SQL callback. Not implemented.
	OpCreateFunction
	// OpClose releases the engine connection.
	OpClose
)

var opNames = map[Op]string{
	OpExec:           "exec",
	OpScript:         "script",
	OpPrepare:        "prepare",
	OpColumns:        "columns",
	OpBind:           "bind",
	OpNext:           "next",
	OpReset:          "reset",
	OpFinalize:       "finalize",
	OpCreateFunction: "create-function",
	OpClose:          "close",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", byte(o))
}

// Valid reports whether o is a known opcode.
func (o Op) Valid() bool {
	_, ok := opNames[o]
	return ok
}

// Command is one request to the engine-owning worker.
// Which fields are meaningful depends on Op.
type Command struct {
	Op Op `json:"-"`

	// SQL is the statement or script text (exec, script, prepare).
	SQL string `json:"sql,omitempty"`

	// Params are bound parameters (exec, bind).
	Params []ir.Param `json:"params,omitempty"`

	// Handle names a prepared statement (columns, bind, next, reset, finalize).
	Handle ir.Handle `json:"handle,omitempty"`

	// Function and Arity describe a create-function request.
	Function string `json:"function,omitempty"`
	Arity    int    `json:"arity,omitempty"`
}

// Exec builds an exec command.
func Exec(sql string, params ...ir.Param) Command {
	return Command{Op: OpExec, SQL: sql, Params: params}
}

// Script builds a script command.
func Script(sql string) Command {
	return Command{Op: OpScript, SQL: sql}
}

// Prepare builds a prepare command.
func Prepare(sql string) Command {
	return Command{Op: OpPrepare, SQL: sql}
}

// Bind builds a bind command.
func Bind(h ir.Handle, params ...ir.Param) Command {
	return Command{Op: OpBind, Handle: h, Params: params}
}

// OnHandle builds a columns, next, reset or finalize command.
func OnHandle(op Op, h ir.Handle) Command {
	return Command{Op: op, Handle: h}
}

// Validate checks that the fields Op needs are present.
func (c Command) Validate() error {
	switch c.Op {
	case OpExec, OpScript, OpPrepare:
		if c.SQL == "" {
			return ir.Errorf(ir.ErrCodeProtocol, "%s: empty statement text", c.Op)
		}
	case OpColumns, OpBind, OpNext, OpReset, OpFinalize:
		if c.Handle == "" {
			return ir.Errorf(ir.ErrCodeProtocol, "%s: missing handle", c.Op)
		}
	case OpCreateFunction, OpClose:
		// create-function is never carried out, so its payload is not checked
	default:
		return ir.Errorf(ir.ErrCodeProtocol, "unknown opcode %d", byte(c.Op))
	}
	return nil
}
