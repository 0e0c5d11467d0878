package store

import (
	"errors"

	"github.com/roach88/esqlite/internal/ir"
)

// SQLite primary result codes with a dedicated ir.ErrorCode.
const (
	sqliteError    = 1
	sqliteConstr   = 19
	sqliteMismatch = 20
)

// engineError converts a driver error into an ir.Error, keeping the engine's
// codes and message unmodified.
func engineError(err error) *ir.Error {
	if err == nil {
		return nil
	}
	var e *ir.Error
	if errors.As(err, &e) {
		return e
	}

	primary, extended, ok := engineCodes(err)
	if !ok {
		return &ir.Error{Code: ir.ErrCodeEngine, Message: err.Error()}
	}
	return &ir.Error{
		Code:         classify(primary),
		EngineCode:   primary,
		ExtendedCode: extended,
		Message:      err.Error(),
	}
}

func classify(primary int) ir.ErrorCode {
	switch primary {
	case sqliteError:
		return ir.ErrCodeSyntax
	case sqliteConstr:
		return ir.ErrCodeConstraint
	case sqliteMismatch:
		return ir.ErrCodeTypeMismatch
	default:
		return ir.ErrCodeEngine
	}
}
