package ir

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes errors returned to callers.
type ErrorCode string

const (
	// ErrCodeSyntax is an engine-reported SQL error (engine code 1).
	ErrCodeSyntax ErrorCode = "SYNTAX_ERROR"

	// ErrCodeConstraint is an engine-reported constraint violation (engine code 19).
	ErrCodeConstraint ErrorCode = "CONSTRAINT_VIOLATION"

	// ErrCodeTypeMismatch is a value/column type disagreement (engine code 20).
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeInvalidValue means the codec cannot represent a value.
	ErrCodeInvalidValue ErrorCode = "INVALID_VALUE"

	// ErrCodeInvalidSchema means a schema cannot be synthesized or parsed.
	ErrCodeInvalidSchema ErrorCode = "INVALID_SCHEMA"

	// ErrCodeInvalidHandle means a prepared-statement handle is unknown or finalized.
	ErrCodeInvalidHandle ErrorCode = "INVALID_HANDLE"

	// ErrCodeNotImplemented marks operations present in the surface but unsupported.
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// ErrCodeConnectionClosed means the request arrived after close.
	ErrCodeConnectionClosed ErrorCode = "CONNECTION_CLOSED"

	// ErrCodeEngine is any other engine-reported error.
	ErrCodeEngine ErrorCode = "ENGINE_ERROR"

	// ErrCodeProtocol means a frame could not be encoded or decoded.
	ErrCodeProtocol ErrorCode = "PROTOCOL_ERROR"
)

// Error is the structured error carried in every failed reply.
//
// Engine-reported errors keep the engine's primary and extended result codes
// verbatim. Codec and synthesis errors have EngineCode 0.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode `json:"code"`

	// EngineCode is the engine's primary result code (0 if not engine-reported).
	EngineCode int `json:"engine_code,omitempty"`

	// ExtendedCode is the engine's extended result code.
	ExtendedCode int `json:"extended_code,omitempty"`

	// Message is the human-readable description, engine text unmodified.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.EngineCode != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.EngineCode, e.Message)
	}
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same Code, so the sentinels below work
// with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrSyntax           = &Error{Code: ErrCodeSyntax}
	ErrConstraint       = &Error{Code: ErrCodeConstraint}
	ErrTypeMismatch     = &Error{Code: ErrCodeTypeMismatch}
	ErrInvalidValue     = &Error{Code: ErrCodeInvalidValue}
	ErrInvalidSchema    = &Error{Code: ErrCodeInvalidSchema}
	ErrInvalidHandle    = &Error{Code: ErrCodeInvalidHandle}
	ErrNotImplemented   = &Error{Code: ErrCodeNotImplemented}
	ErrConnectionClosed = &Error{Code: ErrCodeConnectionClosed}
	ErrProtocol         = &Error{Code: ErrCodeProtocol}
)

// NewError creates an Error that did not come from the engine.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates an Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the ErrorCode of err, or "" if err carries none.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// AsError extracts the *Error from err. Errors that are not already
// structured are reported as ENGINE_ERROR with their text.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: ErrCodeEngine, Message: err.Error()}
}

// IsInvalidHandle returns true if err is an unknown or finalized handle error.
func IsInvalidHandle(err error) bool { return CodeOf(err) == ErrCodeInvalidHandle }

// IsConnectionClosed returns true if err reports a closed connection.
func IsConnectionClosed(err error) bool { return CodeOf(err) == ErrCodeConnectionClosed }

// IsConstraintViolation returns true if the engine rejected a constraint.
func IsConstraintViolation(err error) bool { return CodeOf(err) == ErrCodeConstraint }

// IsNotImplemented returns true for unsupported surface operations.
func IsNotImplemented(err error) bool { return CodeOf(err) == ErrCodeNotImplemented }
