// Package errs provides the error type shared by the connection, dialect,
// schema and client packages.
//
// Every component wraps driver errors into *errs.Error before returning them.
// Callers use the Is* predicates instead of importing driver packages:
//
//	if errs.IsNotConnected(err) {
//	    // connect first
//	}
package errs

import (
	"errors"
	"fmt"
)

// Kind categorises an error independently of the database vendor.
type Kind int

const (
	KindUnknown              Kind = iota
	KindConnection                // handle could not be opened
	KindNotConnected              // operation attempted before Connect
	KindUnsupportedDialect        // vendor identity not recognised
	KindUnsupportedOperation      // variant not offered by the resolved dialect
	KindSchemaOperation           // a catalog, drop or truncate statement failed
	KindCyclicDependency          // dependency-ordered drop made no progress
	KindInvalidInput              // bad arguments or configuration
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection_error"
	case KindNotConnected:
		return "not_connected"
	case KindUnsupportedDialect:
		return "unsupported_dialect"
	case KindUnsupportedOperation:
		return "unsupported_operation"
	case KindSchemaOperation:
		return "schema_operation_failed"
	case KindCyclicDependency:
		return "cyclic_dependency"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error is the single error type returned across db-wipe.
type Error struct {
	Kind    Kind
	Message string
	Object  string // offending table, view, type or schema, when known
	Code    string // vendor error code extracted from Cause, when known
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Object != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Object)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

// Unwrap allows errors.Is / errors.As to reach the driver error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with no cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error around cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// SchemaOperation reports a failed statement against object.
func SchemaOperation(object, code string, cause error) *Error {
	return &Error{
		Kind:    KindSchemaOperation,
		Message: "schema operation failed",
		Object:  object,
		Code:    code,
		Cause:   cause,
	}
}

// --- Predicates ---

func IsConnection(err error) bool           { return KindOf(err) == KindConnection }
func IsNotConnected(err error) bool         { return KindOf(err) == KindNotConnected }
func IsUnsupportedDialect(err error) bool   { return KindOf(err) == KindUnsupportedDialect }
func IsUnsupportedOperation(err error) bool { return KindOf(err) == KindUnsupportedOperation }
func IsSchemaOperation(err error) bool      { return KindOf(err) == KindSchemaOperation }
func IsCyclicDependency(err error) bool     { return KindOf(err) == KindCyclicDependency }
func IsInvalidInput(err error) bool         { return KindOf(err) == KindInvalidInput }

// KindOf extracts the Kind of the first *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
