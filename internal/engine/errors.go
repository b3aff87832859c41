package engine

import "fmt"

// Code classifies an operation failure
type Code string

const (
	// InvalidInput covers bad coordinates, incompatible ends,
	// ambiguity under unique=true and exceeded caps
	InvalidInput Code = "InvalidInput"

	// NotFound is an unknown sequence/container/candidate-set id
	NotFound Code = "NotFound"

	// Unsupported is an unimplemented protocol or mode value
	Unsupported Code = "Unsupported"

	// Io is an external I/O failure surfaced through the engine
	Io Code = "Io"

	// Internal is an invariant violation; seeing one is a bug
	Internal Code = "Internal"
)

// Error is the structured failure every operation returns. A failing
// operation never partially mutates project state
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf builds an Error with a formatted message
func Errorf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsError coerces any error into an *Error, defaulting unclassified
// failures to the given code
func AsError(err error, code Code) *Error {
	if engineErr, ok := err.(*Error); ok {
		return engineErr
	}
	return &Error{Code: code, Message: err.Error()}
}
