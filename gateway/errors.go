package gateway

import "fmt"

// Code classifies a command failure. Every code renders to the client as a
// plain error string; codes exist so handlers and tests can tell failures
// apart without parsing messages.
type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeUnreachable  Code = "unreachable"
	CodeNotWritable  Code = "not_writable"
	CodeInvalidValue Code = "invalid_value"
	CodeWriteFailed  Code = "write_failed"
	CodeProtocol     Code = "protocol_error"
)

// Error is a client-visible command failure.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

// Errorf builds an Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of err, or "" for plain errors.
func CodeOf(err error) Code {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
