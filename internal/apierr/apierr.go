// Package apierr implements the error taxonomy of spec.md §7 and maps
// each code to the HTTP status the REST surface must answer with.
package apierr

import (
	"fmt"
	"net/http"

	"github.com/cesargomez89/navidrums/internal/constants"
)

// Code is one of the fixed error codes surfaced as error.code in the REST
// envelope.
type Code string

const (
	CodeInvalidArgument   Code = "invalid_argument"
	CodeNotFound          Code = "not_found"
	CodeConflict          Code = "conflict"
	CodeBusy              Code = "busy"
	CodeUnsupportedFormat Code = "unsupported_format"
	CodeCorruptFile       Code = "corrupt_file"
	CodeTimeout           Code = "timeout"
	CodeIOError           Code = "io_error"
	CodeInternal          Code = "internal"
)

var httpStatus = map[Code]int{
	CodeInvalidArgument:   constants.StatusBadRequest,
	CodeNotFound:          constants.StatusNotFound,
	CodeConflict:          constants.StatusConflict,
	CodeBusy:              constants.StatusTooManyRequests,
	CodeUnsupportedFormat: constants.StatusUnsupportedMediaType,
	CodeCorruptFile:       constants.StatusUnprocessableEntity,
	CodeTimeout:           constants.StatusGatewayTimeout,
	CodeIOError:           constants.StatusInternalError,
	CodeInternal:          constants.StatusInternalError,
}

// Error is a typed application error carrying the REST envelope's shape.
type Error struct {
	Code    Code        `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/As.
func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus returns the status code the REST layer must respond with.
func (e *Error) HTTPStatus() int {
	if status, ok := httpStatus[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func WithDetails(code Code, message string, details interface{}) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

func InvalidArgument(format string, args ...interface{}) *Error {
	return New(CodeInvalidArgument, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...interface{}) *Error {
	return New(CodeNotFound, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...interface{}) *Error {
	return New(CodeConflict, fmt.Sprintf(format, args...))
}

func Busy(message string) *Error {
	return New(CodeBusy, message)
}

func UnsupportedFormat(format string, args ...interface{}) *Error {
	return New(CodeUnsupportedFormat, fmt.Sprintf(format, args...))
}

func CorruptFile(format string, args ...interface{}) *Error {
	return New(CodeCorruptFile, fmt.Sprintf(format, args...))
}

func Timeout(format string, args ...interface{}) *Error {
	return New(CodeTimeout, fmt.Sprintf(format, args...))
}

func IOError(message string, cause error) *Error {
	return Wrap(CodeIOError, message, cause)
}

func Internal(message string, cause error) *Error {
	return Wrap(CodeInternal, message, cause)
}

// As extracts an *Error from err, returning (nil, false) when err is not
// (or does not wrap) one.
func As(err error) (*Error, bool) {
	type causer interface{ Unwrap() error }
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}
		c, ok := err.(causer)
		if !ok {
			return nil, false
		}
		err = c.Unwrap()
	}
	return nil, false
}
