package server

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// HTTPError is an error with an HTTP status code. Handlers return it to
// choose the status of the error response.
type HTTPError struct {
	Code    int    // HTTP status code (e.g., 400, 403, 404, 500)
	Message string // Logged, never sent to the client
	Err     error  // Optional underlying error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code for this error.
func (e *HTTPError) StatusCode() int {
	return e.Code
}

// NewHTTPError creates an error with the given status.
func NewHTTPError(code int, format string, args ...any) *HTTPError {
	return &HTTPError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(err error) *HTTPError {
	msg := "bad request"
	if err != nil {
		msg = err.Error()
	}
	return &HTTPError{Code: http.StatusBadRequest, Message: msg, Err: err}
}

// Unauthorized creates a 401 Unauthorized error.
func Unauthorized(message ...string) *HTTPError {
	msg := "unauthorized"
	if len(message) > 0 {
		msg = message[0]
	}
	return &HTTPError{Code: http.StatusUnauthorized, Message: msg}
}

// Forbidden creates a 403 Forbidden error.
func Forbidden(message ...string) *HTTPError {
	msg := "forbidden"
	if len(message) > 0 {
		msg = message[0]
	}
	return &HTTPError{Code: http.StatusForbidden, Message: msg}
}

// NotFound creates a 404 Not Found error. The error handler answers it with
// the not-found page.
func NotFound(message ...string) *HTTPError {
	msg := "not found"
	if len(message) > 0 {
		msg = message[0]
	}
	return &HTTPError{Code: http.StatusNotFound, Message: msg}
}

// MethodNotAllowed creates a 405 error.
func MethodNotAllowed(method string) *HTTPError {
	return &HTTPError{Code: http.StatusMethodNotAllowed, Message: "method not allowed: " + method}
}

// InternalError creates a 500 Internal Server Error.
func InternalError(err error) *HTTPError {
	return &HTTPError{Code: http.StatusInternalServerError, Message: "internal server error", Err: err}
}

// StatusOf returns the HTTP status declared by err or anything it wraps,
// through a StatusCode() or Status() method. Anything else is a 500.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var coder interface{ StatusCode() int }
	if stderrors.As(err, &coder) {
		if code := coder.StatusCode(); code >= 400 && code <= 599 {
			return code
		}
	}
	var statuser interface{ Status() int }
	if stderrors.As(err, &statuser) {
		if code := statuser.Status(); code >= 400 && code <= 599 {
			return code
		}
	}
	return http.StatusInternalServerError
}
