package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the different ways a publish attempt can fail
type ErrorType string

const (
	ErrorTypeConfiguration    ErrorType = "configuration"
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypeTransport        ErrorType = "transport"
	ErrorTypeExternalAPI      ErrorType = "external_api"
	ErrorTypeProtocol         ErrorType = "protocol"
	ErrorTypeProcessingFailed ErrorType = "processing_failed"
	ErrorTypeTimeout          ErrorType = "timeout"
)

// Error is a failure with type information. Code carries the upstream HTTP
// status when there is one and is 0 otherwise.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

// Error returns the message verbatim; it is shown to users as-is.
func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same Type, so sentinel-style checks
// like errors.Is(err, &Error{Type: ErrorTypeTimeout}) work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// Detail renders type and code alongside the message, for logs.
func (e *Error) Detail() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// HTTPStatus maps the error to the status the request handler responds with
func (e *Error) HTTPStatus() int {
	if e.Type == ErrorTypeValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func newError(t ErrorType, code int, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Type:    t,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
		Err:     cause,
	}
}

// Configuration reports missing or unusable configuration
func Configuration(format string, args ...interface{}) *Error {
	return newError(ErrorTypeConfiguration, 0, nil, format, args...)
}

// Validation reports bad input from the caller
func Validation(format string, args ...interface{}) *Error {
	return newError(ErrorTypeValidation, 0, nil, format, args...)
}

// Transport wraps a network-level failure reaching the Graph API
func Transport(cause error, format string, args ...interface{}) *Error {
	return newError(ErrorTypeTransport, 0, cause, format, args...)
}

// ExternalAPI reports a non-success response from the Graph API
func ExternalAPI(code int, format string, args ...interface{}) *Error {
	return newError(ErrorTypeExternalAPI, code, nil, format, args...)
}

// Protocol reports a success response that is missing an expected field
func Protocol(code int, format string, args ...interface{}) *Error {
	return newError(ErrorTypeProtocol, code, nil, format, args...)
}

// ProcessingFailed reports a container that reached the ERROR status
func ProcessingFailed(format string, args ...interface{}) *Error {
	return newError(ErrorTypeProcessingFailed, 0, nil, format, args...)
}

// Timeout reports a container that never finished within the deadline
func Timeout(format string, args ...interface{}) *Error {
	return newError(ErrorTypeTimeout, 0, nil, format, args...)
}

// TypeOf returns the ErrorType of err, or "" when err is not an *Error
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

// HTTPStatus returns the response status for any error. Untyped errors are
// treated as downstream failures.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// IsRetryable checks if an error should be retried. Only transport failures
// and rate limit or server responses from the Graph API qualify.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Type {
	case ErrorTypeTransport:
		return true
	case ErrorTypeExternalAPI:
		return IsRetryableStatusCode(e.Code)
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests:
		return true
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return false
	default:
		return statusCode >= 500
	}
}
