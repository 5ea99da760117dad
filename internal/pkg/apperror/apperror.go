package apperror

import (
	"errors"
	"net/http"
)

// AppError carries the HTTP status and user-facing message of a domain failure.
type AppError struct {
	Code    int    // HTTP Status Code (e.g., 400, 404)
	Message string // User-facing error message
	Err     error  // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another AppError with the same code and message, so a wrapped
// sentinel still satisfies errors.Is against the bare sentinel.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.Message == e.Message
}

// New creates a new AppError with a status code and message.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap attaches an underlying cause to a sentinel without changing its identity.
func Wrap(err error, sentinel *AppError) *AppError {
	return &AppError{
		Code:    sentinel.Code,
		Message: sentinel.Message,
		Err:     err,
	}
}

// StatusCode reports the HTTP status carried by err, or 500 for anything else.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// IsClientError reports whether err is an AppError in the 4xx range.
func IsClientError(err error) bool {
	code := StatusCode(err)
	return code >= 400 && code < 500
}
