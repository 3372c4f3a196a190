package apperrors

import "fmt"

const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeRateLimited          = "RATE_LIMITED"
	CodeConfirmationRequired = "CONFIRMATION_REQUIRED"
	CodeInvalidState         = "INVALID_STATE"
	CodeInternal             = "INTERNAL"
)

// AppError is the error type every service in the engine returns. Code is one
// of the Code* constants, Message is safe to show to clients, Details carries
// structured fields (reset times, conflicting slugs), and Err is the wrapped
// cause which must never reach a client for internal errors.
type AppError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// WithDetail returns the error with an extra structured detail attached.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Is reports whether err is an *AppError carrying the given code.
func Is(err error, code string) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}
