package apperrors

import (
	"errors"
	"net/http"
)

// ToHTTPStatus maps an error to the status code the handler layer writes.
func ToHTTPStatus(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}

	switch appErr.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeConfirmationRequired:
		return http.StatusPreconditionRequired
	case CodeInvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ClientPayload returns the code, message and details safe to serialize in a
// response body. Internal errors are flattened to a generic message so store
// failures never leak their text.
func ClientPayload(err error) (code, message string, details map[string]any) {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Code == CodeInternal {
		return CodeInternal, "internal server error", nil
	}
	return appErr.Code, appErr.Message, appErr.Details
}
