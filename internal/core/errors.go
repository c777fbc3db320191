package core

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrBadRequest    ErrorCode = "WSM_BAD_REQUEST"
	ErrForbidden     ErrorCode = "WSM_FORBIDDEN"
	ErrNotFound      ErrorCode = "WSM_NOT_FOUND"
	ErrQuotaExceeded ErrorCode = "WSM_QUOTA_EXCEEDED"
	ErrOrchestrator  ErrorCode = "WSM_ORCHESTRATOR_UNAVAILABLE"
	ErrInternal      ErrorCode = "WSM_INTERNAL"
)

// HTTPStatus returns the HTTP status code for this error code.
func (e ErrorCode) HTTPStatus() int {
	switch e {
	case ErrBadRequest:
		return 400
	case ErrForbidden:
		return 403
	case ErrNotFound:
		return 404
	case ErrQuotaExceeded:
		return 429
	case ErrOrchestrator:
		return 502
	default:
		return 500
	}
}

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
