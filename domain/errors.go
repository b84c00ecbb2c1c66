package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies an error class in API responses.
type ErrorCode string

const (
	CodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	CodeAuthRequired      ErrorCode = "AUTH_REQUIRED"
	CodeForbidden         ErrorCode = "FORBIDDEN"
	CodeJobNotFound       ErrorCode = "JOB_NOT_FOUND"
	CodeNoResults         ErrorCode = "NO_RESULTS"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeSubmissionBusy    ErrorCode = "SUBMISSION_IN_FLIGHT"
	CodeQuotaExhausted    ErrorCode = "QUOTA_EXHAUSTED"
	CodeProRequired       ErrorCode = "PRO_REQUIRED"
	CodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	CodeUpstream          ErrorCode = "UPSTREAM_ERROR"
	CodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// AppError is an error that knows how it should be reported to a client.
type AppError struct {
	Code     ErrorCode `json:"code"`
	Message  string    `json:"message"`
	Details  any       `json:"details,omitempty"`
	Err      error     `json:"-"`
	HTTPCode int       `json:"-"`
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

// Is matches on Code so predefined errors can be compared after WithDetails/Wrap copies.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewAppError builds an AppError without an underlying cause.
func NewAppError(code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{Code: code, Message: message, HTTPCode: httpCode}
}

// WrapError attaches err as the cause of a new AppError.
func WrapError(err error, code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{Code: code, Message: message, Err: err, HTTPCode: httpCode}
}

// WithDetails returns a copy carrying details; predefined errors stay untouched.
func (e *AppError) WithDetails(details any) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithMessage returns a copy with a different user-visible message.
func (e *AppError) WithMessage(message string) *AppError {
	cp := *e
	cp.Message = message
	return &cp
}

var (
	ErrValidation         = NewAppError(CodeValidationFailed, "Validation failed", http.StatusBadRequest)
	ErrAuthRequired       = NewAppError(CodeAuthRequired, "Please sign in to continue.", http.StatusUnauthorized)
	ErrForbidden          = NewAppError(CodeForbidden, "Access denied", http.StatusForbidden)
	ErrJobNotFound        = NewAppError(CodeJobNotFound, "Job not found.", http.StatusNotFound)
	ErrNoResults          = NewAppError(CodeNoResults, "No job data found.", http.StatusNotFound)
	ErrApplicationMissing = NewAppError(CodeNotFound, "Application not found", http.StatusNotFound)
	ErrSubmissionInFlight = NewAppError(CodeSubmissionBusy, "A resume is already being processed.", http.StatusConflict)
	ErrQuotaExhausted     = NewAppError(CodeQuotaExhausted, "Free job views used up.", http.StatusForbidden)
	ErrInvalidTransition  = NewAppError(CodeInvalidTransition, "Status transition is not allowed", http.StatusBadRequest)
	ErrUpstream           = NewAppError(CodeUpstream, "Failed to get job matches.", http.StatusBadGateway)
	ErrProfileMissing     = NewAppError(CodeNotFound, "Recruiter not found", http.StatusNotFound)
	ErrProRequired        = NewAppError(CodeProRequired, "Messaging is only available for Pro recruiters.", http.StatusForbidden)
)

// ValidationError returns ErrValidation with a specific message.
func ValidationError(message string) *AppError {
	return ErrValidation.WithMessage(message)
}

// InternalError hides err behind a generic message.
func InternalError(err error) *AppError {
	return WrapError(err, CodeInternal, "Internal server error", http.StatusInternalServerError)
}

// AsAppError converts any error into an AppError, treating unknown errors as internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalError(err)
}
