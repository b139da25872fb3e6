package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Domain errors
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrBadRequest          = errors.New("bad request")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("conflict")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrRequestExpired      = errors.New("request expired")
	ErrSignatureMismatch   = errors.New("signature verification failed")
	ErrNotContractOwner    = errors.New("requester is not contract owner")
	ErrSignatureReplayed   = errors.New("signature already used")
	ErrBatchInProgress     = errors.New("batch run already in progress")
	ErrMissingAdminKey     = errors.New("admin private key not configured")
	ErrProviderUnavailable = errors.New("chain provider unavailable")
)

// Error codes carried in API responses.
const (
	CodeBadRequest    = "BAD_REQUEST"
	CodeInvalidInput  = "INVALID_INPUT"
	CodeValidation    = "VALIDATION_FAILED"
	CodeForbidden     = "FORBIDDEN"
	CodeConflict      = "CONFLICT"
	CodeInternalError = "INTERNAL_ERROR"
	CodeChainError    = "CHAIN_ERROR"
)

// AppError represents application error with HTTP status
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError creates a new app error
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error constructors. A nil cause falls back to the generic sentinel.
func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidInput, message, ErrInvalidInput)
}

func Expired(message string, cause error) *AppError {
	return NewAppError(http.StatusBadRequest, CodeBadRequest, message, orDefault(cause, ErrBadRequest))
}

func Forbidden(message string, cause error) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, message, orDefault(cause, ErrForbidden))
}

func Conflict(message string, cause error) *AppError {
	return NewAppError(http.StatusConflict, CodeConflict, message, orDefault(cause, ErrConflict))
}

// InternalError hides err behind a generic message. err is kept for logs.
func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

// Misconfigured is a 500 whose message tells the operator what to set.
func Misconfigured(message string, cause error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, message, cause)
}

// ChainError surfaces a user-actionable chain failure (revert reason, funding shortfall).
func ChainError(message string, err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeChainError, message, err)
}

func orDefault(cause, fallback error) error {
	if cause != nil {
		return cause
	}
	return fallback
}

// FieldError is one violated input rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every violated field of one input.
type ValidationError struct {
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields"`
}

func NewValidationError(message string, fields ...FieldError) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) HasErrors() bool { return len(e.Fields) > 0 }

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
