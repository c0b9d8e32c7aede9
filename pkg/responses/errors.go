package responses

import (
	"errors"
	"fmt"
)

// Error codes. Codes double as the HTTP status class the REST layer uses
// when serializing the envelope.
const (
	CodeSuccess         = 200
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeConflict        = 409
	CodeValidationError = 400
	CodeEvaluatorError  = 422
	CodeInternalError   = 500
	CodeDatabaseError   = 500
	CodeCryptoError     = 500
	CodeDispatchError   = 502
)

// AppError is the typed error every component returns up to the REST layer.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new error.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an underlying error.
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error taxonomy constructors. Validation and conflict errors surface
// synchronously and are never retried; dispatch errors are retried inside
// the scheduler before converting to a terminal build failure.

func NewValidation(message string) *AppError {
	return New(CodeValidationError, message)
}

func NewConflict(message string) *AppError {
	return New(CodeConflict, message)
}

func NewDispatch(message string, err error) *AppError {
	return Wrap(CodeDispatchError, message, err)
}

func NewEvaluator(message string, err error) *AppError {
	return Wrap(CodeEvaluatorError, message, err)
}

func NewCrypto(message string, err error) *AppError {
	return Wrap(CodeCryptoError, message, err)
}

// IsNotFound reports whether err carries a not-found code.
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeNotFound
}

// IsConflict reports whether err carries a conflict code.
func IsConflict(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeConflict
}

// Predefined errors
var (
	ErrBadRequest         = New(CodeBadRequest, "invalid request")
	ErrUnauthorized       = New(CodeUnauthorized, "unauthorized")
	ErrForbidden          = New(CodeForbidden, "forbidden")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrInvalidCredentials = New(CodeUnauthorized, "invalid username or password")
	ErrInvalidToken       = New(CodeUnauthorized, "invalid token")
	ErrTokenExpired       = New(CodeUnauthorized, "token expired")
	ErrRecordNotFound     = New(CodeNotFound, "record not found")
	ErrRecordExists       = New(CodeConflict, "record already exists")
)
