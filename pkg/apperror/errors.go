package apperror

import (
	"fmt"
	"net/http"
)

// Canonical wallet error codes. Provider adapters translate these into each
// provider's own error vocabulary; they are never sent on the wire verbatim
// except through the platform API.
const (
	CodeInsufficientFunds      = "INSUFFICIENT_FUNDS"
	CodeOriginalTxNotFound     = "ORIGINAL_TX_NOT_FOUND"
	CodePlayerNotFound         = "PLAYER_NOT_FOUND"
	CodeInvalidTransactionType = "INVALID_TRANSACTION_TYPE"
	CodeMalformedRequest       = "MALFORMED_REQUEST"
	CodeInvalidAmount          = "INVALID_AMOUNT"
	CodeInternalError          = "INTERNAL_ERROR"
	CodeUnauthorized           = "UNAUTHORIZED"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Wallet business rules ----

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient balance for bet", http.StatusPaymentRequired)
}

func ErrOriginalTxNotFound() *AppError {
	return New(CodeOriginalTxNotFound, "No prior bet found for round", http.StatusNotFound)
}

func ErrPlayerNotFound() *AppError {
	return New(CodePlayerNotFound, "Player balance does not exist", http.StatusNotFound)
}

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidAmount, "Amount must be a positive decimal", http.StatusBadRequest)
}

func ErrInvalidTransactionType(t string) *AppError {
	return New(CodeInvalidTransactionType, fmt.Sprintf("Unknown transaction type %q", t), http.StatusBadRequest)
}

// ---- Request validation ----

func ErrMalformedRequest(reason string) *AppError {
	return New(CodeMalformedRequest, reason, http.StatusBadRequest)
}

// ---- Authentication (platform API only) ----

func ErrInvalidToken() *AppError {
	return New(CodeUnauthorized, "Invalid or expired token", http.StatusUnauthorized)
}

// ---- System & Infrastructure ----

// InternalError wraps an internal error. Callback handlers must convert this
// into a provider-shaped body rather than surfacing the HTTP status.
func InternalError(err error) *AppError {
	return Wrap(CodeInternalError, "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a MALFORMED_REQUEST validation error.
func Validation(message string) *AppError {
	return New(CodeMalformedRequest, message, http.StatusBadRequest)
}
