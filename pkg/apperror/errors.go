package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError for retry and response decisions.
type Kind string

const (
	KindValidation          Kind = "VALIDATION"
	KindNotFound            Kind = "NOT_FOUND"
	KindBusinessConflict    Kind = "BUSINESS_CONFLICT"
	KindConcurrencyConflict Kind = "CONCURRENCY_CONFLICT"
	KindAuth                Kind = "AUTH"
	KindRateLimit           Kind = "RATE_LIMIT"
	KindInfrastructure      Kind = "INFRASTRUCTURE"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Kind       Kind   `json:"-"`
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
func New(code string, kind Kind, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Kind:       kind,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, kind Kind, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Kind:       kind,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// KindOf returns the Kind of the first AppError in err's chain, or
// KindInfrastructure for anything else.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInfrastructure
}

// ---- Wallet & Payment (PAY) ----

func ErrInsufficientBalance() *AppError {
	return New("PAY_001", KindBusinessConflict, "Insufficient balance in wallet", http.StatusConflict)
}

func ErrInvalidAmount() *AppError {
	return New("PAY_002", KindValidation, "Invalid amount", http.StatusBadRequest)
}

func ErrIdempotencyConflict() *AppError {
	return New("PAY_003", KindBusinessConflict, "Idempotency key already used by another request", http.StatusConflict)
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_004", KindNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrPaymentFailed(err error) *AppError {
	return Wrap("PAY_005", KindConcurrencyConflict, "Payment could not be completed, please retry", http.StatusServiceUnavailable, err)
}

func ErrChargeFailed(err error) *AppError {
	return Wrap("PAY_006", KindConcurrencyConflict, "Charge could not be completed, please retry", http.StatusServiceUnavailable, err)
}

func ErrAdjustmentFailed(err error) *AppError {
	return Wrap("PAY_007", KindConcurrencyConflict, "Adjustment could not be completed, please retry", http.StatusServiceUnavailable, err)
}

func ErrRateUnavailable(source, target string) *AppError {
	return New("PAY_008", KindValidation, fmt.Sprintf("No exchange rate configured for %s to %s", source, target), http.StatusUnprocessableEntity)
}

// Validation returns a PAY_002-style validation error.
func Validation(message string) *AppError {
	return New("PAY_002", KindValidation, message, http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_003", KindAuth, "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("AUTH_005", KindAuth, "Insufficient privileges", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", KindRateLimit, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", KindInfrastructure, "Internal server error", http.StatusInternalServerError, err)
}

func ErrWalletProvisioning(err error) *AppError {
	return Wrap("SYS_002", KindInfrastructure, "Wallet provisioning failed", http.StatusInternalServerError, err)
}
