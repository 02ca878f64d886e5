package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the storefront error kinds.
// Use errors.Is() to check against these.
var (
	ErrNotFound      = errors.New("not found")
	ErrStockExceeded = errors.New("stock exceeded")
	ErrValidation    = errors.New("validation failed")
	ErrRemoteFailure = errors.New("remote failure")
)

// APIError represents a structured error for API responses.
// Implements error interface and supports unwrapping.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"` // HTTP status, not serialized
	Err        error  `json:"-"` // Wrapped error, not serialized
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a 404 error for ids that do not resolve.
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: 404,
		Err:        ErrNotFound,
	}
}

// NewStockExceededError creates a 409 error when a requested quantity
// is more than the product has in stock.
func NewStockExceededError(productID int64, requested, available int) *APIError {
	return &APIError{
		Code:       "STOCK_EXCEEDED",
		Message:    fmt.Sprintf("product %d: requested %d, only %d in stock", productID, requested, available),
		StatusCode: 409,
		Err:        ErrStockExceeded,
	}
}

// NewValidationError creates a 400 error for invalid input.
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:       "VALIDATION_ERROR",
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		StatusCode: 400,
		Err:        ErrValidation,
	}
}

// NewRemoteError creates a 502 error for failed repository or persistence calls.
func NewRemoteError(service string, err error) *APIError {
	return &APIError{
		Code:       "REMOTE_FAILURE",
		Message:    fmt.Sprintf("%s request failed", service),
		StatusCode: 502,
		Err:        fmt.Errorf("%w: %v", ErrRemoteFailure, err),
	}
}

// NewInternalError creates a 500 error for unexpected failures.
func NewInternalError(err error) *APIError {
	return &APIError{
		Code:       "INTERNAL_ERROR",
		Message:    "an internal error occurred",
		StatusCode: 500,
		Err:        err,
	}
}

// IsRemoteFailure reports whether err is a failed remote call.
// Read paths use it to degrade to an empty result.
func IsRemoteFailure(err error) bool {
	return errors.Is(err, ErrRemoteFailure)
}
