package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "without wrapped error",
			err: &APIError{
				Code:    "TEST_ERROR",
				Message: "something went wrong",
			},
			want: "TEST_ERROR: something went wrong",
		},
		{
			name: "with wrapped error",
			err: &APIError{
				Code:    "TEST_ERROR",
				Message: "something went wrong",
				Err:     errors.New("underlying cause"),
			},
			want: "TEST_ERROR: something went wrong (underlying cause)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &APIError{
		Code:    "TEST",
		Message: "test",
		Err:     underlying,
	}

	if err.Unwrap() != underlying {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), underlying)
	}

	errNoWrap := &APIError{Code: "TEST", Message: "test"}
	if errNoWrap.Unwrap() != nil {
		t.Error("Unwrap() should return nil when no wrapped error")
	}
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("product")

	if err.Code != "NOT_FOUND" {
		t.Errorf("Code = %q, want %q", err.Code, "NOT_FOUND")
	}
	if err.Message != "product not found" {
		t.Errorf("Message = %q, want %q", err.Message, "product not found")
	}
	if err.StatusCode != 404 {
		t.Errorf("StatusCode = %d, want %d", err.StatusCode, 404)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("error should wrap ErrNotFound sentinel")
	}
}

func TestNewStockExceededError(t *testing.T) {
	err := NewStockExceededError(7, 4, 3)

	if err.Code != "STOCK_EXCEEDED" {
		t.Errorf("Code = %q, want %q", err.Code, "STOCK_EXCEEDED")
	}
	if err.Message != "product 7: requested 4, only 3 in stock" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.StatusCode != 409 {
		t.Errorf("StatusCode = %d, want %d", err.StatusCode, 409)
	}
	if !errors.Is(err, ErrStockExceeded) {
		t.Error("error should wrap ErrStockExceeded sentinel")
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("quantity", "must be at least 1")

	if err.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want %q", err.Code, "VALIDATION_ERROR")
	}
	if err.Message != "invalid quantity: must be at least 1" {
		t.Errorf("Message = %q, want %q", err.Message, "invalid quantity: must be at least 1")
	}
	if err.StatusCode != 400 {
		t.Errorf("StatusCode = %d, want %d", err.StatusCode, 400)
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("error should wrap ErrValidation sentinel")
	}
}

func TestNewRemoteError(t *testing.T) {
	underlying := errors.New("connection refused")
	err := NewRemoteError("product store", underlying)

	if err.Code != "REMOTE_FAILURE" {
		t.Errorf("Code = %q, want %q", err.Code, "REMOTE_FAILURE")
	}
	if err.Message != "product store request failed" {
		t.Errorf("Message = %q, want %q", err.Message, "product store request failed")
	}
	if err.StatusCode != 502 {
		t.Errorf("StatusCode = %d, want %d", err.StatusCode, 502)
	}
	if !errors.Is(err, ErrRemoteFailure) {
		t.Error("error should wrap ErrRemoteFailure sentinel")
	}
	if !IsRemoteFailure(fmt.Errorf("loading: %w", err)) {
		t.Error("IsRemoteFailure should see through wrapping")
	}
}

func TestNewInternalError(t *testing.T) {
	underlying := errors.New("nil map write")
	err := NewInternalError(underlying)

	if err.Code != "INTERNAL_ERROR" {
		t.Errorf("Code = %q, want %q", err.Code, "INTERNAL_ERROR")
	}
	if err.StatusCode != 500 {
		t.Errorf("StatusCode = %d, want %d", err.StatusCode, 500)
	}
	if err.Err != underlying {
		t.Error("wrapped error should be preserved")
	}
}

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		sentinel error
	}{
		{"NotFound", NewNotFoundError("x"), ErrNotFound},
		{"StockExceeded", NewStockExceededError(1, 2, 1), ErrStockExceeded},
		{"Validation", NewValidationError("x", "y"), ErrValidation},
		{"Remote", NewRemoteError("x", nil), ErrRemoteFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%T, %v) = false, want true", tt.err, tt.sentinel)
			}
		})
	}
}

func TestAPIErrorImplementsError(t *testing.T) {
	var err error = &APIError{Code: "TEST", Message: "test"}
	_ = err.Error()

	wrapped := fmt.Errorf("outer: %w", err)
	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) {
		t.Error("errors.As should find *APIError in wrapped error")
	}
}
