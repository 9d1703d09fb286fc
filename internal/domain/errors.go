package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness conflict.
	ErrAlreadyExists = errors.New("already exists")
	// ErrValidation marks malformed input rejected before any mutation.
	ErrValidation = errors.New("validation failed")
	// ErrOutOfStock marks a requested quantity above stock-on-hand.
	ErrOutOfStock = errors.New("out of stock")
	// ErrOwnership marks a cart that does not belong to the caller.
	ErrOwnership = errors.New("cart does not belong to user")
	// ErrNotAuthenticated marks a missing or invalid credential.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSyncFailed marks a bulk cart sync that failed after validation.
	ErrSyncFailed = errors.New("cart sync failed")
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrForbidden marks an authenticated caller lacking the required role.
	ErrForbidden = errors.New("forbidden")
)

// StockError describes an OutOfStock rejection.
type StockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *StockError) Error() string {
	if e.ProductName != "" {
		return fmt.Sprintf("product %q is out of stock", e.ProductName)
	}
	if e.ProductID != "" {
		return fmt.Sprintf("product %s is out of stock", e.ProductID)
	}
	return "product is out of stock"
}

func (e *StockError) Unwrap() error { return ErrOutOfStock }

// ValidationError describes a rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
