package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the caller lacks the required role
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")
)

// Pricing-specific errors

var (
	// ErrInvalidAssetPair indicates an inactive, unregistered or degenerate asset pair
	ErrInvalidAssetPair = errors.New("invalid asset pair")

	// ErrAmountTooSmall indicates an amount below the configured minimum
	ErrAmountTooSmall = errors.New("amount too small")

	// ErrAmountTooLarge indicates an amount above the caller's entitlement
	ErrAmountTooLarge = errors.New("amount too large")

	// ErrExpiryOutOfRange indicates an expiry outside the pair's configured bounds
	ErrExpiryOutOfRange = errors.New("expiry out of range")

	// ErrNoAggregator indicates no active oracle source is registered for the pair
	ErrNoAggregator = errors.New("no aggregator registered")

	// ErrOutOfSync indicates the oracle's last update exceeds the staleness threshold
	ErrOutOfSync = errors.New("oracle out of sync")
)

// Liquidity and settlement errors

var (
	// ErrInsufficientPoolLiquidity indicates a lock exceeds available balance across the pool route
	ErrInsufficientPoolLiquidity = errors.New("insufficient pool liquidity")

	// ErrInsufficientPoolFunds indicates a withdrawal exceeds the pool's available balance
	ErrInsufficientPoolFunds = errors.New("insufficient pool funds")

	// ErrInvalidState indicates an operation on an option or pool in an incompatible lifecycle state
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidID indicates an unknown option or pool identifier
	ErrInvalidID = errors.New("invalid id")

	// ErrInvalidDate indicates premium distribution requested for a non-settled day
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidAddress indicates a zero or malformed settlement recipient
	ErrInvalidAddress = errors.New("invalid address")
)

// DomainError wraps an error with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
