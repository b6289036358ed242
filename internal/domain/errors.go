package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateEvent     = errors.New("webhook event already processed")
	ErrDuplicateReference = errors.New("transaction reference already settled")
	ErrSelfTransfer       = errors.New("cannot transfer to your own account")
)

// ValidationError covers missing or malformed request input. Safe to return
// to the caller verbatim.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// AuthenticationError is a signature mismatch. The message never includes the
// expected signature.
type AuthenticationError struct {
	Subject string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s signature verification failed", e.Subject)
}

type NotFoundError struct {
	Entity string
	Ref    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Ref)
}

type InsufficientFundsError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %s, requested %s",
		e.Available.String(), e.Requested.String())
}

// ConfigError indicates a missing operator-side mapping, e.g. a gateway plan
// id that was never configured. These must fail loudly, never default.
type ConfigError struct {
	Key string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing configuration: %s", e.Key)
}

// GatewayError wraps a non-2xx response from the payment gateway.
type GatewayError struct {
	StatusCode  int
	Description string
}

func (e *GatewayError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("gateway error (%d): %s", e.StatusCode, e.Description)
	}
	return fmt.Sprintf("gateway error (%d)", e.StatusCode)
}

type RateLimitError struct {
	Pending int
	Limit   int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many pending withdrawal requests (%d of %d allowed)", e.Pending, e.Limit)
}
