package helpers

import (
	"errors"
	"fmt"
	"time"

	"tradewatch/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

// TradewatchError is the base error carrying a message and an optional cause.
type TradewatchError struct {
	Message string
	Cause   error
}

func (e *TradewatchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TradewatchError) Unwrap() error {
	return e.Cause
}

// Distinct error types for the request path and poll loops.
//
// NotFoundError: unknown subscription/alert/rule id.
// UnauthorizedError: the caller does not own the target entity.
// ValidationError: malformed parameters, rejected before any mutation.
// ExternalServiceError: market-data store or exchange call failed.
type NotFoundError struct{ TradewatchError }
type UnauthorizedError struct{ TradewatchError }
type ValidationError struct{ TradewatchError }
type ExternalServiceError struct{ TradewatchError }

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func NewNotFound(format string, args ...interface{}) error {
	return &NotFoundError{TradewatchError{Message: fmt.Sprintf(format, args...)}}
}

func NewUnauthorized(format string, args ...interface{}) error {
	return &UnauthorizedError{TradewatchError{Message: fmt.Sprintf(format, args...)}}
}

func NewValidation(format string, args ...interface{}) error {
	return &ValidationError{TradewatchError{Message: fmt.Sprintf(format, args...)}}
}

func NewExternal(message string, cause error) error {
	return &ExternalServiceError{TradewatchError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Classification helpers
// -----------------------------------------------------------------------------

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsUnauthorized(err error) bool {
	var e *UnauthorizedError
	return errors.As(err, &e)
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsExternal(err error) bool {
	var e *ExternalServiceError
	return errors.As(err, &e)
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts fn up to maxRetries times with exponential
// backoff, logging each failed attempt. Used for startup-time external
// connections (database, redis), never inside poll loops.
func RetryWithBackoff(log *logger.Logger, operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		log.Warning("attempt %d/%d failed for %s: %v, retrying in %v", attempt+1, maxRetries, operation, lastErr, delay)
		time.Sleep(delay)
	}

	return NewExternal(fmt.Sprintf("%s failed after %d attempts", operation, maxRetries), lastErr)
}
