package channel

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Channel Errors
// ---------------------------------------------------------------------------

var (
	// Adapter errors
	ErrChannelNotConfigured   = errors.New("channel: channel not configured")
	ErrChannelNotEnabled      = errors.New("channel: channel not enabled")
	ErrChannelUnavailable     = errors.New("channel: channel temporarily unavailable")
	ErrChannelRequestFailed   = errors.New("channel: channel request failed")
	ErrChannelInvalidResponse = errors.New("channel: invalid channel response")
	ErrChannelAuthFailed      = errors.New("channel: channel authentication failed")
	ErrChannelTokenExpired    = errors.New("channel: channel token expired")

	// Guard errors
	ErrCircuitOpen     = errors.New("channel: circuit breaker is open")
	ErrRateLimited     = errors.New("channel: rate limit exceeded")
	ErrAdapterNotFound = errors.New("channel: no adapter registered for channel")
	ErrAdapterClosed   = errors.New("channel: adapter has been closed")

	// Payload errors
	ErrInvalidMenuPayload  = errors.New("channel: invalid menu payload")
	ErrInvalidOrderStatus  = errors.New("channel: invalid order status")
	ErrWebhookInvalidEvent = errors.New("channel: invalid webhook event")

	// Assignment errors
	ErrAssignmentInvalidTenantID = errors.New("channel: invalid tenant ID")
	ErrAssignmentInvalidChannel  = errors.New("channel: invalid channel code")
	ErrAssignmentDisabled        = errors.New("channel: channel assignment disabled")
	ErrAssignmentNotFound        = errors.New("channel: channel assignment not found")
	ErrAssignmentMissingAuth     = errors.New("channel: channel assignment missing credentials")
)

// ---------------------------------------------------------------------------
// Error Classification
// ---------------------------------------------------------------------------

// RetryableError marks an adapter failure as transient. The orchestrator
// retries such failures with backoff; everything wrapped in TerminalError
// fails the job immediately.
type RetryableError struct {
	Err error
}

// Error implements the error interface
func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Err)
}

// Unwrap returns the wrapped error
func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError wraps err as a transient failure
func NewRetryableError(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// TerminalError marks an adapter failure as non-retryable (auth failures,
// payloads rejected by the marketplace). Retrying cannot succeed.
type TerminalError struct {
	Err error
}

// Error implements the error interface
func (e *TerminalError) Error() string {
	return fmt.Sprintf("terminal: %v", e.Err)
}

// Unwrap returns the wrapped error
func (e *TerminalError) Unwrap() error {
	return e.Err
}

// NewTerminalError wraps err as a non-retryable failure
func NewTerminalError(err error) error {
	if err == nil {
		return nil
	}
	return &TerminalError{Err: err}
}

// IsRetryable reports whether err should consume the retry budget.
// Guard rejections (open circuit, rate limit) and channel availability
// errors are always retryable. Errors the adapter did not classify
// degrade to retryable so a flaky marketplace never permanently fails
// a job on the first attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var terminal *TerminalError
	if errors.As(err, &terminal) {
		return false
	}
	var retryable *RetryableError
	if errors.As(err, &retryable) {
		return true
	}
	switch {
	case errors.Is(err, ErrChannelAuthFailed),
		errors.Is(err, ErrChannelNotConfigured),
		errors.Is(err, ErrChannelNotEnabled),
		errors.Is(err, ErrInvalidMenuPayload),
		errors.Is(err, ErrInvalidOrderStatus):
		return false
	}
	// Unclassified errors degrade to retryable
	return true
}

// IsRateLimited reports whether err was caused by the rate limiter or a
// marketplace throttle response
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsCircuitOpen reports whether err was caused by an open circuit breaker
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}
