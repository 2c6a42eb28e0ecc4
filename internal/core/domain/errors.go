package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input,
	// e.g. an empty question. Rejected before any network call.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBusy indicates a question is already in flight for the session.
	// At most one outstanding query is permitted per session.
	ErrBusy = errors.New("question already in flight")

	// ErrNotReady indicates the document is not yet AI-ready.
	// Question submission is gated on processing completion.
	ErrNotReady = errors.New("document not ready for questions")

	// ErrSessionInvalid indicates there is no signed-in user.
	// No subsystem may start without a stable user identifier.
	ErrSessionInvalid = errors.New("session invalid: no signed-in user")

	// ErrSessionClosed indicates the session has been torn down.
	ErrSessionClosed = errors.New("session closed")
)

// NetworkError indicates a transport-level failure.
// Retryable by caller policy.
type NetworkError struct {
	// Op names the operation that failed (e.g. "ask", "poll status").
	Op string

	// Err is the underlying transport error.
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServiceError indicates the backend returned a non-success response.
// Generally not auto-retried.
type ServiceError struct {
	// Op names the operation that failed.
	Op string

	// StatusCode is the HTTP status returned by the backend.
	StatusCode int

	// Message is the backend-provided detail, if any.
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("service error during %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("service error during %s: status %d", e.Op, e.StatusCode)
}

// TimeoutError indicates no response arrived within the bounded interval.
// Treated as retryable.
type TimeoutError struct {
	// Op names the operation that timed out.
	Op string

	// Timeout is the bound that was exceeded.
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Timeout)
}

// TerminalProcessingError indicates the backend processing job itself failed.
// Not retryable; the document must be re-uploaded.
type TerminalProcessingError struct {
	// DocumentID identifies the failed job's document.
	DocumentID string

	// Reason is the error reported by the processing job.
	Reason string
}

func (e *TerminalProcessingError) Error() string {
	return fmt.Sprintf("processing failed for document %s: %s", e.DocumentID, e.Reason)
}

// IsNetwork returns true if the error is a transport failure.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsService returns true if the error is a backend failure response.
func IsService(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

// IsTimeout returns true if the error is a bounded-interval timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsTerminalProcessing returns true if the processing job failed terminally.
func IsTerminalProcessing(err error) bool {
	var pe *TerminalProcessingError
	return errors.As(err, &pe)
}

// IsRetryable reports whether the caller may reasonably retry the
// operation. Network and timeout failures are retryable; service
// failures and terminal processing failures are not.
func IsRetryable(err error) bool {
	return IsNetwork(err) || IsTimeout(err)
}
