// Package errors provides the standardized error taxonomy for the menu relay.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeFetchTimeout           ErrorCode = "FETCH_TIMEOUT"
	ErrCodeValidationFailed       ErrorCode = "VALIDATION_FAILED"
	ErrCodePersistenceFailed      ErrorCode = "PERSISTENCE_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeGatewaySendFailed      ErrorCode = "GATEWAY_SEND_FAILED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// Error Constructors
// ==========================

// NewFetchTimeoutError creates a retryable timeout error for an unanswered
// menu query. The caller decides whether to retry; the bridge never does.
func NewFetchTimeoutError(peer string, timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeFetchTimeout,
		Message:   "No reply from menu peer within deadline",
		Details:   fmt.Sprintf("peer: %s, timeout: %s", peer, timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError creates a non-retryable input validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceError creates a retryable durable-write error. In-memory
// state stays authoritative until the next successful persist.
func NewPersistenceError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailed,
		Message:   "Durable subscription write failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGatewaySendFailedError creates a retryable chat gateway send error.
func NewGatewaySendFailedError(peer string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGatewaySendFailed,
		Message:   "Chat gateway send failed",
		Details:   fmt.Sprintf("peer: %s, error: %s", peer, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps anything unexpected caught at a boundary.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// Utility Functions
// ==========================

// CodeOf extracts the ErrorCode from err, or ErrCodeInternal for plain errors.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// DetailsOf returns the Details of a StandardError, or err.Error() otherwise.
func DetailsOf(err error) string {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		if stdErr.Details != "" {
			return stdErr.Details
		}
		return stdErr.Message
	}
	return err.Error()
}

// IsTimeout reports whether err is an unanswered-fetch timeout.
func IsTimeout(err error) bool {
	return CodeOf(err) == ErrCodeFetchTimeout
}

// IsValidation reports whether err is a rejected user input.
func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidationFailed
}

// IsRetryableError checks the retryable flag on a StandardError.
func IsRetryableError(err error) bool {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}
