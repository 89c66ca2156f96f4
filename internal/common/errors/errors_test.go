// internal/common/errors/errors_test.go
package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name      string
		err       *StandardError
		code      ErrorCode
		retryable bool
	}{
		{
			name:      "fetch timeout",
			err:       NewFetchTimeoutError("canteen-peer", 3*time.Second),
			code:      ErrCodeFetchTimeout,
			retryable: true,
		},
		{
			name:      "validation",
			err:       NewValidationError("bad time"),
			code:      ErrCodeValidationFailed,
			retryable: false,
		},
		{
			name:      "persistence",
			err:       NewPersistenceError("write", assert.AnError),
			code:      ErrCodePersistenceFailed,
			retryable: true,
		},
		{
			name:      "notification send",
			err:       NewNotificationSendFailedError("ses", assert.AnError),
			code:      ErrCodeNotificationSendFailed,
			retryable: true,
		},
		{
			name:      "gateway send",
			err:       NewGatewaySendFailedError("canteen-peer", assert.AnError),
			code:      ErrCodeGatewaySendFailed,
			retryable: true,
		},
		{
			name:      "internal",
			err:       NewInternalError(assert.AnError),
			code:      ErrCodeInternal,
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, CodeOf(tt.err))
			assert.Equal(t, tt.retryable, IsRetryableError(tt.err))
			assert.Contains(t, tt.err.Error(), string(tt.code))
			assert.False(t, tt.err.Timestamp.IsZero())
		})
	}
}

func TestCodeOf_WrappedError(t *testing.T) {
	wrapped := fmt.Errorf("loading store: %w", NewValidationError("bad file"))
	assert.Equal(t, ErrCodeValidationFailed, CodeOf(wrapped))
	assert.True(t, IsValidation(wrapped))
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, CodeOf(assert.AnError))
	assert.False(t, IsRetryableError(assert.AnError))
}

func TestDetailsOf(t *testing.T) {
	assert.Equal(t, "bad time", DetailsOf(NewValidationError("bad time")))
	assert.Equal(t, assert.AnError.Error(), DetailsOf(assert.AnError))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(NewFetchTimeoutError("canteen-peer", time.Second)))
	assert.False(t, IsTimeout(NewValidationError("nope")))
}
