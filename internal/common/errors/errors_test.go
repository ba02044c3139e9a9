// internal/common/errors/errors_test.go
package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassificationHelpers(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		permanent bool
	}{
		{name: "send failed is retryable", err: NewSendFailedError("tcp reset"), retryable: true, permanent: false},
		{name: "send timeout is retryable", err: NewSendTimeoutError("deadline"), retryable: true, permanent: false},
		{name: "throttle is retryable", err: NewSendThrottledError("bucket empty"), retryable: true, permanent: false},
		{name: "rejection is permanent", err: NewSendRejectedError("bad address"), retryable: false, permanent: true},
		{name: "preference lookup is retryable", err: NewPreferenceLookupError("pg down"), retryable: true, permanent: false},
		{name: "missing contact is permanent", err: NewContactNotFoundError("user-1", "email"), retryable: false, permanent: true},
		{name: "unknown errors default to retryable", err: stderrors.New("something odd"), retryable: true, permanent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
			assert.Equal(t, tt.permanent, IsPermanent(tt.err))
		})
	}
}

func TestAsStandard(t *testing.T) {
	stdErr := AsStandard(NewClaimLostError("rem-1"))
	assert.Equal(t, ErrCodeClaimLost, stdErr.Code)
	assert.Equal(t, "rem-1", stdErr.Details)

	// Anything else is normalized into a retryable send failure.
	wrapped := AsStandard(stderrors.New("dial tcp: i/o timeout"))
	assert.Equal(t, ErrCodeSendFailed, wrapped.Code)
	assert.True(t, wrapped.Retryable)
	assert.Contains(t, wrapped.Details, "i/o timeout")
}

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{code: ErrCodeRegistryInvalid, want: "configuration"},
		{code: ErrCodeUnknownTrigger, want: "configuration"},
		{code: ErrCodeSendFailed, want: "transient_send"},
		{code: ErrCodeSendThrottled, want: "transient_send"},
		{code: ErrCodeSendRejected, want: "permanent_send"},
		{code: ErrCodeClaimConflict, want: "claim"},
		{code: ErrCodeClaimLost, want: "claim"},
		{code: ErrCodePreferenceLookupFailed, want: "infrastructure"},
		{code: ErrCodeStoreUnavailable, want: "infrastructure"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, GetErrorCategory(tt.code), string(tt.code))
	}
}
