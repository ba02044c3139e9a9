// Package errors provides the standardized error taxonomy for the reminder
// engine: configuration errors that ignore a trigger, transient send errors
// that consume a retry, permanent provider rejections that fail a reminder
// outright, and claim conflicts that are not errors at all.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Configuration errors: the trigger is ignored, never fatal.
	ErrCodeAnchorMissing   ErrorCode = "ANCHOR_MISSING"
	ErrCodeUnknownTrigger  ErrorCode = "UNKNOWN_TRIGGER_TYPE"
	ErrCodeRegistryInvalid ErrorCode = "RULE_REGISTRY_INVALID"

	// Send errors.
	ErrCodeSendFailed    ErrorCode = "SEND_FAILED"    // transient: network, provider 5xx
	ErrCodeSendTimeout   ErrorCode = "SEND_TIMEOUT"   // transient: provider call exceeded hard timeout
	ErrCodeSendRejected  ErrorCode = "SEND_REJECTED"  // permanent: invalid recipient, unsubscribed
	ErrCodeSendThrottled ErrorCode = "SEND_THROTTLED" // transient: local rate limiter gave up

	// Claim lifecycle.
	ErrCodeClaimConflict ErrorCode = "CLAIM_CONFLICT" // lost CAS race, silent skip
	ErrCodeClaimLost     ErrorCode = "CLAIM_LOST"     // claim token no longer matches the row

	// Infrastructure.
	ErrCodeStoreUnavailable       ErrorCode = "STORE_UNAVAILABLE"
	ErrCodePreferenceLookupFailed ErrorCode = "PREFERENCE_LOOKUP_FAILED"
	ErrCodeContactNotFound        ErrorCode = "CONTACT_NOT_FOUND"
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
// 2. Error Constructors
// ==========================

// NewRegistryInvalidError marks a rule registry file that failed schema
// validation.
func NewRegistryInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRegistryInvalid,
		Message:   "Reminder rule registry failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSendFailedError creates a retryable send error (network trouble,
// provider 5xx and friends).
func NewSendFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSendFailed,
		Message:   "Channel send failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSendTimeoutError creates a retryable timeout error. A provider call
// that exceeds the hard timeout is a failure, never a hang.
func NewSendTimeoutError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSendTimeout,
		Message:   "Channel send timed out",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSendRejectedError creates a permanent send error. The executor fails
// the reminder directly without consuming retries.
func NewSendRejectedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSendRejected,
		Message:   "Provider rejected the message",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSendThrottledError creates a retryable throttle error from the local
// per-channel rate limiter.
func NewSendThrottledError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSendThrottled,
		Message:   "Channel send throttled",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewClaimLostError marks a transition whose claim token no longer matched
// the stored row (stale-claim recovery or a concurrent cancel won).
func NewClaimLostError(reminderID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeClaimLost,
		Message:   "Claim token no longer matches reminder",
		Details:   reminderID,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreUnavailableError wraps infrastructure failures against the store.
func NewStoreUnavailableError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreUnavailable,
		Message:   "Reminder store unavailable",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPreferenceLookupError wraps a failed preference read. Retryable: the
// executor defers the reminder instead of consuming an attempt.
func NewPreferenceLookupError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePreferenceLookupFailed,
		Message:   "Preference lookup failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewContactNotFoundError marks a user with no address for the channel.
func NewContactNotFoundError(userID, channel string) *StandardError {
	return &StandardError{
		Code:      ErrCodeContactNotFound,
		Message:   "No contact address for channel",
		Details:   fmt.Sprintf("user=%s channel=%s", userID, channel),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Classification Helpers
// ==========================

// AsStandard normalizes any error to a StandardError. Unknown errors are
// classified as retryable send failures.
func AsStandard(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeSendFailed,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// IsRetryable reports whether err should consume a retry attempt rather
// than fail the reminder outright.
func IsRetryable(err error) bool {
	return AsStandard(err).Retryable
}

// IsPermanent reports whether the provider distinguished the failure as
// non-retryable (invalid recipient, unsubscribed...).
func IsPermanent(err error) bool {
	return !AsStandard(err).Retryable
}

// GetErrorCategory groups codes for metrics labels.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeAnchorMissing, ErrCodeUnknownTrigger, ErrCodeRegistryInvalid:
		return "configuration"
	case ErrCodeSendFailed, ErrCodeSendTimeout, ErrCodeSendThrottled:
		return "transient_send"
	case ErrCodeSendRejected:
		return "permanent_send"
	case ErrCodeClaimConflict, ErrCodeClaimLost:
		return "claim"
	default:
		return "infrastructure"
	}
}
