package model

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common provider failures.
var (
	ErrContentBlocked = errors.New("content blocked by safety filters")

	ErrRateLimit     = errors.New("rate limit exceeded")
	ErrQuotaExceeded = errors.New("quota exceeded")

	ErrInvalidModel = errors.New("invalid model")

	ErrAuthentication   = errors.New("authentication failed")
	ErrPermissionDenied = errors.New("permission denied")

	ErrNetwork            = errors.New("network error")
	ErrTimeout            = errors.New("request timeout")
	ErrServiceUnavailable = errors.New("service unavailable")

	ErrInvalidRequest = errors.New("invalid request")
)

// ErrorCode represents a provider error code.
type ErrorCode string

const (
	ErrorCodeContentBlocked ErrorCode = "content_blocked"
	ErrorCodeRateLimit      ErrorCode = "rate_limit"
	ErrorCodeQuota          ErrorCode = "quota_exceeded"
	ErrorCodeInvalidModel   ErrorCode = "invalid_model"
	ErrorCodeAuth           ErrorCode = "authentication_failed"
	ErrorCodePermission     ErrorCode = "permission_denied"
	ErrorCodeNetwork        ErrorCode = "network_error"
	ErrorCodeTimeout        ErrorCode = "timeout"
	ErrorCodeUnavailable    ErrorCode = "service_unavailable"
	ErrorCodeInvalidRequest ErrorCode = "invalid_request"
	ErrorCodeUnknown        ErrorCode = "unknown"
)

// ProviderError wraps provider failures with the context the fallback logic
// needs: Retryable failures (timeouts, 5xx, rate limits) are worth retrying
// against the same (provider, model) pair; non-retryable ones (auth, invalid
// model) are fatal for that pair and the caller should move down the chain.
type ProviderError struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Retryable  bool
	RetryAfter *time.Duration
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// Is maps the error code onto the package sentinels, so callers can test
// provider failures with errors.Is without consulting the code table.
func (e *ProviderError) Is(target error) bool {
	return sentinelFor(e.Code) == target
}

func sentinelFor(code ErrorCode) error {
	switch code {
	case ErrorCodeContentBlocked:
		return ErrContentBlocked
	case ErrorCodeRateLimit:
		return ErrRateLimit
	case ErrorCodeQuota:
		return ErrQuotaExceeded
	case ErrorCodeInvalidModel:
		return ErrInvalidModel
	case ErrorCodeAuth:
		return ErrAuthentication
	case ErrorCodePermission:
		return ErrPermissionDenied
	case ErrorCodeNetwork:
		return ErrNetwork
	case ErrorCodeTimeout:
		return ErrTimeout
	case ErrorCodeUnavailable:
		return ErrServiceUnavailable
	case ErrorCodeInvalidRequest:
		return ErrInvalidRequest
	default:
		return nil
	}
}

// IsRetryable returns true if the error is worth retrying on the same pair.
// Errors that are not ProviderError are treated as non-retryable: they are
// unexpected conditions, not classified transient failures.
func IsRetryable(err error) bool {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}
	return false
}

// GetRetryAfter returns the retry-after duration hint if present.
func GetRetryAfter(err error) *time.Duration {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.RetryAfter
	}
	return nil
}
