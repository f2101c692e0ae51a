package payments

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPlan          = errors.New("unknown plan or billing cycle")
	ErrUserNotFound         = errors.New("user not found")
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrDuplicateTransaction = errors.New("transaction id already recorded")
	ErrSignatureInvalid     = errors.New("invalid webhook signature")
	ErrUnsupportedEvent     = errors.New("unsupported webhook event type")
)

// ProviderError wraps a failed call to a payment provider. Retryable marks
// transport-level failures (timeouts, connection errors, 5xx) that are safe to
// retry; 4xx business rejections are permanent and must not be retried.
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int // 0 for transport failures
	Retryable  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s failed: status=%d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a provider failure worth retrying.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// IsProviderError reports whether err originated from a provider call.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
