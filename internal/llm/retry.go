package llm

import (
	"context"

	"github.com/nexischat/nexis/internal/retrypolicy"
)

// WithRetry runs op under the shared retry policy, classifying retriable
// ProviderErrors via IsRetriable. On exhaustion it wraps the last error in
// RetryExhausted (per spec §4.2); non-retriable errors and non-exhaustion
// surface directly.
func WithRetry(ctx context.Context, policy retrypolicy.Policy, op func(ctx context.Context) error) error {
	attempts := 0
	shouldRetry := func(err error) bool {
		pe, ok := err.(*ProviderError)
		return ok && pe.IsRetriable()
	}

	wrapped := func(ctx context.Context) error {
		attempts++
		return op(ctx)
	}

	err := retrypolicy.With(ctx, policy, shouldRetry, wrapped)
	if err == nil {
		return nil
	}
	if pe, ok := err.(*ProviderError); ok && pe.IsRetriable() && attempts > policy.MaxRetries {
		return NewRetryExhaustedError(attempts, err)
	}
	return err
}
