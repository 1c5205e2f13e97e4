// Package retry provides backoff and retry logic for transient Graph API
// failures.
//
// Retrying is opt-in: the publish path treats every failure as fatal unless
// retry.enabled is set, and even then only transport errors and 429/5xx
// responses are retried (see errors.IsRetryable). Retrying a create-container
// call can leave an orphaned container on the platform, which is harmless
// because unpublished containers expire.
//
//	cfg := &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     retry.DefaultExponentialBackoff(),
//		RetryIf:     errors.IsRetryable,
//	}
//	err := retry.Do(ctx, func() error {
//		return exchange(ctx, req)
//	}, cfg)
package retry
