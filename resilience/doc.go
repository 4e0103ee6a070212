// Package resilience provides the bounded retry policy used by the SnackBase
// client: exponential backoff with a cap, optional jitter, a per-error delay
// floor (for server-provided retry-after hints), and an injectable sleep so
// callers can run the policy in simulated time.
//
//	cfg := resilience.DefaultRetryConfig()
//	cfg.RetryIf = errors.IsRetryable
//	resp, err := resilience.Retry(ctx, cfg, func() (*Response, error) {
//	    return send(ctx, req)
//	})
package resilience
