// Package retry provides exponential backoff for transient failures.
//
// Config describes a schedule: MaxAttempts counts the first try, Delay(n)
// is the wait after the n-th failed attempt, growing by Multiplier up to
// MaxDelay with optional jitter of up to 25%.
//
// Do runs a function synchronously on that schedule:
//
//	err := retry.Do(ctx, retry.Startup(), func() error {
//	    return conn.Connect()
//	})
//
// Callers that schedule their own retries, such as the upload pipeline's
// retry queue, use Config.Delay directly and never block.
//
// Wrap an error with NonRetryable to stop Do immediately; IsNonRetryable
// reports the marker anywhere in the chain.
package retry
