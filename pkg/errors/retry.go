package errors

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy defines how a failed batch insert is retried
type RetryPolicy struct {
	// MaxAttempts is the number of retries after the first call (0 = no retries, -1 = infinite)
	MaxAttempts int
	// InitialBackoff is the initial backoff duration
	InitialBackoff time.Duration
	// MaxBackoff is the maximum backoff duration
	MaxBackoff time.Duration
	// BackoffMultiplier is the multiplier for exponential backoff (default: 2.0)
	BackoffMultiplier float64
	// Jitter adds randomness to backoff (0.0-1.0)
	Jitter float64
	// RetriableFunc determines if an error is retriable (optional)
	RetriableFunc func(error) bool
}

// DefaultRetryPolicy returns the policy used for remote sinks
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
		RetriableFunc:     IsRetriable,
	}
}

// NoRetryPolicy returns a policy that never retries
func NoRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: 0,
	}
}

// RetryableOperation is a function that can be retried
type RetryableOperation func(ctx context.Context) error

// RetryResult contains the result of a retry operation
type RetryResult struct {
	Success      bool
	Attempts     int
	LastError    error
	TotalBackoff time.Duration
}

// RetryCallback is called after every failed attempt. nextBackoff is zero when
// no further attempt follows.
type RetryCallback func(attempt int, err error, nextBackoff time.Duration)

// Execute executes an operation with retry logic
func (rp *RetryPolicy) Execute(ctx context.Context, operation RetryableOperation) *RetryResult {
	return rp.ExecuteWithCallback(ctx, operation, nil)
}

// ExecuteWithCallback executes an operation with retry and calls callback on each failure
func (rp *RetryPolicy) ExecuteWithCallback(
	ctx context.Context,
	operation RetryableOperation,
	callback RetryCallback,
) *RetryResult {
	result := &RetryResult{}

	for attempt := 0; rp.MaxAttempts < 0 || attempt <= rp.MaxAttempts; attempt++ {
		result.Attempts++

		err := operation(ctx)
		if err == nil {
			result.Success = true
			return result
		}
		result.LastError = err

		last := rp.MaxAttempts >= 0 && attempt >= rp.MaxAttempts
		if last || (rp.RetriableFunc != nil && !rp.RetriableFunc(err)) {
			if callback != nil {
				callback(attempt+1, err, 0)
			}
			return result
		}

		backoff := rp.calculateBackoff(attempt)
		result.TotalBackoff += backoff

		if callback != nil {
			callback(attempt+1, err, backoff)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			result.LastError = ctx.Err()
			return result
		case <-timer.C:
		}
	}

	return result
}

// calculateBackoff calculates the backoff duration for a given attempt
func (rp *RetryPolicy) calculateBackoff(attempt int) time.Duration {
	multiplier := rp.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	backoff := float64(rp.InitialBackoff) * math.Pow(multiplier, float64(attempt))

	if rp.MaxBackoff > 0 && backoff > float64(rp.MaxBackoff) {
		backoff = float64(rp.MaxBackoff)
	}

	if rp.Jitter > 0 {
		jitterAmount := backoff * rp.Jitter
		backoff += (rand.Float64()*2 - 1) * jitterAmount
		if backoff < 0 {
			backoff = float64(rp.InitialBackoff)
		}
	}

	return time.Duration(backoff)
}

// NextBackoff returns the backoff duration for the next attempt
func (rp *RetryPolicy) NextBackoff(attempt int) time.Duration {
	return rp.calculateBackoff(attempt)
}
