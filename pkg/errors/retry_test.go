package errors

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(maxAttempts int) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:       maxAttempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        10 * time.Millisecond,
		BackoffMultiplier: 2.0,
		RetriableFunc:     IsRetriable,
	}
}

func TestRetryPolicy_Execute(t *testing.T) {
	t.Run("success on first attempt", func(t *testing.T) {
		result := DefaultRetryPolicy().Execute(context.Background(), func(context.Context) error {
			return nil
		})

		if !result.Success {
			t.Error("Expected success")
		}
		if result.Attempts != 1 {
			t.Errorf("Expected 1 attempt, got %d", result.Attempts)
		}
		if result.LastError != nil {
			t.Errorf("Expected no error, got %v", result.LastError)
		}
	})

	t.Run("success after retries", func(t *testing.T) {
		calls := 0
		result := fastPolicy(3).Execute(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection reset by peer")
			}
			return nil
		})

		if !result.Success {
			t.Error("Expected success after retries")
		}
		if result.Attempts != 3 {
			t.Errorf("Expected 3 attempts, got %d", result.Attempts)
		}
	})

	t.Run("failure after max attempts", func(t *testing.T) {
		sinkErr := errors.New("persistent error")
		result := fastPolicy(2).Execute(context.Background(), func(context.Context) error {
			return sinkErr
		})

		if result.Success {
			t.Error("Expected failure")
		}
		if result.Attempts != 3 { // first call + 2 retries
			t.Errorf("Expected 3 attempts, got %d", result.Attempts)
		}
		if result.LastError != sinkErr {
			t.Errorf("Expected error %v, got %v", sinkErr, result.LastError)
		}
	})

	t.Run("rejected batch is not retried", func(t *testing.T) {
		result := fastPolicy(5).Execute(context.Background(), func(context.Context) error {
			return &StatusError{StatusCode: 400, Body: "bad batch"}
		})

		if result.Success {
			t.Error("Expected failure")
		}
		if result.Attempts != 1 {
			t.Errorf("Expected 1 attempt for a fatal error, got %d", result.Attempts)
		}
	})

	t.Run("context cancellation stops retry", func(t *testing.T) {
		policy := &RetryPolicy{
			MaxAttempts:       10,
			InitialBackoff:    50 * time.Millisecond,
			MaxBackoff:        time.Second,
			BackoffMultiplier: 2.0,
			RetriableFunc:     IsRetriable,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		result := policy.Execute(ctx, func(context.Context) error {
			return errors.New("persistent error")
		})

		if result.Success {
			t.Error("Expected failure due to context cancellation")
		}
		if result.LastError != context.DeadlineExceeded {
			t.Errorf("Expected context deadline exceeded, got %v", result.LastError)
		}
	})

	t.Run("no retry policy", func(t *testing.T) {
		result := NoRetryPolicy().Execute(context.Background(), func(context.Context) error {
			return errors.New("test error")
		})

		if result.Success {
			t.Error("Expected failure")
		}
		if result.Attempts != 1 {
			t.Errorf("Expected 1 attempt, got %d", result.Attempts)
		}
	})
}

func TestRetryPolicy_ExecuteWithCallback(t *testing.T) {
	var attempts []int
	var lastBackoff time.Duration = -1

	result := fastPolicy(3).ExecuteWithCallback(
		context.Background(),
		func(context.Context) error {
			return errors.New("test error")
		},
		func(attempt int, err error, nextBackoff time.Duration) {
			attempts = append(attempts, attempt)
			lastBackoff = nextBackoff
		},
	)

	if result.Success {
		t.Error("Expected failure")
	}
	if len(attempts) != 4 {
		t.Fatalf("Expected 4 callbacks, got %d", len(attempts))
	}
	for i, a := range attempts {
		if a != i+1 {
			t.Errorf("callback %d reported attempt %d", i, a)
		}
	}
	if lastBackoff != 0 {
		t.Errorf("Expected no backoff after the final attempt, got %v", lastBackoff)
	}
}

func TestRetryPolicy_calculateBackoff(t *testing.T) {
	policy := &RetryPolicy{
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{10, 10 * time.Second},
	}

	for _, tt := range tests {
		if result := policy.calculateBackoff(tt.attempt); result != tt.expected {
			t.Errorf("calculateBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
		}
	}
}

func TestRetryPolicy_calculateBackoffWithJitter(t *testing.T) {
	policy := &RetryPolicy{
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.5,
	}

	for i := 0; i < 20; i++ {
		backoff := policy.calculateBackoff(1)
		if backoff < 100*time.Millisecond || backoff > 300*time.Millisecond {
			t.Fatalf("backoff %v outside the jitter band", backoff)
		}
	}
}

func TestRetryPolicy_NextBackoff(t *testing.T) {
	policy := &RetryPolicy{
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2.0,
	}

	if backoff := policy.NextBackoff(0); backoff != 100*time.Millisecond {
		t.Errorf("NextBackoff(0) = %v, want %v", backoff, 100*time.Millisecond)
	}
	if backoff := policy.NextBackoff(1); backoff != 200*time.Millisecond {
		t.Errorf("NextBackoff(1) = %v, want %v", backoff, 200*time.Millisecond)
	}
}
