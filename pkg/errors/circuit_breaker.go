package errors

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	// StateClosed - batches flow to the sink normally
	StateClosed CircuitState = iota
	// StateOpen - batches fail immediately without reaching the sink
	StateOpen
	// StateHalfOpen - probing whether the sink has recovered
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures a circuit breaker
type CircuitBreakerConfig struct {
	// Name identifies the protected sink
	Name string
	// FailureThreshold is the number of consecutive failures before opening
	FailureThreshold uint32
	// SuccessThreshold is the number of half-open successes before closing
	SuccessThreshold uint32
	// Timeout is how long to stay open before probing
	Timeout time.Duration
	// MaxConcurrentRequests allowed while half-open
	MaxConcurrentRequests uint32
	// OnStateChange is called asynchronously when the state changes (optional)
	OnStateChange func(name string, from, to CircuitState)
}

// DefaultCircuitBreakerConfig returns sensible defaults
func DefaultCircuitBreakerConfig(name string) *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:                  name,
		FailureThreshold:      5,
		SuccessThreshold:      2,
		Timeout:               60 * time.Second,
		MaxConcurrentRequests: 1,
	}
}

// ErrCircuitOpen is returned when the circuit is open
type ErrCircuitOpen struct {
	CircuitName string
	OpenedAt    time.Time
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker '%s' is open (opened at %s)", e.CircuitName, e.OpenedAt.Format(time.RFC3339))
}

// ErrTooManyRequests is returned when too many probes run while half-open
type ErrTooManyRequests struct {
	CircuitName string
}

func (e *ErrTooManyRequests) Error() string {
	return fmt.Sprintf("circuit breaker '%s' has too many concurrent requests in half-open state", e.CircuitName)
}

// CircuitBreakerStats is a snapshot of a breaker's counters
type CircuitBreakerStats struct {
	Name            string
	State           CircuitState
	FailureCount    uint32
	SuccessCount    uint32
	TotalRequests   uint64
	TotalFailures   uint64
	TotalSuccesses  uint64
	TotalRejected   uint64
	LastStateChange time.Time
	LastFailureTime time.Time
}

// CircuitBreaker stops sending batches to a sink that keeps failing
type CircuitBreaker struct {
	config *CircuitBreakerConfig

	mu       sync.Mutex
	stats    CircuitBreakerStats
	inFlight uint32
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxConcurrentRequests == 0 {
		config.MaxConcurrentRequests = 1
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 1
	}
	return &CircuitBreaker{
		config: config,
		stats: CircuitBreakerStats{
			Name:            config.Name,
			State:           StateClosed,
			LastStateChange: time.Now(),
		},
	}
}

// Execute runs operation unless the circuit rejects it. A rejected call never
// reaches the operation.
func (cb *CircuitBreaker) Execute(ctx context.Context, operation func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cb.admit(); err != nil {
		return err
	}

	err := operation()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.stats.TotalRequests++

	switch cb.stats.State {
	case StateClosed:
		return nil

	case StateOpen:
		if time.Since(cb.stats.LastFailureTime) > cb.config.Timeout {
			cb.transition(StateHalfOpen)
			cb.inFlight = 1
			return nil
		}
		cb.stats.TotalRejected++
		return &ErrCircuitOpen{CircuitName: cb.config.Name, OpenedAt: cb.stats.LastFailureTime}

	case StateHalfOpen:
		if cb.inFlight >= cb.config.MaxConcurrentRequests {
			cb.stats.TotalRejected++
			return &ErrTooManyRequests{CircuitName: cb.config.Name}
		}
		cb.inFlight++
		return nil
	}
	return fmt.Errorf("unknown circuit state: %d", cb.stats.State)
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.stats.TotalSuccesses++
		switch cb.stats.State {
		case StateClosed:
			cb.stats.FailureCount = 0
		case StateHalfOpen:
			cb.stats.SuccessCount++
			if cb.inFlight > 0 {
				cb.inFlight--
			}
			if cb.stats.SuccessCount >= cb.config.SuccessThreshold {
				cb.transition(StateClosed)
			}
		}
		return
	}

	cb.stats.TotalFailures++
	cb.stats.LastFailureTime = time.Now()
	switch cb.stats.State {
	case StateClosed:
		cb.stats.FailureCount++
		if cb.stats.FailureCount >= cb.config.FailureThreshold {
			cb.transition(StateOpen)
		}
	case StateHalfOpen:
		cb.transition(StateOpen)
	}
}

// transition must be called with mu held
func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.stats.State
	cb.stats.State = to
	cb.stats.LastStateChange = time.Now()
	cb.stats.SuccessCount = 0
	if to != StateHalfOpen {
		cb.inFlight = 0
	}
	if to == StateClosed {
		cb.stats.FailureCount = 0
	}

	if cb.config.OnStateChange != nil && from != to {
		go cb.config.OnStateChange(cb.config.Name, from, to)
	}
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stats.State
}

// Stats returns current statistics
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stats
}

// Reset closes the circuit and clears the consecutive counters
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
}

func (cb *CircuitBreaker) String() string {
	stats := cb.Stats()
	return fmt.Sprintf(
		"CircuitBreaker{Name: %s, State: %s, Failures: %d/%d, Successes: %d/%d, TotalRequests: %d}",
		stats.Name,
		stats.State,
		stats.FailureCount,
		cb.config.FailureThreshold,
		stats.SuccessCount,
		cb.config.SuccessThreshold,
		stats.TotalRequests,
	)
}
