package remote

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker's position.
type BreakerState string

const (
	// StateClosed: requests flow normally.
	StateClosed BreakerState = "closed"

	// StateOpen: the remote tier is skipped without probing.
	StateOpen BreakerState = "open"

	// StateHalfOpen: one probe is allowed through; its outcome decides the
	// next state.
	StateHalfOpen BreakerState = "half-open"
)

// Breaker is a minimal circuit breaker guarding the remote tier. Consecutive
// failures open it; after the retry interval a single half-open probe decides
// whether it closes again. Safe for concurrent use.
type Breaker struct {
	mu        sync.Mutex
	state     BreakerState
	failures  int
	openedAt  time.Time
	threshold int
	retry     time.Duration
}

// NewBreaker constructs a closed breaker. Non-positive arguments fall back to
// the package defaults.
func NewBreaker(failureThreshold int, retryInterval time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = DefaultConfig().FailureThreshold
	}
	if retryInterval <= 0 {
		retryInterval = DefaultConfig().RetryInterval
	}
	return &Breaker{
		state:     StateClosed,
		threshold: failureThreshold,
		retry:     retryInterval,
	}
}

// Allow reports whether a request may proceed. An open breaker whose retry
// interval has elapsed transitions to half-open and admits exactly one probe;
// further calls are rejected until the probe's outcome is recorded.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(b.openedAt) >= b.retry {
			b.state = StateHalfOpen
			return true
		}
		return false
	case StateHalfOpen:
		return false
	}
	return false
}

// RecordSuccess closes the breaker and resets the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
}

// RecordFailure counts a failure. A half-open probe failure reopens
// immediately; in the closed state the breaker opens once the threshold is
// reached.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.threshold {
		b.state = StateOpen
		b.openedAt = time.Now()
	}
}

// State returns the current position.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
