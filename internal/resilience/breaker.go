package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrBreakerOpen is returned when a call is rejected because the breaker is open.
var ErrBreakerOpen = eris.New("breaker is open")

// Breaker fails geocoding calls fast after repeated quota or provider
// failures, so a batch run does not burn its remaining quota hammering a
// provider that is already rejecting requests. It re-allows a probe call
// after ResetTimeout.
type Breaker struct {
	threshold    int
	resetTimeout time.Duration

	mu           sync.Mutex
	failures     int
	openedAt     time.Time
	open         bool
	nowFunc      func() time.Time
}

// NewBreaker creates a Breaker that opens after threshold consecutive
// failures and allows a probe after resetTimeout.
func NewBreaker(threshold int, resetTimeout time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &Breaker{
		threshold:    threshold,
		resetTimeout: resetTimeout,
		nowFunc:      time.Now,
	}
}

// Allow reports whether a call may proceed. When the breaker is open it
// returns ErrBreakerOpen until ResetTimeout has elapsed, at which point a
// single probe is allowed through.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return nil
	}
	if b.nowFunc().Sub(b.openedAt) >= b.resetTimeout {
		// Probe: stay open but let one call through; Record settles the state.
		return nil
	}
	return ErrBreakerOpen
}

// Record updates the breaker with the outcome of a call.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		b.open = false
		return
	}

	b.failures++
	if b.failures >= b.threshold {
		b.open = true
		b.openedAt = b.nowFunc()
	}
}

// Open reports whether the breaker is currently open.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}
