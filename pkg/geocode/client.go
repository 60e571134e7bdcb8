package geocode

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kwparking/parksafe/internal/resilience"
)

// Client wraps a Provider with a process-wide rate limit, bounded retry of
// transient failures, and a breaker that fails fast after repeated quota
// errors. All geocoding workers share one Client so the rate limit is a
// global constraint.
type Client struct {
	provider Provider
	limiter  *rate.Limiter
	retry    resilience.RetryConfig
	breaker  *resilience.Breaker

	attempts atomic.Int64 // attempts that reached the network (quota/cost)
}

// Option configures the Client.
type Option func(*Client)

// WithRateLimit sets the requests-per-second limit shared by all callers.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithRetryConfig overrides the retry policy for transient failures.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithBreaker overrides the quota breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

// NewClient creates a Client around the given provider.
func NewClient(provider Provider, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(10), 1), // matches the original batch pacing
		retry:    resilience.DefaultRetryConfig(),
		breaker:  resilience.NewBreaker(5, 30*time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available reports whether the underlying provider can be used.
func (c *Client) Available() bool {
	return c.provider != nil && c.provider.Available()
}

// Attempts returns the number of network attempts made so far. Each attempt
// counts against provider quota, so retries are included.
func (c *Client) Attempts() int64 {
	return c.attempts.Load()
}

// Geocode resolves one address. Transient failures are retried up to the
// configured bound with backoff; permanent failures (not found, invalid
// request, quota) surface immediately as a *ResolutionFailure.
func (c *Client) Geocode(ctx context.Context, address string) (*Result, error) {
	if !c.Available() {
		return nil, NewFailure(FailureInvalidRequest, address, errors.New("provider not available"))
	}
	if err := c.breaker.Allow(); err != nil {
		return nil, NewFailure(FailureQuotaExceeded, address, err)
	}

	cfg := c.retry
	cfg.ShouldRetry = func(err error) bool {
		var rf *ResolutionFailure
		if errors.As(err, &rf) {
			return rf.Retryable()
		}
		return resilience.IsTransient(err)
	}
	if cfg.OnAttempt == nil {
		cfg.OnAttempt = resilience.RetryLogger(c.provider.Name(), "geocode")
	}

	result, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*Result, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, NewFailure(FailureTransient, address, err)
		}
		c.attempts.Add(1)
		return c.provider.Geocode(ctx, address)
	})

	// Quota failures feed the breaker so a dead provider fails fast.
	var rf *ResolutionFailure
	if err != nil && errors.As(err, &rf) && rf.Kind == FailureQuotaExceeded {
		c.breaker.Record(err)
	} else {
		c.breaker.Record(nil)
	}

	if err != nil {
		zap.L().Debug("geocode failed",
			zap.String("address", address),
			zap.Error(err),
		)
		return nil, err
	}
	return result, nil
}
