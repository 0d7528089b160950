// Package upstream talks to the external platforms: Codeforces, LeetCode,
// GitHub and AtCoder for user stats and problem catalogs, plus the insight
// webhook.
//
// Every HTTP call goes through a Caller, which applies the same three
// layers regardless of provider:
//
//  1. a token-bucket rate limiter (golang.org/x/time/rate) that paces
//     each attempt,
//  2. a circuit breaker (sony/gobreaker) that fails fast once a provider
//     keeps failing,
//  3. a bounded retry policy with exponential backoff that retries only
//     HTTP 429 and 5xx and honors Retry-After.
//
// Clients parse the body into the typed stats in internal/model right
// away. Expected failures come back as *apperror.AppError values
// (ErrNotFound, ErrRateLimited, ErrUnavailable).
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/metrics"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 32 << 20

// RetryPolicy bounds retries of 429 and 5xx responses.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	// MaxDelay caps a single wait, including one requested by Retry-After.
	MaxDelay time.Duration
}

// DefaultRetryPolicy is 3 attempts waiting 1s then 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2, MaxDelay: 30 * time.Second}
}

// Delay is the wait after the given failed attempt (0-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := time.Duration(float64(p.BaseDelay) * math.Pow(mult, float64(attempt)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// BreakerConfig configures the per-provider circuit breaker.
type BreakerConfig struct {
	MinRequests  uint32
	FailureRatio float64
	Interval     time.Duration
	OpenTimeout  time.Duration
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{MinRequests: 10, FailureRatio: 0.6, Interval: time.Minute, OpenTimeout: 2 * time.Minute}
}

// CallerConfig configures one provider's Caller.
type CallerConfig struct {
	Provider  string
	Timeout   time.Duration
	Retry     RetryPolicy
	Breaker   BreakerConfig
	RateLimit float64 // requests per second, 0 disables pacing
	Burst     int
	UserAgent string
}

// Response is a non-retryable HTTP response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Caller executes HTTP requests for one provider.
type Caller struct {
	provider  string
	client    *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[*Response]
	retry     RetryPolicy
	userAgent string
	logger    *slog.Logger
}

// NewCaller builds a Caller. A nil client gets a plain http.Client with
// cfg.Timeout.
func NewCaller(cfg CallerConfig, client *http.Client, logger *slog.Logger) *Caller {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.Breaker.MinRequests == 0 {
		cfg.Breaker = DefaultBreakerConfig()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1))
	}

	logger = logger.With(slog.String("provider", cfg.Provider))
	name := cfg.Provider
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	breaker := gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.Breaker.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= cfg.Breaker.FailureRatio {
				logger.Warn("opening circuit breaker",
					slog.Int("failures", int(counts.TotalFailures)),
					slog.Float64("failure_ratio", ratio))
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state change",
				slog.String("from", from.String()), slog.String("to", to.String()))
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
		// A canceled caller says nothing about the provider's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Caller{
		provider:  cfg.Provider,
		client:    client,
		limiter:   limiter,
		breaker:   breaker,
		retry:     cfg.Retry,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Provider returns the provider name used in errors and metrics.
func (c *Caller) Provider() string { return c.provider }

// RequestFunc builds a fresh request for each attempt.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// Do runs build through the limiter, breaker and retry policy using the
// Caller's HTTP client.
func (c *Caller) Do(ctx context.Context, build RequestFunc) (*Response, error) {
	return c.DoWith(ctx, c.client, build)
}

// DoWith is Do with an explicit HTTP client, used when a request must be
// authenticated with credentials other than the Caller's own.
//
// Any response that is not 429 or 5xx is returned as-is, 4xx included, so
// the client can interpret provider-specific error bodies. 429 and 5xx
// are retried; once attempts run out they become RateLimited or
// Unavailable. Transport errors are Unavailable immediately.
func (c *Caller) DoWith(ctx context.Context, client *http.Client, build RequestFunc) (*Response, error) {
	start := time.Now()
	resp, err := c.breaker.Execute(func() (*Response, error) {
		return c.attempt(ctx, client, build)
	})
	metrics.UpstreamDuration.WithLabelValues(c.provider).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.UpstreamRequests.WithLabelValues(c.provider, "circuit_open").Inc()
			return nil, apperror.Unavailable(c.provider, err)
		}
		metrics.UpstreamRequests.WithLabelValues(c.provider, outcome(err)).Inc()
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		metrics.UpstreamRequests.WithLabelValues(c.provider, "not_found").Inc()
	} else {
		metrics.UpstreamRequests.WithLabelValues(c.provider, "success").Inc()
	}
	return resp, nil
}

func (c *Caller) attempt(ctx context.Context, client *http.Client, build RequestFunc) (*Response, error) {
	attempts := max(c.retry.MaxAttempts, 1)
	for i := range attempts {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("upstream: building %s request: %w", c.provider, err)
		}
		if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		httpResp, err := client.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, apperror.Unavailable(c.provider, err)
		}
		body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
		httpResp.Body.Close()
		if err != nil {
			return nil, apperror.Unavailable(c.provider, fmt.Errorf("reading body: %w", err))
		}

		status := httpResp.StatusCode
		if status != http.StatusTooManyRequests && status < 500 {
			return &Response{StatusCode: status, Header: httpResp.Header, Body: body}, nil
		}

		wait := c.retry.Delay(i)
		if ra, ok := retryAfter(httpResp.Header); ok {
			wait = ra
			if c.retry.MaxDelay > 0 && wait > c.retry.MaxDelay {
				wait = c.retry.MaxDelay
			}
		}

		if i == attempts-1 {
			if status == http.StatusTooManyRequests {
				return nil, apperror.RateLimited(c.provider, wait)
			}
			return nil, apperror.Unavailable(c.provider, fmt.Errorf("HTTP %d", status))
		}

		c.logger.Warn("retrying upstream request",
			slog.Int("status", status),
			slog.Int("attempt", i+1),
			slog.Int("max_attempts", attempts),
			slog.Duration("retry_delay", wait))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, apperror.Unavailable(c.provider, errors.New("retry budget exhausted"))
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(h http.Header) (time.Duration, bool) {
	v := h.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func outcome(err error) string {
	switch {
	case errors.Is(err, apperror.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, apperror.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "unavailable"
	}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}
