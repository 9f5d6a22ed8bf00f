package llmprovider

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// RetryConfig controls retry behavior for transient and rate-limit
// failures, per spec.md §4.5's retry/backoff/jitter requirement.
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffFactor     float64
	JitterFraction    float64
	RetryableStatuses []int
}

// DefaultRetryConfig mirrors the retry defaults this pipeline was
// grounded on: 3 retries, 1s initial backoff doubling up to 30s, 10%
// jitter, retrying server errors and rate limits only.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffFactor:     2.0,
		JitterFraction:    0.1,
		RetryableStatuses: []int{429, 529, 500, 502, 503},
	}
}

// backoffDelay returns the exponential-backoff-plus-jitter wait before
// the given retry attempt (attempt 1 is the first retry). The exponential
// part is capped at cfg.MaxBackoff; jitter of up to cfg.JitterFraction of
// that is added on top, so the result can exceed cfg.MaxBackoff.
func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	delay := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffFactor, float64(attempt-1))
	if delay > float64(cfg.MaxBackoff) {
		delay = float64(cfg.MaxBackoff)
	}
	delay += delay * cfg.JitterFraction * rand.Float64()
	return time.Duration(delay)
}

// waitOrCancel blocks for d, or returns ctx.Err() sooner if ctx is
// cancelled first.
func waitOrCancel(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// doWithRetry executes makeRequest, retrying transient/rate-limit
// failures with exponential backoff and jitter, honoring any
// Retry-After the server supplies.
func doWithRetry(ctx context.Context, cfg RetryConfig, makeRequest func(ctx context.Context) (*http.Response, error)) (*http.Response, error) {
	var lastStatus int

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := waitOrCancel(ctx, backoffDelay(cfg, attempt)); err != nil {
				return nil, err
			}
		}

		resp, err := makeRequest(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			lastStatus = 0
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}
		lastStatus = resp.StatusCode

		if !isRetryable(resp.StatusCode, cfg.RetryableStatuses) {
			return resp, nil // caller classifies the final error
		}
		resp.Body.Close()

		if retryAfter := parseRetryAfter(resp.Header.Get("Retry-After")); retryAfter > 0 {
			if err := waitOrCancel(ctx, retryAfter); err != nil {
				return nil, err
			}
		}
	}

	return nil, &ErrMaxRetriesExceeded{Attempts: cfg.MaxRetries + 1, LastStatus: lastStatus}
}
