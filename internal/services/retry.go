package services

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/likesort/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultMaxRetries = 3
	defaultBackoff    = 500 * time.Millisecond
)

// retryTransport retries rate-limited and failed requests. Every attempt waits on the limiter first.
type retryTransport struct {
	base       http.RoundTripper
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	logger     *log.Logger
}

func newRetryTransport(base http.RoundTripper, ratePerSecond float64, maxRetries int, backoff time.Duration, logger *log.Logger) *retryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}

	return &retryTransport{base: base, limiter: limiter, maxRetries: maxRetries, backoff: backoff, logger: logger}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	attempts := t.maxRetries
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if err := t.wait(ctx); err != nil {
			return nil, err
		}

		r := req
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("reset request body: %w", err)
			}
			r = req.Clone(ctx)
			r.Body = body
		}

		resp, err := t.base.RoundTrip(r)
		retryAfter, retry := shouldRetry(resp, err)
		if !retry {
			return resp, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		status := 0
		if resp != nil {
			status = resp.StatusCode
			resp.Body.Close()
		}

		if attempt == attempts-1 {
			if err != nil {
				return nil, fmt.Errorf("%w: %s %s failed after %d attempts: %v", shared.ErrTransient, req.Method, req.URL.Path, attempts, err)
			}
			return nil, fmt.Errorf("%w: %s %s failed after %d attempts: status %d", shared.ErrTransient, req.Method, req.URL.Path, attempts, status)
		}

		backoff := t.backoff * time.Duration(1<<attempt)
		if retryAfter > 0 {
			backoff = retryAfter
		}
		if t.logger != nil {
			t.logger.Warn("retrying catalog request", "path", req.URL.Path, "attempt", attempt+1, "max", attempts, "status", status, "wait", backoff, "err", err)
		}

		if err := sleepWithContext(ctx, backoff); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s %s failed", shared.ErrTransient, req.Method, req.URL.Path)
}

func (t *retryTransport) wait(ctx context.Context) error {
	if t.limiter == nil {
		return nil
	}
	if err := t.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", shared.ErrTransient, err)
	}
	return nil
}

func shouldRetry(resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, true
	}
	if resp == nil {
		return 0, false
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return parseRetryAfter(resp), true
	}
	return 0, false
}

// parseRetryAfter accepts both the delay-seconds and HTTP-date forms of Retry-After.
func parseRetryAfter(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if when, err := http.ParseTime(retryAfter); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}
	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
