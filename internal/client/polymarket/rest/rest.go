package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ErrMaxRetries is returned when every attempt was consumed without a
// usable response and no more specific error survived.
var ErrMaxRetries = errors.New("max retries exceeded")

type Options struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// ServerRetryDelay is the fixed wait applied after a 5xx response.
	// Upstream outages do not clear faster under exponential pressure, so
	// the delay is flat.
	ServerRetryDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 5
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = time.Second
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.ServerRetryDelay <= 0 {
		o.ServerRetryDelay = 2 * time.Second
	}
	return o
}

// APIError carries a non-OK upstream response. Statuses other than 429 and
// 5xx are not retried; callers inspect Status to decide what to do.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

// Get performs a GET with rate limiting and retry. 429 responses back off
// exponentially from InitialDelay capped at MaxDelay, 5xx responses wait a
// fixed two seconds, transport errors back off exponentially without the
// cap. Any other non-200 status is returned immediately as *APIError.
func Get(ctx context.Context, hc *http.Client, limiter *rate.Limiter, fullURL string, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	if hc == nil {
		hc = http.DefaultClient
	}

	var lastErr error
	for attempt := 0; attempt < opts.MaxRetries; attempt++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := hc.Do(req)
		if err != nil {
			lastErr = err
			if err := sleep(ctx, transportBackoff(opts, attempt)); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			if err := sleep(ctx, transportBackoff(opts, attempt)); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = &APIError{Status: resp.StatusCode, Body: string(body)}
			if err := sleep(ctx, backoff(opts, attempt)); err != nil {
				return nil, err
			}
		case resp.StatusCode >= http.StatusInternalServerError:
			lastErr = &APIError{Status: resp.StatusCode, Body: string(body)}
			if err := sleep(ctx, opts.ServerRetryDelay); err != nil {
				return nil, err
			}
		case resp.StatusCode != http.StatusOK:
			return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
		default:
			return body, nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %s", ErrMaxRetries, lastErr)
	}
	return nil, ErrMaxRetries
}

func backoff(opts Options, attempt int) time.Duration {
	d := opts.InitialDelay << uint(attempt)
	if d > opts.MaxDelay || d <= 0 {
		return opts.MaxDelay
	}
	return d
}

// transportBackoff grows past MaxDelay. A 429 cap paces us against the
// upstream's limiter; a connection fault has no such contract.
func transportBackoff(opts Options, attempt int) time.Duration {
	d := opts.InitialDelay << uint(attempt)
	if d <= 0 {
		return opts.MaxDelay
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
