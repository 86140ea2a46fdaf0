package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastOpts() Options {
	return Options{
		MaxRetries:       4,
		InitialDelay:     time.Millisecond,
		MaxDelay:         5 * time.Millisecond,
		ServerRetryDelay: time.Millisecond,
	}
}

func TestGetRetriesRateLimitThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body, err := Get(context.Background(), srv.Client(), nil, srv.URL, fastOpts())
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("unexpected body %q", body)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestGetRetriesServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	if _, err := Get(context.Background(), srv.Client(), nil, srv.URL, fastOpts()); err != nil {
		t.Fatalf("expected success after 5xx retry, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestGetDoesNotRetryClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`missing`))
	}))
	defer srv.Close()

	_, err := Get(context.Background(), srv.Client(), nil, srv.URL, fastOpts())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Body != "missing" {
		t.Fatalf("unexpected APIError %+v", apiErr)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("4xx must not be retried, got %d attempts", got)
	}
}

func TestGetExhaustsRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	opts := fastOpts()
	_, err := Get(context.Background(), srv.Client(), nil, srv.URL, opts)
	if !errors.Is(err, ErrMaxRetries) {
		t.Fatalf("expected ErrMaxRetries, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != int32(opts.MaxRetries) {
		t.Fatalf("expected %d attempts, got %d", opts.MaxRetries, got)
	}
}

func TestGetStopsOnContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := fastOpts()
	opts.InitialDelay = time.Second
	if _, err := Get(ctx, srv.Client(), nil, srv.URL, opts); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTransportBackoffIgnoresCap(t *testing.T) {
	opts := Options{InitialDelay: time.Second, MaxDelay: 4 * time.Second}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
	}
	for _, c := range cases {
		if got := transportBackoff(opts, c.attempt); got != c.want {
			t.Fatalf("attempt %d: got %v, want %v", c.attempt, got, c.want)
		}
	}
}

func TestBackoffCapsAtMaxDelay(t *testing.T) {
	opts := Options{InitialDelay: time.Second, MaxDelay: 4 * time.Second}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 4 * time.Second},
		{10, 4 * time.Second},
	}
	for _, c := range cases {
		if got := backoff(opts, c.attempt); got != c.want {
			t.Fatalf("attempt %d: got %v, want %v", c.attempt, got, c.want)
		}
	}
}
