package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/nissand/polymarket-analytics/internal/client/polymarket/gamma"
	"github.com/nissand/polymarket-analytics/internal/config"
)

func TestTagSyncPagesCatalog(t *testing.T) {
	pages := map[string]string{
		"0": `[{"id": "1", "label": "Politics", "slug": "politics"},
		      {"id": "2", "label": "Sports", "slug": "sports"}]`,
		"2": `[{"id": "3", "label": "Crypto", "slug": "crypto"},
		      {"id": "", "label": "junk", "slug": "junk"}]`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tags" {
			http.NotFound(w, r)
			return
		}
		if body, ok := pages[r.URL.Query().Get("offset")]; ok {
			fmt.Fprint(w, body)
			return
		}
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	repo := newStubRepo()
	svc := &TagSyncService{
		Repo:   repo,
		Gamma:  gamma.NewClient(srv.Client(), srv.URL, rate.NewLimiter(rate.Inf, 1), fastRetry()),
		Config: config.TagSyncConfig{PageLimit: 2, PageDelay: time.Millisecond},
	}
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	// Two full pages then a short one; the empty-id row is dropped.
	total, _ := repo.CountTags(context.Background())
	if total != 3 {
		t.Fatalf("tags stored = %d, want 3", total)
	}
	tags, _ := repo.ListTags(context.Background(), 0, 0)
	for _, tag := range tags {
		if tag.LastFetchedAt.IsZero() {
			t.Fatalf("tag %s missing last_fetched_at", tag.ID)
		}
	}
}

func TestTagSyncUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadRequest)
	}))
	defer srv.Close()

	repo := newStubRepo()
	svc := &TagSyncService{
		Repo:   repo,
		Gamma:  gamma.NewClient(srv.Client(), srv.URL, rate.NewLimiter(rate.Inf, 1), fastRetry()),
		Config: config.TagSyncConfig{PageLimit: 2},
	}
	if err := svc.RunOnce(context.Background()); err == nil {
		t.Fatal("RunOnce succeeded against a failing upstream")
	}
	if total, _ := repo.CountTags(context.Background()); total != 0 {
		t.Fatalf("tags stored = %d, want none", total)
	}
}
