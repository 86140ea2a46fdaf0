package gamma

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nissand/polymarket-analytics/internal/client/polymarket/rest"
)

func fastRetry() rest.Options {
	return rest.Options{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, ServerRetryDelay: time.Millisecond}
}

func TestListMarketsSendsPagingAndWindow(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Write([]byte(`[{"id":"1","question":"q"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, nil, fastRetry())
	closed := true
	min := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	max := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	markets, err := c.ListMarkets(context.Background(), MarketListParams{
		Limit:        100,
		Offset:       200,
		Closed:       &closed,
		StartDateMin: &min,
		StartDateMax: &max,
	})
	if err != nil {
		t.Fatalf("ListMarkets: %v", err)
	}
	if len(markets) != 1 || markets[0].ID != "1" {
		t.Fatalf("markets: %+v", markets)
	}
	want := map[string]string{
		"limit":          "100",
		"offset":         "200",
		"order":          "startDate",
		"ascending":      "true",
		"closed":         "true",
		"start_date_min": "2024-01-01T00:00:00Z",
		"start_date_max": "2024-02-01T00:00:00Z",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Fatalf("query %s: got %q, want %q", k, gotQuery[k], v)
		}
	}
}

func TestListEventsRequiresScope(t *testing.T) {
	c := NewClient(http.DefaultClient, "http://unused", nil, fastRetry())
	if _, err := c.ListEvents(context.Background(), EventListParams{Limit: 10}); err == nil {
		t.Fatalf("expected error without tag_slug/tag_id/series_id")
	}
}

func TestListEventsByTagSlugOrdersByStartDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("tag_slug") != "politics" || q.Get("order") != "startDate" || q.Get("ascending") != "true" {
			t.Errorf("unexpected query %v", q)
		}
		w.Write([]byte(`[{"id":"9","title":"ev","markets":[{"id":"1"}]}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, nil, fastRetry())
	events, err := c.ListEvents(context.Background(), EventListParams{TagSlug: "politics", Limit: 5})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 || len(events[0].Markets) != 1 {
		t.Fatalf("events: %+v", events)
	}
}

func TestGetMarketByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets/42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"id":"42","question":"q","clobTokenIds":"[\"a\",\"b\"]"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, nil, fastRetry())
	m, err := c.GetMarket(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetMarket: %v", err)
	}
	if m.ID != "42" || len(m.ClobTokenIDs) != 2 {
		t.Fatalf("market: %+v", m)
	}
}
