package gamma

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nissand/polymarket-analytics/internal/client/polymarket/rest"
)

// Client talks to the Gamma metadata API (markets, events, tags). All
// calls go through the shared retrying GET so 429s and transient upstream
// failures are absorbed here.
type Client struct {
	host       string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      rest.Options
}

func NewClient(httpClient *http.Client, host string, limiter *rate.Limiter, retry rest.Options) *Client {
	if host == "" {
		host = "https://gamma-api.polymarket.com"
	}
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		httpClient: httpClient,
		limiter:    limiter,
		retry:      retry,
	}
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	return rest.Get(ctx, c.httpClient, c.limiter, fullURL, c.retry)
}

type MarketListParams struct {
	Limit        int
	Offset       int
	Closed       *bool
	StartDateMin *time.Time
	StartDateMax *time.Time
}

// ListMarkets pages the global market catalog ordered by start date
// ascending, which keeps offsets stable across pages.
func (c *Client) ListMarkets(ctx context.Context, p MarketListParams) ([]Market, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(p.Limit))
	query.Set("offset", strconv.Itoa(p.Offset))
	query.Set("order", "startDate")
	query.Set("ascending", "true")
	if p.Closed != nil {
		query.Set("closed", strconv.FormatBool(*p.Closed))
	}
	if p.StartDateMin != nil {
		query.Set("start_date_min", p.StartDateMin.UTC().Format(time.RFC3339))
	}
	if p.StartDateMax != nil {
		query.Set("start_date_max", p.StartDateMax.UTC().Format(time.RFC3339))
	}
	body, err := c.doRequest(ctx, "/markets", query)
	if err != nil {
		return nil, err
	}
	var markets []Market
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("failed to decode markets: %w", err)
	}
	return markets, nil
}

type EventListParams struct {
	TagSlug      string
	TagID        string
	SeriesID     string
	Limit        int
	Offset       int
	Closed       *bool
	StartDateMin *time.Time
	StartDateMax *time.Time
}

// ListEvents pages events scoped by tag slug, tag id or series id.
// Slug-scoped listings order by start date ascending to match the market
// pager; id-scoped listings order by end date descending, newest first.
func (c *Client) ListEvents(ctx context.Context, p EventListParams) ([]Event, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(p.Limit))
	query.Set("offset", strconv.Itoa(p.Offset))
	switch {
	case p.TagSlug != "":
		query.Set("tag_slug", p.TagSlug)
		query.Set("order", "startDate")
		query.Set("ascending", "true")
	case p.TagID != "":
		query.Set("tag_id", p.TagID)
		query.Set("order", "endDate")
		query.Set("ascending", "false")
	case p.SeriesID != "":
		query.Set("series_id", p.SeriesID)
		query.Set("order", "endDate")
		query.Set("ascending", "false")
	default:
		return nil, fmt.Errorf("one of tag_slug, tag_id or series_id is required")
	}
	if p.Closed != nil {
		query.Set("closed", strconv.FormatBool(*p.Closed))
	}
	if p.StartDateMin != nil {
		query.Set("start_date_min", p.StartDateMin.UTC().Format(time.RFC3339))
	}
	if p.StartDateMax != nil {
		query.Set("start_date_max", p.StartDateMax.UTC().Format(time.RFC3339))
	}
	body, err := c.doRequest(ctx, "/events", query)
	if err != nil {
		return nil, err
	}
	var events []Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

func (c *Client) GetEvent(ctx context.Context, id string) (*Event, error) {
	if id == "" {
		return nil, fmt.Errorf("event id is required")
	}
	body, err := c.doRequest(ctx, "/events/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return &event, nil
}

func (c *Client) GetMarket(ctx context.Context, id string) (*Market, error) {
	if id == "" {
		return nil, fmt.Errorf("market id is required")
	}
	body, err := c.doRequest(ctx, "/markets/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var market Market
	if err := json.Unmarshal(body, &market); err != nil {
		return nil, fmt.Errorf("failed to decode market: %w", err)
	}
	return &market, nil
}

func (c *Client) ListTags(ctx context.Context, limit, offset int) ([]Tag, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	body, err := c.doRequest(ctx, "/tags", query)
	if err != nil {
		return nil, err
	}
	var tags []Tag
	if err := json.Unmarshal(body, &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return tags, nil
}
