package clob

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nissand/polymarket-analytics/internal/client/polymarket/rest"
)

// DefaultMaxChunkDays caps the span of a single prices-history request.
// The endpoint quietly truncates longer windows, so wider spans are split
// into sequential chunks.
const DefaultMaxChunkDays = 14

type Client struct {
	host       string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      rest.Options
	logger     *zap.Logger

	maxChunk   time.Duration
	chunkDelay time.Duration
}

func NewClient(httpClient *http.Client, host string, limiter *rate.Limiter, retry rest.Options, logger *zap.Logger) *Client {
	if host == "" {
		host = "https://clob.polymarket.com"
	}
	host = strings.TrimRight(host, "/")
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		host:       host,
		httpClient: httpClient,
		limiter:    limiter,
		retry:      retry,
		logger:     logger,
		maxChunk:   DefaultMaxChunkDays * 24 * time.Hour,
		chunkDelay: 50 * time.Millisecond,
	}
}

// SetChunking overrides the per-request span cap and the pause between
// sequential chunk requests.
func (c *Client) SetChunking(maxDays int, delay time.Duration) {
	if maxDays > 0 {
		c.maxChunk = time.Duration(maxDays) * 24 * time.Hour
	}
	if delay > 0 {
		c.chunkDelay = delay
	}
}

// GetPriceHistory fetches the price series for one CLOB token between the
// given unix-second bounds. Spans wider than the chunk cap are fetched as
// sequential chunks; a failed chunk is logged and skipped so one bad
// window yields a partial series instead of none. A response carrying an
// error body or no history at all yields an empty series, not an error.
func (c *Client) GetPriceHistory(ctx context.Context, tokenID string, startTs, endTs int64, fidelity int) ([]PricePoint, error) {
	if tokenID == "" {
		return nil, fmt.Errorf("token_id is required")
	}
	if endTs <= startTs {
		return []PricePoint{}, nil
	}

	maxSpan := int64(c.maxChunk / time.Second)
	if endTs-startTs <= maxSpan {
		return c.fetchChunk(ctx, tokenID, startTs, endTs, fidelity)
	}

	points := make([]PricePoint, 0)
	for chunkStart := startTs; chunkStart < endTs; {
		chunkEnd := chunkStart + maxSpan
		if chunkEnd > endTs {
			chunkEnd = endTs
		}
		chunk, err := c.fetchChunk(ctx, tokenID, chunkStart, chunkEnd, fidelity)
		if err != nil {
			if ctx.Err() != nil {
				return points, ctx.Err()
			}
			c.logger.Warn("price history chunk failed",
				zap.String("token_id", tokenID),
				zap.Int64("start_ts", chunkStart),
				zap.Int64("end_ts", chunkEnd),
				zap.Error(err))
		} else {
			points = append(points, chunk...)
		}
		chunkStart = chunkEnd
		if chunkStart < endTs {
			if err := sleepCtx(ctx, c.chunkDelay); err != nil {
				return points, err
			}
		}
	}
	return points, nil
}

func (c *Client) fetchChunk(ctx context.Context, tokenID string, startTs, endTs int64, fidelity int) ([]PricePoint, error) {
	query := url.Values{}
	query.Set("market", tokenID)
	query.Set("startTs", strconv.FormatInt(startTs, 10))
	query.Set("endTs", strconv.FormatInt(endTs, 10))
	if fidelity > 0 {
		query.Set("fidelity", strconv.Itoa(fidelity))
	}
	fullURL := c.host + "/prices-history?" + query.Encode()

	body, err := rest.Get(ctx, c.httpClient, c.limiter, fullURL, c.retry)
	if err != nil {
		return nil, err
	}
	return parsePriceHistory(body), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
