package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nissand/polymarket-analytics/internal/client/polymarket/clob"
	"github.com/nissand/polymarket-analytics/internal/client/polymarket/gamma"
	"github.com/nissand/polymarket-analytics/internal/config"
	"github.com/nissand/polymarket-analytics/internal/downsample"
	"github.com/nissand/polymarket-analytics/internal/models"
	"github.com/nissand/polymarket-analytics/internal/repository"
)

var resolvedThreshold = decimal.RequireFromString("0.99")

// ImportService executes a capture request end to end: discover closed
// markets in the requested window, persist their metadata, then walk them
// in batches fetching and downsampling price history.
type ImportService struct {
	Repo      repository.Repository
	Gamma     *gamma.Client
	Clob      *clob.Client
	Config    config.CaptureConfig
	Tolerance time.Duration
	Logger    *zap.Logger
}

// discoveredMarket pairs a market with the event it was found under, when
// one is known.
type discoveredMarket struct {
	market gamma.Market
	event  *gamma.Event
}

// Process runs a request that is already in the processing state. Failures
// before any market is saved mark the whole request failed; per-market
// failures during the batch walk only bump the failed counter.
func (s *ImportService) Process(ctx context.Context, requestID uint64) error {
	if s == nil || s.Repo == nil || s.Gamma == nil || s.Clob == nil {
		return nil
	}
	req, err := s.Repo.GetCaptureRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req == nil {
		return fmt.Errorf("capture request %d not found", requestID)
	}

	discovered, err := s.discover(ctx, req)
	if err != nil {
		s.fail(ctx, req.ID, err)
		return err
	}
	if len(discovered) == 0 {
		s.logInfo("no markets matched capture criteria", zap.Uint64("request_id", req.ID))
		if err := s.Repo.SetCaptureTotal(ctx, req.ID, 0); err != nil {
			s.fail(ctx, req.ID, err)
			return err
		}
		return s.Repo.UpdateCaptureStatus(ctx, req.ID, models.CaptureStatusCompleted, nil)
	}

	if err := s.saveDiscovered(ctx, req, discovered); err != nil {
		s.fail(ctx, req.ID, err)
		return err
	}
	if err := s.Repo.SetCaptureTotal(ctx, req.ID, len(discovered)); err != nil {
		s.fail(ctx, req.ID, err)
		return err
	}

	offset := 0
	for {
		done, err := s.ProcessBatch(ctx, req.ID, offset)
		if err != nil {
			s.fail(ctx, req.ID, err)
			return err
		}
		if done {
			return nil
		}
		offset += s.batchSize()
	}
}

// ProcessBatch handles one slice of the request's saved markets starting
// at offset. It reports done when no markets remain, after finalizing the
// request from its counters.
func (s *ImportService) ProcessBatch(ctx context.Context, requestID uint64, offset int) (bool, error) {
	req, err := s.Repo.GetCaptureRequest(ctx, requestID)
	if err != nil {
		return false, err
	}
	if req == nil || req.Status != models.CaptureStatusProcessing {
		// Deleted or force-failed underneath us; stop quietly.
		return true, nil
	}

	markets, err := s.Repo.ListMarkets(ctx, repository.ListMarketsParams{
		CaptureRequestID: &requestID,
		Limit:            s.batchSize(),
		Offset:           offset,
		OrderBy:          "id",
		Asc:              boolPtr(true),
	})
	if err != nil {
		return false, err
	}
	if len(markets) == 0 {
		return true, s.finalize(ctx, requestID)
	}

	for i := range markets {
		m := markets[i]
		s.linkEvent(ctx, &m)
		if err := s.captureMarketHistory(ctx, &m); err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			s.logWarn("market capture failed", err,
				zap.Uint64("request_id", requestID),
				zap.String("market_id", m.PolymarketMarketID))
			if err := s.Repo.IncrementCaptureProgress(ctx, requestID, 0, 1); err != nil {
				return false, err
			}
			continue
		}
		if err := s.Repo.IncrementCaptureProgress(ctx, requestID, 1, 0); err != nil {
			return false, err
		}
	}
	return false, nil
}

// linkEvent resolves the event row for a market discovery left unlinked.
// The upstream event id is denormalized on the market, and the event row
// may already exist from an earlier capture. Best effort; the market is
// captured either way.
func (s *ImportService) linkEvent(ctx context.Context, m *models.Market) {
	if m.EventID != nil || m.PolymarketEventID == nil || strings.TrimSpace(*m.PolymarketEventID) == "" {
		return
	}
	ev, err := s.Repo.GetEventByPolymarketID(ctx, *m.PolymarketEventID)
	if err != nil {
		s.logWarn("event lookup failed", err, zap.String("event_id", *m.PolymarketEventID))
		return
	}
	if ev == nil {
		return
	}
	var category *string
	if m.Category == nil || strings.TrimSpace(*m.Category) == "" {
		category = ev.Category
	}
	if err := s.Repo.LinkMarketEvent(ctx, m.ID, ev.ID, category); err != nil {
		s.logWarn("event link failed", err,
			zap.Uint64("market_row_id", m.ID),
			zap.String("event_id", *m.PolymarketEventID))
		return
	}
	m.EventID = &ev.ID
	if category != nil && strings.TrimSpace(*category) != "" {
		m.Category = category
	}
}

func (s *ImportService) finalize(ctx context.Context, requestID uint64) error {
	req, err := s.Repo.GetCaptureRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req == nil {
		return nil
	}
	status := finalStatus(req.Processed, req.Failed)
	s.logInfo("capture finalized",
		zap.Uint64("request_id", requestID),
		zap.String("status", status),
		zap.Int("processed", req.Processed),
		zap.Int("failed", req.Failed))
	return s.Repo.UpdateCaptureStatus(ctx, requestID, status, nil)
}

// finalStatus maps the progress counters to a terminal state.
func finalStatus(processed, failed int) string {
	switch {
	case failed == 0:
		return models.CaptureStatusCompleted
	case processed > 0:
		return models.CaptureStatusPartiallyCompleted
	default:
		return models.CaptureStatusFailed
	}
}

// --- discovery --------------------------------------------------------------

func (s *ImportService) discover(ctx context.Context, req *models.CaptureRequest) ([]discoveredMarket, error) {
	if req.Category != nil && strings.TrimSpace(*req.Category) != "" {
		return s.discoverByCategory(ctx, req)
	}
	return s.discoverGlobal(ctx, req)
}

// discoverByCategory walks closed events under the category's tag and
// collects their closed markets. Working events-first avoids paging the
// whole market catalog to find one category.
func (s *ImportService) discoverByCategory(ctx context.Context, req *models.CaptureRequest) ([]discoveredMarket, error) {
	tagSlug := categoryTagSlug(*req.Category)
	pageLimit := s.eventPageLimit()
	closed := true
	limit := req.MarketLimit

	out := make([]discoveredMarket, 0, limit)
	offset := 0
	for len(out) < limit {
		events, err := s.Gamma.ListEvents(ctx, gamma.EventListParams{
			TagSlug:      tagSlug,
			Limit:        pageLimit,
			Offset:       offset,
			Closed:       &closed,
			StartDateMin: &req.DateRangeStart,
			StartDateMax: &req.DateRangeEnd,
		})
		if err != nil {
			return nil, fmt.Errorf("event discovery failed for tag %q: %w", tagSlug, err)
		}
		if len(events) == 0 {
			break
		}

		for i := range events {
			ev := events[i]
			for j := range ev.Markets {
				m := ev.Markets[j]
				if !m.Closed {
					continue
				}
				if start := m.StartDate.Ptr(); start != nil {
					if start.Before(req.DateRangeStart) || start.After(req.DateRangeEnd) {
						continue
					}
				}
				if !matchesSearch(req.SearchTerm, m.Question, ev.Title) {
					continue
				}
				// Markets embedded in event listings often omit trading
				// fields; fetch the full record when token ids are missing.
				if len(m.ClobTokenIDs) == 0 && m.ID != "" {
					full, err := s.Gamma.GetMarket(ctx, m.ID)
					if err != nil {
						s.logWarn("full market fetch failed", err, zap.String("market_id", m.ID))
					} else {
						m = *full
					}
					if err := sleepCtx(ctx, s.apiDelay()); err != nil {
						return nil, err
					}
				}
				evCopy := ev
				out = append(out, discoveredMarket{market: m, event: &evCopy})
				if len(out) >= limit {
					break
				}
			}
			if len(out) >= limit {
				break
			}
		}
		if len(out) >= limit {
			break
		}
		offset += pageLimit
		if err := sleepCtx(ctx, s.apiDelay()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// discoverGlobal pages the whole closed-market catalog for the window,
// then resolves each market's event for category inference.
func (s *ImportService) discoverGlobal(ctx context.Context, req *models.CaptureRequest) ([]discoveredMarket, error) {
	pageLimit := s.marketPageLimit()
	closed := true
	limit := req.MarketLimit

	markets := make([]gamma.Market, 0, limit)
	seen := make(map[string]struct{})
	offset := 0
	for len(markets) < limit {
		page, err := s.Gamma.ListMarkets(ctx, gamma.MarketListParams{
			Limit:        pageLimit,
			Offset:       offset,
			Closed:       &closed,
			StartDateMin: &req.DateRangeStart,
			StartDateMax: &req.DateRangeEnd,
		})
		if err != nil {
			return nil, fmt.Errorf("market discovery failed: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for i := range page {
			m := page[i]
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			if !matchesSearch(req.SearchTerm, m.Question, "") {
				continue
			}
			markets = append(markets, m)
			if len(markets) >= limit {
				break
			}
		}
		if len(markets) >= limit || len(page) < pageLimit {
			break
		}
		offset += pageLimit
		if err := sleepCtx(ctx, s.apiDelay()); err != nil {
			return nil, err
		}
	}

	// One event fetch per unique event id; markets under a fetch that
	// failed are still captured, just without an event link.
	eventCache := make(map[string]*gamma.Event)
	out := make([]discoveredMarket, 0, len(markets))
	for i := range markets {
		m := markets[i]
		var ev *gamma.Event
		if len(m.Events) > 0 && m.Events[0].ID != "" {
			eventID := m.Events[0].ID
			cached, ok := eventCache[eventID]
			if !ok {
				full, err := s.Gamma.GetEvent(ctx, eventID)
				if err != nil {
					s.logWarn("event fetch failed", err, zap.String("event_id", eventID))
					full = nil
				}
				eventCache[eventID] = full
				cached = full
				if err := sleepCtx(ctx, s.apiDelay()); err != nil {
					return nil, err
				}
			}
			ev = cached
		}
		out = append(out, discoveredMarket{market: m, event: ev})
	}
	return out, nil
}

func matchesSearch(term *string, question, eventTitle string) bool {
	if term == nil || strings.TrimSpace(*term) == "" {
		return true
	}
	needle := strings.ToLower(strings.TrimSpace(*term))
	return strings.Contains(strings.ToLower(question), needle) ||
		strings.Contains(strings.ToLower(eventTitle), needle)
}

// --- persistence ------------------------------------------------------------

func (s *ImportService) saveDiscovered(ctx context.Context, req *models.CaptureRequest, discovered []discoveredMarket) error {
	eventRowIDs := make(map[string]uint64)
	for i := range discovered {
		d := discovered[i]

		var category string
		if d.event != nil {
			category = inferCategory(d.event)
			if _, saved := eventRowIDs[d.event.ID]; !saved {
				rowID, err := s.Repo.UpsertEvent(ctx, buildEventRow(req, d.event, category))
				if err != nil {
					s.logWarn("event save failed", err, zap.String("event_id", d.event.ID))
				} else {
					eventRowIDs[d.event.ID] = rowID
				}
			}
		}

		row := buildMarketRow(req, &d, category)
		if id, ok := eventRowIDs[eventIDOf(&d)]; ok {
			row.EventID = &id
		}
		if err := s.Repo.InsertMarket(ctx, row); err != nil {
			return fmt.Errorf("failed to save market %s: %w", d.market.ID, err)
		}
	}
	return nil
}

func eventIDOf(d *discoveredMarket) string {
	if d.event != nil {
		return d.event.ID
	}
	if len(d.market.Events) > 0 {
		return d.market.Events[0].ID
	}
	return ""
}

func buildEventRow(req *models.CaptureRequest, ev *gamma.Event, category string) *models.Event {
	return &models.Event{
		CaptureRequestID:    req.ID,
		UserID:              req.UserID,
		PolymarketEventID:   ev.ID,
		Slug:                ev.Slug,
		Title:               ev.Title,
		Description:         strPtr(ev.Description),
		Category:            strPtr(category),
		Active:              ev.Active,
		Closed:              ev.Closed,
		PolymarketCreatedAt: ev.CreatedAt.Ptr(),
		StartTime:           ev.StartDate.Ptr(),
		EndTime:             ev.EndDate.Ptr(),
		ClosedTime:          ev.ClosedTime.Ptr(),
		Tags:                mustJSON(ev.Tags),
	}
}

func buildMarketRow(req *models.CaptureRequest, d *discoveredMarket, eventCategory string) *models.Market {
	m := &d.market

	category := m.Category
	if strings.TrimSpace(category) == "" {
		category = eventCategory
	}

	row := &models.Market{
		CaptureRequestID:    req.ID,
		UserID:              req.UserID,
		PolymarketMarketID:  m.ID,
		Question:            m.Question,
		Slug:                m.Slug,
		ConditionID:         strPtr(m.ConditionID),
		Category:            strPtr(category),
		Outcomes:            mustJSON([]string(m.Outcomes)),
		OutcomePrices:       mustJSON([]string(m.OutcomePrices)),
		ClobTokenIDs:        mustJSON([]string(m.ClobTokenIDs)),
		Active:              m.Active,
		Closed:              m.Closed,
		Volume:              m.Volume.Ptr(),
		Liquidity:           m.Liquidity.Ptr(),
		LastTradePrice:      m.LastTradePrice.Ptr(),
		BestBid:             m.BestBid.Ptr(),
		BestAsk:             m.BestAsk.Ptr(),
		Spread:              m.Spread.Ptr(),
		UmaResolutionStatus: strPtr(m.UmaResolutionStatus),
		ResolvedBy:          strPtr(m.ResolvedBy),
		StartTime:           m.StartDate.Ptr(),
		EndTime:             m.EndDate.Ptr(),
		ClosedTime:          m.ClosedTime.Ptr(),
		PolymarketCreatedAt: m.CreatedAt.Ptr(),
		Tags:                mustJSON(m.Tags),
	}

	if m.Closed {
		row.ResolvedOutcome = deriveResolvedOutcome(m.Outcomes, m.OutcomePrices)
	}

	if d.event != nil {
		row.PolymarketEventID = strPtr(d.event.ID)
		row.EventTitle = strPtr(d.event.Title)
		row.EventSlug = strPtr(d.event.Slug)
	} else if len(m.Events) > 0 {
		row.PolymarketEventID = strPtr(m.Events[0].ID)
		row.EventTitle = strPtr(m.Events[0].Title)
		row.EventSlug = strPtr(m.Events[0].Slug)
	}
	return row
}

// deriveResolvedOutcome returns the first outcome whose final price crossed
// the resolution threshold. Only meaningful for closed markets.
func deriveResolvedOutcome(outcomes, prices []string) *string {
	for i := range outcomes {
		if i >= len(prices) {
			break
		}
		price, err := decimal.NewFromString(prices[i])
		if err != nil {
			continue
		}
		if price.GreaterThanOrEqual(resolvedThreshold) {
			outcome := outcomes[i]
			return &outcome
		}
	}
	return nil
}

// --- price history ----------------------------------------------------------

// captureMarketHistory fetches, stores and downsamples the series for each
// of the market's tokens. A token whose fetch fails is skipped; storage
// errors fail the market.
func (s *ImportService) captureMarketHistory(ctx context.Context, m *models.Market) error {
	tokenIDs := decodeStringJSON(m.ClobTokenIDs)
	outcomes := decodeStringJSON(m.Outcomes)
	if len(tokenIDs) == 0 {
		return nil
	}

	startTs, endTs := marketWindow(m, time.Now().UTC())
	for i, tokenID := range tokenIDs {
		label := fmt.Sprintf("Outcome %d", i)
		if i < len(outcomes) && strings.TrimSpace(outcomes[i]) != "" {
			label = outcomes[i]
		}

		points, err := s.Clob.GetPriceHistory(ctx, tokenID, startTs, endTs, s.fidelity())
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logWarn("price history fetch failed", err,
				zap.String("market_id", m.PolymarketMarketID),
				zap.String("token_id", tokenID))
			continue
		}
		if len(points) > 0 {
			if err := s.storeSeries(ctx, m, tokenID, label, points); err != nil {
				return err
			}
		}
		if err := sleepCtx(ctx, s.clobDelay()); err != nil {
			return err
		}
	}
	return nil
}

func (s *ImportService) storeSeries(ctx context.Context, m *models.Market, tokenID, label string, points []clob.PricePoint) error {
	raw := make([]models.PricePoint, 0, len(points))
	samples := make([]downsample.Point, 0, len(points))
	for _, p := range points {
		raw = append(raw, models.PricePoint{
			MarketID:         m.ID,
			CaptureRequestID: m.CaptureRequestID,
			UserID:           m.UserID,
			ClobTokenID:      tokenID,
			OutcomeLabel:     label,
			TS:               p.TS,
			Price:            p.Price,
		})
		samples = append(samples, downsample.Point{TS: p.TS, Price: p.Price})
	}
	if err := s.Repo.InsertPricePoints(ctx, raw); err != nil {
		return fmt.Errorf("failed to save price history: %w", err)
	}

	reduced := downsample.Summarize(samples, s.tolerance())
	if len(reduced) == 0 {
		return nil
	}
	summaries := make([]models.DailySummary, 0, len(reduced))
	for _, sample := range reduced {
		summaries = append(summaries, models.DailySummary{
			MarketID:         m.ID,
			CaptureRequestID: m.CaptureRequestID,
			UserID:           m.UserID,
			ClobTokenID:      tokenID,
			OutcomeLabel:     label,
			Date:             sample.Date,
			Hour:             sample.Hour,
			Price:            sample.Price,
			NoonPrice:        sample.Price,
			OpenPrice:        sample.Price,
			ClosePrice:       sample.Price,
			HighPrice:        sample.Price,
			LowPrice:         sample.Price,
		})
	}
	if err := s.Repo.UpsertDailySummaries(ctx, summaries); err != nil {
		return fmt.Errorf("failed to save daily summaries: %w", err)
	}
	return nil
}

// marketWindow picks the series bounds for a market. closed_time beats
// end_date because end_date is the scheduled end and can predate the
// actual close; a window that still comes out inverted falls back to now.
func marketWindow(m *models.Market, now time.Time) (int64, int64) {
	start := now.AddDate(-1, 0, 0)
	if m.StartTime != nil {
		start = *m.StartTime
	}
	end := now
	switch {
	case m.ClosedTime != nil:
		end = *m.ClosedTime
	case m.EndTime != nil && m.StartTime != nil && m.EndTime.After(*m.StartTime):
		end = *m.EndTime
	}
	if !end.After(start) {
		end = now
	}
	return start.Unix(), end.Unix()
}

func decodeStringJSON(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

// --- knobs ------------------------------------------------------------------

func (s *ImportService) batchSize() int {
	if s.Config.BatchSize > 0 {
		return s.Config.BatchSize
	}
	return 10
}

func (s *ImportService) eventPageLimit() int {
	if s.Config.EventPageLimit > 0 {
		return s.Config.EventPageLimit
	}
	return 50
}

func (s *ImportService) marketPageLimit() int {
	if s.Config.MarketPageLimit > 0 {
		return s.Config.MarketPageLimit
	}
	return 100
}

func (s *ImportService) fidelity() int {
	if s.Config.Fidelity > 0 {
		return s.Config.Fidelity
	}
	return 60
}

func (s *ImportService) apiDelay() time.Duration {
	if s.Config.APIDelay > 0 {
		return s.Config.APIDelay
	}
	return 100 * time.Millisecond
}

func (s *ImportService) clobDelay() time.Duration {
	if s.Config.ClobDelay > 0 {
		return s.Config.ClobDelay
	}
	return 50 * time.Millisecond
}

func (s *ImportService) tolerance() time.Duration {
	if s.Tolerance > 0 {
		return s.Tolerance
	}
	return downsample.DefaultTolerance
}

func (s *ImportService) fail(ctx context.Context, requestID uint64, cause error) {
	msg := cause.Error()
	if err := s.Repo.UpdateCaptureStatus(ctx, requestID, models.CaptureStatusFailed, &msg); err != nil {
		s.logWarn("failed to mark capture failed", err, zap.Uint64("request_id", requestID))
	}
}

func (s *ImportService) logInfo(msg string, fields ...zap.Field) {
	if s == nil || s.Logger == nil {
		return
	}
	s.Logger.Info(msg, fields...)
}

func (s *ImportService) logWarn(msg string, err error, fields ...zap.Field) {
	if s == nil || s.Logger == nil {
		return
	}
	s.Logger.Warn(msg, append(fields, zap.Error(err))...)
}
