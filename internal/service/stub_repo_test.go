package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nissand/polymarket-analytics/internal/models"
	"github.com/nissand/polymarket-analytics/internal/repository"
)

// stubRepo is a test-only in-memory implementation of
// repository.Repository, functional enough to drive the importer and
// scheduler end to end.
type stubRepo struct {
	mu        sync.Mutex
	nextID    uint64
	clock     time.Time
	requests  map[uint64]*models.CaptureRequest
	events    []models.Event
	markets   []models.Market
	points    []models.PricePoint
	summaries []models.DailySummary
	tags      map[string]models.Tag

	// Failure injection.
	failPointsForMarket uint64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		clock:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		requests: map[uint64]*models.CaptureRequest{},
		tags:     map[string]models.Tag{},
	}
}

func (s *stubRepo) nextIDLocked() uint64 {
	s.nextID++
	return s.nextID
}

func (s *stubRepo) tickLocked() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *stubRepo) CreateCaptureRequest(ctx context.Context, item *models.CaptureRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = s.nextIDLocked()
	now := s.tickLocked()
	item.CreatedAt = now
	item.UpdatedAt = now
	cp := *item
	s.requests[item.ID] = &cp
	return nil
}

func (s *stubRepo) GetCaptureRequest(ctx context.Context, id uint64) (*models.CaptureRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (s *stubRepo) ListCaptureRequests(ctx context.Context, params repository.ListCaptureRequestsParams) ([]models.CaptureRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CaptureRequest
	for _, item := range s.requests {
		if params.UserID != nil && item.UserID != *params.UserID {
			continue
		}
		if params.Status != nil && item.Status != *params.Status {
			continue
		}
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) CountCaptureRequests(ctx context.Context, params repository.ListCaptureRequestsParams) (int64, error) {
	items, _ := s.ListCaptureRequests(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) UpdateCaptureStatus(ctx context.Context, id uint64, status string, errorMessage *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.requests[id]
	if !ok {
		return nil
	}
	item.Status = status
	item.ErrorMessage = errorMessage
	item.UpdatedAt = s.tickLocked()
	switch status {
	case models.CaptureStatusCompleted, models.CaptureStatusPartiallyCompleted, models.CaptureStatusFailed:
		done := item.UpdatedAt
		item.CompletedAt = &done
	}
	return nil
}

func (s *stubRepo) SetCaptureTotal(ctx context.Context, id uint64, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.requests[id]; ok {
		item.TotalMarkets = total
		item.UpdatedAt = s.tickLocked()
	}
	return nil
}

func (s *stubRepo) IncrementCaptureProgress(ctx context.Context, id uint64, processed, failed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.requests[id]; ok {
		item.Processed += processed
		item.Failed += failed
		item.UpdatedAt = s.tickLocked()
	}
	return nil
}

func (s *stubRepo) TouchCaptureRequest(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.requests[id]; ok {
		item.UpdatedAt = s.tickLocked()
	}
	return nil
}

func (s *stubRepo) ClaimOldestPending(ctx context.Context) (*models.CaptureRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest *models.CaptureRequest
	for _, item := range s.requests {
		if item.Status != models.CaptureStatusPending {
			continue
		}
		if oldest == nil || item.CreatedAt.Before(oldest.CreatedAt) {
			oldest = item
		}
	}
	if oldest == nil {
		return nil, nil
	}
	oldest.Status = models.CaptureStatusProcessing
	oldest.UpdatedAt = s.tickLocked()
	cp := *oldest
	return &cp, nil
}

func (s *stubRepo) AnyProcessing(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.requests {
		if item.Status == models.CaptureStatusProcessing {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubRepo) FailStuckProcessing(ctx context.Context, olderThan time.Time, message string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, item := range s.requests {
		if item.Status == models.CaptureStatusProcessing && item.UpdatedAt.Before(olderThan) {
			item.Status = models.CaptureStatusFailed
			msg := message
			item.ErrorMessage = &msg
			done := s.tickLocked()
			item.CompletedAt = &done
			item.UpdatedAt = done
			count++
		}
	}
	return count, nil
}

func (s *stubRepo) DeleteCaptureRequest(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.requests, id)
	return nil
}

func (s *stubRepo) UpsertEvent(ctx context.Context, item *models.Event) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].PolymarketEventID == item.PolymarketEventID {
			s.events[i].Category = item.Category
			s.events[i].Closed = item.Closed
			s.events[i].ClosedTime = item.ClosedTime
			return s.events[i].ID, nil
		}
	}
	item.ID = s.nextIDLocked()
	s.events = append(s.events, *item)
	return item.ID, nil
}

func (s *stubRepo) GetEventByID(ctx context.Context, id uint64) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == id {
			cp := s.events[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) GetEventByPolymarketID(ctx context.Context, polymarketEventID string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].PolymarketEventID == polymarketEventID {
			cp := s.events[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListEvents(ctx context.Context, params repository.ListEventsParams) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, item := range s.events {
		if params.CaptureRequestID != nil && item.CaptureRequestID != *params.CaptureRequestID {
			continue
		}
		if params.UserID != nil && item.UserID != *params.UserID {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *stubRepo) CountEvents(ctx context.Context, params repository.ListEventsParams) (int64, error) {
	items, _ := s.ListEvents(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) DeleteEventsByCaptureID(ctx context.Context, captureRequestID uint64, batchSize int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []models.Event
	var deleted int64
	for _, item := range s.events {
		if item.CaptureRequestID == captureRequestID {
			deleted++
			continue
		}
		kept = append(kept, item)
	}
	s.events = kept
	return deleted, nil
}

func (s *stubRepo) InsertMarket(ctx context.Context, item *models.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = s.nextIDLocked()
	s.markets = append(s.markets, *item)
	return nil
}

func (s *stubRepo) GetMarketByID(ctx context.Context, id uint64) (*models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.markets {
		if s.markets[i].ID == id {
			cp := s.markets[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) LinkMarketEvent(ctx context.Context, marketID, eventID uint64, category *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.markets {
		if s.markets[i].ID != marketID {
			continue
		}
		id := eventID
		s.markets[i].EventID = &id
		if category != nil && *category != "" {
			cp := *category
			s.markets[i].Category = &cp
		}
		return nil
	}
	return nil
}

func (s *stubRepo) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.Market
	for _, item := range s.markets {
		if params.CaptureRequestID != nil && item.CaptureRequestID != *params.CaptureRequestID {
			continue
		}
		if params.UserID != nil && item.UserID != *params.UserID {
			continue
		}
		if params.EventID != nil && (item.EventID == nil || *item.EventID != *params.EventID) {
			continue
		}
		all = append(all, item)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	offset := params.Offset
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if params.Limit > 0 && len(all) > params.Limit {
		all = all[:params.Limit]
	}
	return all, nil
}

func (s *stubRepo) CountMarkets(ctx context.Context, params repository.ListMarketsParams) (int64, error) {
	params.Limit = 0
	params.Offset = 0
	items, _ := s.ListMarkets(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) ListResolvedMarketsByCaptureID(ctx context.Context, captureRequestID uint64) ([]models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Market
	for _, item := range s.markets {
		if item.CaptureRequestID == captureRequestID && item.ResolvedOutcome != nil {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubRepo) DeleteMarketsByCaptureID(ctx context.Context, captureRequestID uint64, batchSize int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []models.Market
	var deleted int64
	for _, item := range s.markets {
		if item.CaptureRequestID == captureRequestID {
			deleted++
			continue
		}
		kept = append(kept, item)
	}
	s.markets = kept
	return deleted, nil
}

func (s *stubRepo) InsertPricePoints(ctx context.Context, items []models.PricePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPointsForMarket != 0 {
		for _, item := range items {
			if item.MarketID == s.failPointsForMarket {
				return errStubFailure
			}
		}
	}
	s.points = append(s.points, items...)
	return nil
}

func (s *stubRepo) ListPricePoints(ctx context.Context, params repository.ListPricePointsParams) ([]models.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PricePoint
	for _, item := range s.points {
		if item.MarketID != params.MarketID {
			continue
		}
		if params.ClobTokenID != nil && item.ClobTokenID != *params.ClobTokenID {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TS.Before(out[j].TS) })
	return out, nil
}

func (s *stubRepo) DeletePricePointsByCaptureID(ctx context.Context, captureRequestID uint64, batchSize int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []models.PricePoint
	var deleted int64
	for _, item := range s.points {
		if item.CaptureRequestID == captureRequestID {
			deleted++
			continue
		}
		kept = append(kept, item)
	}
	s.points = kept
	return deleted, nil
}

func (s *stubRepo) UpsertDailySummaries(ctx context.Context, items []models.DailySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		replaced := false
		for i := range s.summaries {
			existing := &s.summaries[i]
			if existing.MarketID == item.MarketID &&
				existing.ClobTokenID == item.ClobTokenID &&
				existing.Date == item.Date &&
				existing.Hour == item.Hour {
				*existing = item
				replaced = true
				break
			}
		}
		if !replaced {
			item.ID = s.nextIDLocked()
			s.summaries = append(s.summaries, item)
		}
	}
	return nil
}

func (s *stubRepo) ListDailySummaries(ctx context.Context, params repository.ListDailySummariesParams) ([]models.DailySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DailySummary
	for _, item := range s.summaries {
		if item.MarketID != params.MarketID {
			continue
		}
		if params.ClobTokenID != nil && item.ClobTokenID != *params.ClobTokenID {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Hour < out[j].Hour
	})
	return out, nil
}

func (s *stubRepo) ListDailySummariesByMarketIDs(ctx context.Context, marketIDs []uint64) ([]models.DailySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[uint64]struct{}{}
	for _, id := range marketIDs {
		want[id] = struct{}{}
	}
	var out []models.DailySummary
	for _, item := range s.summaries {
		if _, ok := want[item.MarketID]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubRepo) DeleteDailySummariesByCaptureID(ctx context.Context, captureRequestID uint64, batchSize int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []models.DailySummary
	var deleted int64
	for _, item := range s.summaries {
		if item.CaptureRequestID == captureRequestID {
			deleted++
			continue
		}
		kept = append(kept, item)
	}
	s.summaries = kept
	return deleted, nil
}

func (s *stubRepo) UpsertTags(ctx context.Context, items []models.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.tags[item.ID] = item
	}
	return nil
}

func (s *stubRepo) ListTags(ctx context.Context, limit, offset int) ([]models.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Tag
	for _, item := range s.tags {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].Label, out[j].Label) < 0 })
	return out, nil
}

func (s *stubRepo) CountTags(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.tags)), nil
}

func (s *stubRepo) DashboardStats(ctx context.Context, userID string) (repository.DashboardStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats repository.DashboardStats
	for _, item := range s.requests {
		if userID != "" && item.UserID != userID {
			continue
		}
		stats.TotalRequests++
		switch item.Status {
		case models.CaptureStatusPending:
			stats.PendingRequests++
		case models.CaptureStatusProcessing:
			stats.ActiveRequests++
		case models.CaptureStatusCompleted, models.CaptureStatusPartiallyCompleted:
			stats.CompletedRequests++
		case models.CaptureStatusFailed:
			stats.FailedRequests++
		}
	}
	for _, item := range s.events {
		if userID == "" || item.UserID == userID {
			stats.TotalEvents++
		}
	}
	for _, item := range s.markets {
		if userID == "" || item.UserID == userID {
			stats.TotalMarkets++
		}
	}
	for _, item := range s.points {
		if userID == "" || item.UserID == userID {
			stats.TotalPricePoints++
		}
	}
	return stats, nil
}
