package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nissand/polymarket-analytics/internal/config"
	"github.com/nissand/polymarket-analytics/internal/models"
	"github.com/nissand/polymarket-analytics/internal/repository"
)

// ErrNotFound is returned when a capture request does not exist or belongs
// to another user.
var ErrNotFound = errors.New("capture request not found")

// deletingSentinel parks a request in a terminal state before its data is
// cascaded away, so the scheduler and any in-flight batch loop let go of it.
const deletingSentinel = "Deleting"

// CaptureService owns the request lifecycle around the importer: create,
// list, inspect and cascade-delete.
type CaptureService struct {
	Repo   repository.Repository
	Config config.CaptureConfig
	Logger *zap.Logger
}

type CreateCaptureParams struct {
	UserID         string
	Name           string
	Category       string
	SearchTerm     string
	DateRangeStart time.Time
	DateRangeEnd   time.Time
	Limit          int
}

func (s *CaptureService) Create(ctx context.Context, p CreateCaptureParams) (*models.CaptureRequest, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if p.DateRangeStart.IsZero() || p.DateRangeEnd.IsZero() {
		return nil, fmt.Errorf("date range is required")
	}
	if !p.DateRangeStart.Before(p.DateRangeEnd) {
		return nil, fmt.Errorf("date range start must be before end")
	}
	if p.DateRangeEnd.After(time.Now().UTC()) {
		return nil, fmt.Errorf("date range end must not be in the future")
	}
	limit := p.Limit
	if limit <= 0 {
		limit = s.defaultLimit()
	}

	item := &models.CaptureRequest{
		UserID:         strings.TrimSpace(p.UserID),
		Name:           strPtr(p.Name),
		Status:         models.CaptureStatusPending,
		Category:       strPtr(p.Category),
		SearchTerm:     strPtr(p.SearchTerm),
		DateRangeStart: p.DateRangeStart.UTC(),
		DateRangeEnd:   p.DateRangeEnd.UTC(),
		MarketLimit:    limit,
	}
	if err := s.Repo.CreateCaptureRequest(ctx, item); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("capture request created",
			zap.Uint64("request_id", item.ID),
			zap.String("user_id", item.UserID),
			zap.Int("limit", limit))
	}
	return item, nil
}

func (s *CaptureService) List(ctx context.Context, userID string, params repository.ListCaptureRequestsParams) ([]models.CaptureRequest, int64, error) {
	params.UserID = strPtr(userID)
	items, err := s.Repo.ListCaptureRequests(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.CountCaptureRequests(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *CaptureService) Get(ctx context.Context, id uint64, userID string) (*models.CaptureRequest, error) {
	item, err := s.Repo.GetCaptureRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.UserID != userID {
		return nil, ErrNotFound
	}
	return item, nil
}

// Delete cascades a request and everything captured under it. The request
// is first parked terminal so nothing keeps writing while rows disappear,
// then each collection is removed in bounded batches, children before
// parents.
func (s *CaptureService) Delete(ctx context.Context, id uint64, userID string) error {
	item, err := s.Get(ctx, id, userID)
	if err != nil {
		return err
	}

	msg := deletingSentinel
	if err := s.Repo.UpdateCaptureStatus(ctx, id, models.CaptureStatusFailed, &msg); err != nil {
		return err
	}

	batch := s.deleteBatchSize()
	summaries, err := s.Repo.DeleteDailySummariesByCaptureID(ctx, id, batch)
	if err != nil {
		return err
	}
	points, err := s.Repo.DeletePricePointsByCaptureID(ctx, id, batch)
	if err != nil {
		return err
	}
	markets, err := s.Repo.DeleteMarketsByCaptureID(ctx, id, batch)
	if err != nil {
		return err
	}
	events, err := s.Repo.DeleteEventsByCaptureID(ctx, id, batch)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteCaptureRequest(ctx, id); err != nil {
		return err
	}

	if s.Logger != nil {
		s.Logger.Info("capture request deleted",
			zap.Uint64("request_id", item.ID),
			zap.Int64("summaries", summaries),
			zap.Int64("price_points", points),
			zap.Int64("markets", markets),
			zap.Int64("events", events))
	}
	return nil
}

func (s *CaptureService) defaultLimit() int {
	if s.Config.DefaultLimit > 0 {
		return s.Config.DefaultLimit
	}
	return 100
}

func (s *CaptureService) deleteBatchSize() int {
	if s.Config.DeleteBatchSize > 0 {
		return s.Config.DeleteBatchSize
	}
	return 500
}
