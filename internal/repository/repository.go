package repository

import (
	"context"
	"time"

	"github.com/nissand/polymarket-analytics/internal/models"
)

// Repository is the persistence surface used by the capture services and
// handlers.
type Repository interface {
	// Capture requests.
	CreateCaptureRequest(ctx context.Context, item *models.CaptureRequest) error
	GetCaptureRequest(ctx context.Context, id uint64) (*models.CaptureRequest, error)
	ListCaptureRequests(ctx context.Context, params ListCaptureRequestsParams) ([]models.CaptureRequest, error)
	CountCaptureRequests(ctx context.Context, params ListCaptureRequestsParams) (int64, error)
	UpdateCaptureStatus(ctx context.Context, id uint64, status string, errorMessage *string) error
	SetCaptureTotal(ctx context.Context, id uint64, total int) error
	IncrementCaptureProgress(ctx context.Context, id uint64, processed, failed int) error
	TouchCaptureRequest(ctx context.Context, id uint64) error
	// ClaimOldestPending promotes the oldest pending request to processing
	// and returns it, or nil when no pending request exists or another
	// worker won the claim.
	ClaimOldestPending(ctx context.Context) (*models.CaptureRequest, error)
	AnyProcessing(ctx context.Context) (bool, error)
	FailStuckProcessing(ctx context.Context, olderThan time.Time, message string) (int64, error)
	DeleteCaptureRequest(ctx context.Context, id uint64) error

	// Events.
	UpsertEvent(ctx context.Context, item *models.Event) (uint64, error)
	GetEventByID(ctx context.Context, id uint64) (*models.Event, error)
	GetEventByPolymarketID(ctx context.Context, polymarketEventID string) (*models.Event, error)
	ListEvents(ctx context.Context, params ListEventsParams) ([]models.Event, error)
	CountEvents(ctx context.Context, params ListEventsParams) (int64, error)
	DeleteEventsByCaptureID(ctx context.Context, captureRequestID uint64, batchSize int) (int64, error)

	// Markets.
	InsertMarket(ctx context.Context, item *models.Market) error
	GetMarketByID(ctx context.Context, id uint64) (*models.Market, error)
	// LinkMarketEvent attaches a market to an event row, optionally
	// refreshing its category from the event.
	LinkMarketEvent(ctx context.Context, marketID, eventID uint64, category *string) error
	ListMarkets(ctx context.Context, params ListMarketsParams) ([]models.Market, error)
	CountMarkets(ctx context.Context, params ListMarketsParams) (int64, error)
	ListResolvedMarketsByCaptureID(ctx context.Context, captureRequestID uint64) ([]models.Market, error)
	DeleteMarketsByCaptureID(ctx context.Context, captureRequestID uint64, batchSize int) (int64, error)

	// Raw price history.
	InsertPricePoints(ctx context.Context, items []models.PricePoint) error
	ListPricePoints(ctx context.Context, params ListPricePointsParams) ([]models.PricePoint, error)
	DeletePricePointsByCaptureID(ctx context.Context, captureRequestID uint64, batchSize int) (int64, error)

	// Downsampled daily summaries.
	UpsertDailySummaries(ctx context.Context, items []models.DailySummary) error
	ListDailySummaries(ctx context.Context, params ListDailySummariesParams) ([]models.DailySummary, error)
	ListDailySummariesByMarketIDs(ctx context.Context, marketIDs []uint64) ([]models.DailySummary, error)
	DeleteDailySummariesByCaptureID(ctx context.Context, captureRequestID uint64, batchSize int) (int64, error)

	// Tag catalog.
	UpsertTags(ctx context.Context, items []models.Tag) error
	ListTags(ctx context.Context, limit, offset int) ([]models.Tag, error)
	CountTags(ctx context.Context) (int64, error)

	// Dashboard aggregates.
	DashboardStats(ctx context.Context, userID string) (DashboardStats, error)
}

type ListCaptureRequestsParams struct {
	Limit   int
	Offset  int
	UserID  *string
	Status  *string
	OrderBy string
	Asc     *bool
}

type ListEventsParams struct {
	Limit            int
	Offset           int
	UserID           *string
	CaptureRequestID *uint64
	Category         *string
	Closed           *bool
	Search           *string
	OrderBy          string
	Asc              *bool
}

type ListMarketsParams struct {
	Limit            int
	Offset           int
	UserID           *string
	CaptureRequestID *uint64
	EventID          *uint64
	Category         *string
	Closed           *bool
	Resolved         *bool
	Search           *string
	OrderBy          string
	Asc              *bool
}

type ListPricePointsParams struct {
	MarketID    uint64
	ClobTokenID *string
	Since       *time.Time
	Until       *time.Time
	Limit       int
	Offset      int
}

type ListDailySummariesParams struct {
	MarketID    uint64
	ClobTokenID *string
	DateFrom    *string
	DateTo      *string
}

type DashboardStats struct {
	TotalRequests     int64 `json:"total_requests"`
	PendingRequests   int64 `json:"pending_requests"`
	ActiveRequests    int64 `json:"active_requests"`
	CompletedRequests int64 `json:"completed_requests"`
	FailedRequests    int64 `json:"failed_requests"`
	TotalEvents       int64 `json:"total_events"`
	TotalMarkets      int64 `json:"total_markets"`
	TotalPricePoints  int64 `json:"total_price_points"`
}
