package gormrepository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nissand/polymarket-analytics/internal/models"
	"github.com/nissand/polymarket-analytics/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- capture requests -------------------------------------------------------

func (s *Store) CreateCaptureRequest(ctx context.Context, item *models.CaptureRequest) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetCaptureRequest(ctx context.Context, id uint64) (*models.CaptureRequest, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.CaptureRequest
	err := s.db.WithContext(ctx).Model(&models.CaptureRequest{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListCaptureRequests(ctx context.Context, params repository.ListCaptureRequestsParams) ([]models.CaptureRequest, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.captureRequestQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.CaptureRequest
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountCaptureRequests(ctx context.Context, params repository.ListCaptureRequestsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.captureRequestQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) captureRequestQuery(ctx context.Context, params repository.ListCaptureRequestsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.CaptureRequest{})
	if params.UserID != nil && strings.TrimSpace(*params.UserID) != "" {
		query = query.Where("user_id = ?", strings.TrimSpace(*params.UserID))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	return query
}

func (s *Store) UpdateCaptureStatus(ctx context.Context, id uint64, status string, errorMessage *string) error {
	if s == nil || s.db == nil {
		return nil
	}
	updates := map[string]any{
		"status":        status,
		"error_message": errorMessage,
		"updated_at":    time.Now().UTC(),
	}
	switch status {
	case models.CaptureStatusCompleted, models.CaptureStatusPartiallyCompleted, models.CaptureStatusFailed:
		updates["completed_at"] = time.Now().UTC()
	}
	return s.db.WithContext(ctx).
		Model(&models.CaptureRequest{}).
		Where("id = ?", id).
		Updates(updates).
		Error
}

func (s *Store) SetCaptureTotal(ctx context.Context, id uint64, total int) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.CaptureRequest{}).
		Where("id = ?", id).
		Updates(map[string]any{"total_markets": total, "updated_at": time.Now().UTC()}).
		Error
}

func (s *Store) IncrementCaptureProgress(ctx context.Context, id uint64, processed, failed int) error {
	if s == nil || s.db == nil {
		return nil
	}
	if processed == 0 && failed == 0 {
		return s.TouchCaptureRequest(ctx, id)
	}
	return s.db.WithContext(ctx).
		Model(&models.CaptureRequest{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"processed":  gorm.Expr("processed + ?", processed),
			"failed":     gorm.Expr("failed + ?", failed),
			"updated_at": time.Now().UTC(),
		}).
		Error
}

// TouchCaptureRequest bumps updated_at so a long-running but healthy batch
// loop is not mistaken for a stuck one.
func (s *Store) TouchCaptureRequest(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.CaptureRequest{}).
		Where("id = ?", id).
		Update("updated_at", time.Now().UTC()).
		Error
}

func (s *Store) ClaimOldestPending(ctx context.Context) (*models.CaptureRequest, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.CaptureRequest
	err := s.db.WithContext(ctx).
		Model(&models.CaptureRequest{}).
		Where("status = ?", models.CaptureStatusPending).
		Order("created_at asc").
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// Conditional update, so concurrent claimers cannot promote the same
	// row twice.
	res := s.db.WithContext(ctx).
		Model(&models.CaptureRequest{}).
		Where("id = ? AND status = ?", item.ID, models.CaptureStatusPending).
		Updates(map[string]any{"status": models.CaptureStatusProcessing, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	item.Status = models.CaptureStatusProcessing
	return &item, nil
}

func (s *Store) AnyProcessing(ctx context.Context) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.CaptureRequest{}).
		Where("status = ?", models.CaptureStatusProcessing).
		Count(&total).Error
	if err != nil {
		return false, err
	}
	return total > 0, nil
}

func (s *Store) FailStuckProcessing(ctx context.Context, olderThan time.Time, message string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.CaptureRequest{}).
		Where("status = ?", models.CaptureStatusProcessing).
		Where("updated_at < ?", olderThan).
		Updates(map[string]any{
			"status":        models.CaptureStatusFailed,
			"error_message": message,
			"completed_at":  time.Now().UTC(),
			"updated_at":    time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (s *Store) DeleteCaptureRequest(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.CaptureRequest{}).Error
}

// --- events -----------------------------------------------------------------

// UpsertEvent deduplicates by the upstream event id. An existing row keeps
// its original capture attribution; only category, closed and closed_time
// are refreshed.
func (s *Store) UpsertEvent(ctx context.Context, item *models.Event) (uint64, error) {
	if s == nil || s.db == nil || item == nil {
		return 0, nil
	}
	var existing models.Event
	err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("polymarket_event_id = ?", item.PolymarketEventID).
		First(&existing).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return 0, err
	}
	if err == nil {
		updates := map[string]any{
			"category":    item.Category,
			"closed":      item.Closed,
			"closed_time": item.ClosedTime,
			"updated_at":  time.Now().UTC(),
		}
		if err := s.db.WithContext(ctx).
			Model(&models.Event{}).
			Where("id = ?", existing.ID).
			Updates(updates).Error; err != nil {
			return 0, err
		}
		return existing.ID, nil
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return 0, err
	}
	return item.ID, nil
}

func (s *Store) GetEventByID(ctx context.Context, id uint64) (*models.Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Event
	err := s.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetEventByPolymarketID(ctx context.Context, polymarketEventID string) (*models.Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	polymarketEventID = strings.TrimSpace(polymarketEventID)
	if polymarketEventID == "" {
		return nil, nil
	}
	var item models.Event
	err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("polymarket_event_id = ?", polymarketEventID).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListEvents(ctx context.Context, params repository.ListEventsParams) ([]models.Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.eventQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.Event
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountEvents(ctx context.Context, params repository.ListEventsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.eventQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) eventQuery(ctx context.Context, params repository.ListEventsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Event{})
	if params.UserID != nil && strings.TrimSpace(*params.UserID) != "" {
		query = query.Where("user_id = ?", strings.TrimSpace(*params.UserID))
	}
	if params.CaptureRequestID != nil {
		query = query.Where("capture_request_id = ?", *params.CaptureRequestID)
	}
	if params.Category != nil && strings.TrimSpace(*params.Category) != "" {
		query = query.Where("category = ?", strings.TrimSpace(*params.Category))
	}
	if params.Closed != nil {
		query = query.Where("closed = ?", *params.Closed)
	}
	if params.Search != nil && strings.TrimSpace(*params.Search) != "" {
		needle := "%" + strings.TrimSpace(*params.Search) + "%"
		query = query.Where("title ILIKE ?", needle)
	}
	return query
}

func (s *Store) DeleteEventsByCaptureID(ctx context.Context, captureRequestID uint64, batchSize int) (int64, error) {
	return s.deleteBatched(ctx, &models.Event{}, captureRequestID, batchSize)
}

// --- markets ----------------------------------------------------------------

func (s *Store) InsertMarket(ctx context.Context, item *models.Market) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetMarketByID(ctx context.Context, id uint64) (*models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Market
	err := s.db.WithContext(ctx).Model(&models.Market{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) LinkMarketEvent(ctx context.Context, marketID, eventID uint64, category *string) error {
	if s == nil || s.db == nil {
		return nil
	}
	updates := map[string]any{
		"event_id":   eventID,
		"updated_at": time.Now().UTC(),
	}
	if category != nil && strings.TrimSpace(*category) != "" {
		updates["category"] = *category
	}
	return s.db.WithContext(ctx).
		Model(&models.Market{}).
		Where("id = ?", marketID).
		Updates(updates).
		Error
}

func (s *Store) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.marketQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.Market
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountMarkets(ctx context.Context, params repository.ListMarketsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.marketQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) marketQuery(ctx context.Context, params repository.ListMarketsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Market{})
	if params.UserID != nil && strings.TrimSpace(*params.UserID) != "" {
		query = query.Where("user_id = ?", strings.TrimSpace(*params.UserID))
	}
	if params.CaptureRequestID != nil {
		query = query.Where("capture_request_id = ?", *params.CaptureRequestID)
	}
	if params.EventID != nil {
		query = query.Where("event_id = ?", *params.EventID)
	}
	if params.Category != nil && strings.TrimSpace(*params.Category) != "" {
		query = query.Where("category = ?", strings.TrimSpace(*params.Category))
	}
	if params.Closed != nil {
		query = query.Where("closed = ?", *params.Closed)
	}
	if params.Resolved != nil {
		if *params.Resolved {
			query = query.Where("resolved_outcome IS NOT NULL")
		} else {
			query = query.Where("resolved_outcome IS NULL")
		}
	}
	if params.Search != nil && strings.TrimSpace(*params.Search) != "" {
		needle := "%" + strings.TrimSpace(*params.Search) + "%"
		query = query.Where("question ILIKE ?", needle)
	}
	return query
}

func (s *Store) ListResolvedMarketsByCaptureID(ctx context.Context, captureRequestID uint64) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Market
	err := s.db.WithContext(ctx).
		Model(&models.Market{}).
		Where("capture_request_id = ?", captureRequestID).
		Where("resolved_outcome IS NOT NULL").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteMarketsByCaptureID(ctx context.Context, captureRequestID uint64, batchSize int) (int64, error) {
	return s.deleteBatched(ctx, &models.Market{}, captureRequestID, batchSize)
}

// --- price history ----------------------------------------------------------

func (s *Store) InsertPricePoints(ctx context.Context, items []models.PricePoint) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return createInBatches(s.db.WithContext(ctx), items, 500)
}

func (s *Store) ListPricePoints(ctx context.Context, params repository.ListPricePointsParams) ([]models.PricePoint, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Model(&models.PricePoint{}).
		Where("market_id = ?", params.MarketID)
	if params.ClobTokenID != nil && strings.TrimSpace(*params.ClobTokenID) != "" {
		query = query.Where("clob_token_id = ?", strings.TrimSpace(*params.ClobTokenID))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("ts >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("ts <= ?", *params.Until)
	}
	limit := normalizeLimit(params.Limit, 5000)
	offset := normalizeOffset(params.Offset)
	var items []models.PricePoint
	if err := query.Order("ts asc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeletePricePointsByCaptureID(ctx context.Context, captureRequestID uint64, batchSize int) (int64, error) {
	return s.deleteBatched(ctx, &models.PricePoint{}, captureRequestID, batchSize)
}

// --- daily summaries --------------------------------------------------------

func (s *Store) UpsertDailySummaries(ctx context.Context, items []models.DailySummary) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	db := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "market_id"},
			{Name: "clob_token_id"},
			{Name: "date"},
			{Name: "hour"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"price",
			"noon_price",
			"open_price",
			"close_price",
			"high_price",
			"low_price",
		}),
	})
	return createInBatches(db, items, 200)
}

func (s *Store) ListDailySummaries(ctx context.Context, params repository.ListDailySummariesParams) ([]models.DailySummary, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Model(&models.DailySummary{}).
		Where("market_id = ?", params.MarketID)
	if params.ClobTokenID != nil && strings.TrimSpace(*params.ClobTokenID) != "" {
		query = query.Where("clob_token_id = ?", strings.TrimSpace(*params.ClobTokenID))
	}
	if params.DateFrom != nil && *params.DateFrom != "" {
		query = query.Where("date >= ?", *params.DateFrom)
	}
	if params.DateTo != nil && *params.DateTo != "" {
		query = query.Where("date <= ?", *params.DateTo)
	}
	var items []models.DailySummary
	if err := query.Order("date asc, hour asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListDailySummariesByMarketIDs(ctx context.Context, marketIDs []uint64) ([]models.DailySummary, error) {
	if s == nil || s.db == nil || len(marketIDs) == 0 {
		return nil, nil
	}
	var items []models.DailySummary
	err := s.db.WithContext(ctx).
		Model(&models.DailySummary{}).
		Where("market_id IN ?", marketIDs).
		Order("market_id asc, date asc, hour asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteDailySummariesByCaptureID(ctx context.Context, captureRequestID uint64, batchSize int) (int64, error) {
	return s.deleteBatched(ctx, &models.DailySummary{}, captureRequestID, batchSize)
}

// --- tags -------------------------------------------------------------------

func (s *Store) UpsertTags(ctx context.Context, items []models.Tag) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	db := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"label",
			"slug",
			"last_fetched_at",
		}),
	})
	return createInBatches(db, items, 200)
}

func (s *Store) ListTags(ctx context.Context, limit, offset int) ([]models.Tag, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 200)
	offset = normalizeOffset(offset)
	var items []models.Tag
	err := s.db.WithContext(ctx).
		Model(&models.Tag{}).
		Order("label asc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTags(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Tag{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// --- dashboard --------------------------------------------------------------

func (s *Store) DashboardStats(ctx context.Context, userID string) (repository.DashboardStats, error) {
	var stats repository.DashboardStats
	if s == nil || s.db == nil {
		return stats, nil
	}
	userID = strings.TrimSpace(userID)

	type statusRow struct {
		Status string
		Total  int64
	}
	var rows []statusRow
	query := s.db.WithContext(ctx).
		Model(&models.CaptureRequest{}).
		Select("status, COUNT(*) AS total").
		Group("status")
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return stats, err
	}
	for _, row := range rows {
		stats.TotalRequests += row.Total
		switch row.Status {
		case models.CaptureStatusPending:
			stats.PendingRequests = row.Total
		case models.CaptureStatusProcessing:
			stats.ActiveRequests = row.Total
		case models.CaptureStatusCompleted, models.CaptureStatusPartiallyCompleted:
			stats.CompletedRequests += row.Total
		case models.CaptureStatusFailed:
			stats.FailedRequests = row.Total
		}
	}

	counts := []struct {
		model any
		out   *int64
	}{
		{&models.Event{}, &stats.TotalEvents},
		{&models.Market{}, &stats.TotalMarkets},
		{&models.PricePoint{}, &stats.TotalPricePoints},
	}
	for _, c := range counts {
		query := s.db.WithContext(ctx).Model(c.model)
		if userID != "" {
			query = query.Where("user_id = ?", userID)
		}
		if err := query.Count(c.out).Error; err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// --- helpers ----------------------------------------------------------------

// deleteBatched removes rows attributed to a capture request in bounded
// batches so a large capture cannot hold one long transaction.
func (s *Store) deleteBatched(ctx context.Context, model any, captureRequestID uint64, batchSize int) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	var deleted int64
	for {
		res := s.db.WithContext(ctx).
			Where("id IN (?)", s.db.
				Model(model).
				Select("id").
				Where("capture_request_id = ?", captureRequestID).
				Limit(batchSize)).
			Delete(model)
		if res.Error != nil {
			return deleted, res.Error
		}
		deleted += res.RowsAffected
		if res.RowsAffected < int64(batchSize) {
			return deleted, nil
		}
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
	}
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func createInBatches[T any](db *gorm.DB, items []T, batchSize int) error {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		if err := db.CreateInBatches(items[i:end], batchSize).Error; err != nil {
			return err
		}
	}
	return nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 10000 {
		return 10000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
