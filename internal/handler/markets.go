package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nissand/polymarket-analytics/internal/models"
	"github.com/nissand/polymarket-analytics/internal/repository"
)

// MarketHandler serves captured markets and their raw and downsampled
// price series.
type MarketHandler struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *MarketHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/markets")
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.GET("/:id/history", h.history)
	g.GET("/:id/daily-summary", h.dailySummary)
}

// @Summary List captured markets
// @Tags markets
// @Param X-User-ID header string true "caller identity"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param category query string false "category"
// @Param resolved query bool false "only markets with a derived outcome"
// @Param search query string false "question contains"
// @Success 200 {object} apiResponse
// @Router /api/v1/markets [get]
func (h *MarketHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	uid, ok := userID(c)
	if !ok {
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListMarketsParams{
		Limit:    limit,
		Offset:   offset,
		UserID:   &uid,
		Category: strQueryPtr(c, "category"),
		Closed:   boolQueryPtr(c, "closed"),
		Resolved: boolQueryPtr(c, "resolved"),
		Search:   strQueryPtr(c, "search"),
		OrderBy: parseOrder(c.Query("order_by"), map[string]string{
			"question":   "question",
			"volume":     "volume",
			"liquidity":  "liquidity",
			"start_time": "start_time",
		}),
		Asc: boolQueryPtr(c, "ascending"),
	}
	items, err := h.Repo.ListMarkets(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountMarkets(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary Get a captured market
// @Tags markets
// @Param X-User-ID header string true "caller identity"
// @Param id path int true "market row id"
// @Success 200 {object} apiResponse
// @Router /api/v1/markets/{id} [get]
func (h *MarketHandler) get(c *gin.Context) {
	item, ok := h.ownedMarket(c)
	if !ok {
		return
	}
	Ok(c, item, nil)
}

// @Summary Raw price history for a market
// @Tags markets
// @Param X-User-ID header string true "caller identity"
// @Param id path int true "market row id"
// @Param token query string false "clob token id"
// @Param since query string false "RFC3339 lower bound"
// @Param until query string false "RFC3339 upper bound"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/markets/{id}/history [get]
func (h *MarketHandler) history(c *gin.Context) {
	item, ok := h.ownedMarket(c)
	if !ok {
		return
	}
	points, err := h.Repo.ListPricePoints(c.Request.Context(), repository.ListPricePointsParams{
		MarketID:    item.ID,
		ClobTokenID: strQueryPtr(c, "token"),
		Since:       timeQueryPtr(c, "since"),
		Until:       timeQueryPtr(c, "until"),
		Limit:       intQuery(c, "limit", 0),
		Offset:      intQuery(c, "offset", 0),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, points, nil)
}

// @Summary Downsampled daily price summary for a market
// @Tags markets
// @Param X-User-ID header string true "caller identity"
// @Param id path int true "market row id"
// @Param token query string false "clob token id"
// @Param date_from query string false "YYYY-MM-DD lower bound"
// @Param date_to query string false "YYYY-MM-DD upper bound"
// @Success 200 {object} apiResponse
// @Router /api/v1/markets/{id}/daily-summary [get]
func (h *MarketHandler) dailySummary(c *gin.Context) {
	item, ok := h.ownedMarket(c)
	if !ok {
		return
	}
	rows, err := h.Repo.ListDailySummaries(c.Request.Context(), repository.ListDailySummariesParams{
		MarketID:    item.ID,
		ClobTokenID: strQueryPtr(c, "token"),
		DateFrom:    strQueryPtr(c, "date_from"),
		DateTo:      strQueryPtr(c, "date_to"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, rows, nil)
}

func (h *MarketHandler) ownedMarket(c *gin.Context) (*models.Market, bool) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return nil, false
	}
	uid, ok := userID(c)
	if !ok {
		return nil, false
	}
	id := idParam(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return nil, false
	}
	item, err := h.Repo.GetMarketByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return nil, false
	}
	if item == nil || item.UserID != uid {
		Error(c, http.StatusNotFound, "market not found", nil)
		return nil, false
	}
	return item, true
}
