package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nissand/polymarket-analytics/internal/models"
	"github.com/nissand/polymarket-analytics/internal/repository"
)

// EventHandler serves captured events.
type EventHandler struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *EventHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/events")
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.GET("/:id/markets", h.listMarkets)
}

// @Summary List captured events
// @Tags events
// @Param X-User-ID header string true "caller identity"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param category query string false "category"
// @Param search query string false "title contains"
// @Success 200 {object} apiResponse
// @Router /api/v1/events [get]
func (h *EventHandler) list(c *gin.Context) {
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
	params := repository.ListEventsParams{
		Limit:    limit,
		Offset:   offset,
		UserID:   &uid,
		Category: strQueryPtr(c, "category"),
		Closed:   boolQueryPtr(c, "closed"),
		Search:   strQueryPtr(c, "search"),
		OrderBy: parseOrder(c.Query("order_by"), map[string]string{
			"title":       "title",
			"start_time":  "start_time",
			"closed_time": "closed_time",
		}),
		Asc: boolQueryPtr(c, "ascending"),
	}
	items, err := h.Repo.ListEvents(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountEvents(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary Get a captured event
// @Tags events
// @Param X-User-ID header string true "caller identity"
// @Param id path int true "event row id"
// @Success 200 {object} apiResponse
// @Router /api/v1/events/{id} [get]
func (h *EventHandler) get(c *gin.Context) {
	item, ok := h.ownedEvent(c)
	if !ok {
		return
	}
	Ok(c, item, nil)
}

// @Summary List markets under a captured event
// @Tags events
// @Param X-User-ID header string true "caller identity"
// @Param id path int true "event row id"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/events/{id}/markets [get]
func (h *EventHandler) listMarkets(c *gin.Context) {
	item, ok := h.ownedEvent(c)
	if !ok {
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListMarketsParams{
		Limit:   limit,
		Offset:  offset,
		EventID: &item.ID,
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

func (h *EventHandler) ownedEvent(c *gin.Context) (*models.Event, bool) {
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
	item, err := h.Repo.GetEventByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return nil, false
	}
	if item == nil || item.UserID != uid {
		Error(c, http.StatusNotFound, "event not found", nil)
		return nil, false
	}
	return item, true
}
