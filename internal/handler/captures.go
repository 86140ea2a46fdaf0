package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/nissand/polymarket-analytics/internal/models"
	"github.com/nissand/polymarket-analytics/internal/repository"
	"github.com/nissand/polymarket-analytics/internal/service"
)

// CaptureHandler serves the capture request lifecycle plus the data
// captured under each request.
type CaptureHandler struct {
	Captures *service.CaptureService
	Skew     *service.SkewService
	Repo     repository.Repository
	Logger   *zap.Logger

	// ProgressInterval is the websocket push cadence; zero means one second.
	ProgressInterval time.Duration
}

func (h *CaptureHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/captures")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.remove)
	g.GET("/:id/events", h.listEvents)
	g.GET("/:id/markets", h.listMarkets)
	g.GET("/:id/skew", h.skew)
	g.GET("/:id/progress", h.progress)
}

type createCaptureRequest struct {
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	SearchTerm     string    `json:"search_term"`
	DateRangeStart time.Time `json:"date_range_start"`
	DateRangeEnd   time.Time `json:"date_range_end"`
	Limit          int       `json:"limit"`
}

// @Summary Create a capture request
// @Tags captures
// @Accept json
// @Param X-User-ID header string true "caller identity"
// @Param body body createCaptureRequest true "capture parameters"
// @Success 201 {object} apiResponse
// @Router /api/v1/captures [post]
func (h *CaptureHandler) create(c *gin.Context) {
	if h.Captures == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req createCaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	item, err := h.Captures.Create(c.Request.Context(), service.CreateCaptureParams{
		UserID:         uid,
		Name:           req.Name,
		Category:       req.Category,
		SearchTerm:     req.SearchTerm,
		DateRangeStart: req.DateRangeStart,
		DateRangeEnd:   req.DateRangeEnd,
		Limit:          req.Limit,
	})
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	Created(c, item)
}

// @Summary List capture requests
// @Tags captures
// @Param X-User-ID header string true "caller identity"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param status query string false "lifecycle status"
// @Success 200 {object} apiResponse
// @Router /api/v1/captures [get]
func (h *CaptureHandler) list(c *gin.Context) {
	if h.Captures == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	uid, ok := userID(c)
	if !ok {
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, total, err := h.Captures.List(c.Request.Context(), uid, repository.ListCaptureRequestsParams{
		Limit:   limit,
		Offset:  offset,
		Status:  strQueryPtr(c, "status"),
		OrderBy: "created_at",
		Asc:     boolPtr(false),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary Get a capture request
// @Tags captures
// @Param X-User-ID header string true "caller identity"
// @Param id path int true "capture request id"
// @Success 200 {object} apiResponse
// @Router /api/v1/captures/{id} [get]
func (h *CaptureHandler) get(c *gin.Context) {
	item, ok := h.ownedRequest(c)
	if !ok {
		return
	}
	Ok(c, item, nil)
}

// @Summary Delete a capture request and everything captured under it
// @Tags captures
// @Param X-User-ID header string true "caller identity"
// @Param id path int true "capture request id"
// @Success 200 {object} apiResponse
// @Router /api/v1/captures/{id} [delete]
func (h *CaptureHandler) remove(c *gin.Context) {
	if h.Captures == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	uid, ok := userID(c)
	if !ok {
		return
	}
	id := idParam(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	if err := h.Captures.Delete(c.Request.Context(), id, uid); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			Error(c, http.StatusNotFound, "capture request not found", nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"deleted": id}, nil)
}

// @Summary List events captured under a request
// @Tags captures
// @Param X-User-ID header string true "caller identity"
// @Param id path int true "capture request id"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/captures/{id}/events [get]
func (h *CaptureHandler) listEvents(c *gin.Context) {
	item, ok := h.ownedRequest(c)
	if !ok {
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListEventsParams{
		Limit:            limit,
		Offset:           offset,
		CaptureRequestID: &item.ID,
		Category:         strQueryPtr(c, "category"),
		Closed:           boolQueryPtr(c, "closed"),
		Search:           strQueryPtr(c, "search"),
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

// @Summary List markets captured under a request
// @Tags captures
// @Param X-User-ID header string true "caller identity"
// @Param id path int true "capture request id"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param resolved query bool false "only markets with a derived outcome"
// @Success 200 {object} apiResponse
// @Router /api/v1/captures/{id}/markets [get]
func (h *CaptureHandler) listMarkets(c *gin.Context) {
	item, ok := h.ownedRequest(c)
	if !ok {
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListMarketsParams{
		Limit:            limit,
		Offset:           offset,
		CaptureRequestID: &item.ID,
		Category:         strQueryPtr(c, "category"),
		Closed:           boolQueryPtr(c, "closed"),
		Resolved:         boolQueryPtr(c, "resolved"),
		Search:           strQueryPtr(c, "search"),
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

// @Summary Price skew analysis for a capture's resolved markets
// @Tags captures
// @Param X-User-ID header string true "caller identity"
// @Param id path int true "capture request id"
// @Success 200 {object} apiResponse
// @Router /api/v1/captures/{id}/skew [get]
func (h *CaptureHandler) skew(c *gin.Context) {
	if h.Skew == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	item, ok := h.ownedRequest(c)
	if !ok {
		return
	}
	report, err := h.Skew.Analyze(c.Request.Context(), item.ID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, report, nil)
}

type progressUpdate struct {
	ID           uint64  `json:"id"`
	Status       string  `json:"status"`
	TotalMarkets int     `json:"total_markets"`
	Processed    int     `json:"processed"`
	Failed       int     `json:"failed"`
	ErrorMessage *string `json:"error_message,omitempty"`
	UpdatedAt    string  `json:"updated_at"`
}

// @Summary Stream capture progress over a websocket
// @Tags captures
// @Param X-User-ID header string true "caller identity"
// @Param id path int true "capture request id"
// @Router /api/v1/captures/{id}/progress [get]
func (h *CaptureHandler) progress(c *gin.Context) {
	item, ok := h.ownedRequest(c)
	if !ok {
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("websocket accept failed", zap.Error(err))
		}
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	ctx := c.Request.Context()
	interval := h.ProgressInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	current := item
	for {
		if err := wsjson.Write(ctx, conn, progressUpdate{
			ID:           current.ID,
			Status:       current.Status,
			TotalMarkets: current.TotalMarkets,
			Processed:    current.Processed,
			Failed:       current.Failed,
			ErrorMessage: current.ErrorMessage,
			UpdatedAt:    current.UpdatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return
		}
		if current.Terminal() {
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		current, err = h.Repo.GetCaptureRequest(ctx, item.ID)
		if err != nil {
			return
		}
		if current == nil {
			// Deleted while streaming.
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

// ownedRequest resolves the :id path parameter to a capture request owned
// by the caller, writing the error response itself when that fails.
func (h *CaptureHandler) ownedRequest(c *gin.Context) (*models.CaptureRequest, bool) {
	if h.Captures == nil || h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
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
	item, err := h.Captures.Get(c.Request.Context(), id, uid)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			Error(c, http.StatusNotFound, "capture request not found", nil)
			return nil, false
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return nil, false
	}
	return item, true
}
