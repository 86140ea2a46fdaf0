package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nissand/polymarket-analytics/internal/repository"
)

// AnalyticsHandler serves cross-capture aggregates.
type AnalyticsHandler struct {
	Repo repository.Repository
}

func (h *AnalyticsHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/dashboard/stats", h.dashboardStats)
}

// @Summary Dashboard counters for the caller's captures
// @Tags analytics
// @Param X-User-ID header string true "caller identity"
// @Success 200 {object} apiResponse
// @Router /api/v1/dashboard/stats [get]
func (h *AnalyticsHandler) dashboardStats(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	uid, ok := userID(c)
	if !ok {
		return
	}
	stats, err := h.Repo.DashboardStats(c.Request.Context(), uid)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, stats, nil)
}
