package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nissand/polymarket-analytics/internal/repository"
)

type HealthHandler struct {
	DB   *gorm.DB
	Repo repository.Repository
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

// @Summary Health check
// @Tags health
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ready reports whether the store is reachable, and whether a capture is
// currently being processed so operators can tell idle from working.
// @Summary Readiness check
// @Tags health
// @Success 200 {object} map[string]any
// @Router /readyz [get]
func (h *HealthHandler) ready(c *gin.Context) {
	if h.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_missing"})
		return
	}
	sqlDB, err := h.DB.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_error"})
		return
	}
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_unreachable"})
		return
	}
	capturing := false
	if h.Repo != nil {
		busy, err := h.Repo.AnyProcessing(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "store_error"})
			return
		}
		capturing = busy
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "capturing": capturing})
}
