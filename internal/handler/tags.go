package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nissand/polymarket-analytics/internal/repository"
	"github.com/nissand/polymarket-analytics/internal/service"
)

// TagHandler serves the mirrored upstream tag catalog and the curated
// category list used as capture filters.
type TagHandler struct {
	Repo repository.Repository
}

func (h *TagHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1")
	g.GET("/tags", h.listTags)
	g.GET("/categories", h.listCategories)
}

// @Summary List mirrored Polymarket tags
// @Tags tags
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/tags [get]
func (h *TagHandler) listTags(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	items, err := h.Repo.ListTags(c.Request.Context(), limit, offset)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountTags(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary List curated capture categories
// @Tags tags
// @Success 200 {object} apiResponse
// @Router /api/v1/categories [get]
func (h *TagHandler) listCategories(c *gin.Context) {
	Ok(c, service.MainCategories, nil)
}
