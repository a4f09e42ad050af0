package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skyflip/internal/repository"
)

type SourceHandler struct {
	Repo repository.SourceHashRepository
}

func (h *SourceHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/sources", h.list)
}

// @Summary Last committed hash per sub-source
// @Tags sources
// @Success 200 {object} apiResponse
// @Router /api/v1/sources [get]
func (h *SourceHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListSourceHashes(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	out := make([]gin.H, 0, len(items))
	for _, it := range items {
		out = append(out, gin.H{
			"id":         it.ID,
			"source_key": it.SourceKey,
			"hash":       it.Hash,
			"updated_at": it.UpdatedAt,
		})
	}
	Ok(c, out, nil)
}
