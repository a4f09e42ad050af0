package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"skyflip/internal/repository"
	"skyflip/internal/service"
)

// CycleRunner triggers one cycle on demand.
type CycleRunner interface {
	Run(ctx context.Context) (*service.CycleResult, error)
}

type CycleHandler struct {
	Repo   repository.CycleRepository
	Runner CycleRunner
}

func (h *CycleHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/cycles")
	group.GET("", h.list)
	group.POST("/run", h.run)
}

// @Summary Recent poll cycles
// @Tags cycles
// @Param status query string false "ok, partial or failed"
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/cycles [get]
func (h *CycleHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, err := h.Repo.ListCycleRuns(c.Request.Context(), repository.ListCycleRunsParams{
		Limit:  limit,
		Offset: offset,
		Status: stringQueryPtr(c, "status"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, len(items)))
}

// @Summary Run one poll cycle now
// @Tags cycles
// @Success 200 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Failure 502 {object} apiResponse
// @Router /api/v1/cycles/run [post]
func (h *CycleHandler) run(c *gin.Context) {
	if h.Runner == nil {
		Error(c, http.StatusInternalServerError, "cycle runner unavailable", nil)
		return
	}
	res, err := h.Runner.Run(c.Request.Context())
	if err != nil {
		var meta map[string]any
		if res != nil {
			meta = map[string]any{"cycle_id": res.ID}
		}
		Fail(c, err, meta)
		return
	}
	sourceErrors := map[string]string{}
	for key, e := range res.SourceErrors {
		sourceErrors[key] = e.Error()
	}
	Ok(c, gin.H{
		"cycle_id":      res.ID,
		"started_at":    res.StartedAt,
		"finished_at":   res.FinishedAt,
		"quotes":        res.QuoteCount,
		"candidates":    res.Candidates,
		"sources":       res.Sources,
		"source_errors": sourceErrors,
	}, nil)
}
