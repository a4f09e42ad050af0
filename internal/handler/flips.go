package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	rediscache "skyflip/internal/cache/redis"
	"skyflip/internal/models"
	"skyflip/internal/repository"
	"skyflip/internal/sink"
)

// LatestReader is the read side of the latest-candidates cache.
type LatestReader interface {
	Latest(ctx context.Context) (*rediscache.LatestCandidates, bool, error)
}

type FlipHandler struct {
	Repo   repository.FlipRepository
	Cache  LatestReader
	Stream http.Handler
}

type flipView struct {
	ID        uint64    `json:"id"`
	CycleID   string    `json:"cycle_id"`
	CreatedAt time.Time `json:"created_at"`
	models.FlipCandidate
}

func (h *FlipHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/flips")
	group.GET("", h.list)
	group.GET("/latest", h.latest)
	if h.Stream != nil {
		group.GET("/stream", gin.WrapH(h.Stream))
	}
}

// @Summary List persisted flip candidates
// @Tags flips
// @Param kind query string false "bazaar or auction"
// @Param item_id query string false "item id"
// @Param since query string false "RFC3339 lower bound on created_at"
// @Param min_edge query number false "minimum edge ratio"
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/flips [get]
func (h *FlipHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	rows, err := h.Repo.ListFlipRecords(c.Request.Context(), repository.ListFlipRecordsParams{
		Limit:   limit,
		Offset:  offset,
		Kind:    stringQueryPtr(c, "kind"),
		ItemID:  stringQueryPtr(c, "item_id"),
		Since:   timeQueryPtr(c, "since"),
		MinEdge: floatQuery(c, "min_edge", 0),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	out := make([]flipView, 0, len(rows))
	for _, row := range rows {
		cand, err := sink.FromFlipRecord(row)
		if err != nil {
			Error(c, http.StatusInternalServerError, err.Error(), nil)
			return
		}
		out = append(out, flipView{ID: row.ID, CycleID: row.CycleID, CreatedAt: row.CreatedAt, FlipCandidate: cand})
	}
	Ok(c, out, paginationMeta(limit, offset, len(out)))
}

// @Summary Candidates of the most recent cycle that emitted any
// @Tags flips
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/flips/latest [get]
func (h *FlipHandler) latest(c *gin.Context) {
	if h.Cache == nil {
		Error(c, http.StatusNotFound, "latest cache disabled", nil)
		return
	}
	latest, ok, err := h.Cache.Latest(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if !ok {
		Error(c, http.StatusNotFound, "no recent candidates", nil)
		return
	}
	Ok(c, latest.Candidates, map[string]any{
		"cycle_id":   latest.CycleID,
		"updated_at": latest.UpdatedAt,
	})
}
