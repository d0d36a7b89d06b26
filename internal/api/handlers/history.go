package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vehicle-counter-go/internal/logging"
	"vehicle-counter-go/internal/store"
)

// HistoryStore is satisfied by store.Ledger.
type HistoryStore interface {
	DailyTotals(ctx context.Context, camera string, day time.Time) ([]store.DailyTotal, error)
}

type HistoryHandler struct {
	store HistoryStore
	now   func() time.Time
}

// NewHistoryHandler accepts a nil store when the ledger is disabled.
func NewHistoryHandler(s HistoryStore) *HistoryHandler {
	return &HistoryHandler{store: s, now: time.Now}
}

type HistoryResponse struct {
	Day    string             `json:"day" example:"2024-03-10"`
	Camera string             `json:"camera,omitempty" example:"cam_b-in"`
	Totals []store.DailyTotal `json:"totals"`
}

// @Summary Daily count totals
// @Description Per-counter IN/OUT totals for one day from the count ledger
// @Tags counts
// @Produce json
// @Param camera query string false "Camera ID, all cameras when empty"
// @Param day query string false "Day as YYYY-MM-DD, defaults to today"
// @Success 200 {object} HistoryResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /counts/history [get]
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "count ledger disabled"})
		return
	}

	day := h.now()
	if q := c.Query("day"); q != "" {
		parsed, err := time.ParseInLocation(store.DayLayout, q, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "day must be YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	cam := c.Query("camera")
	totals, err := h.store.DailyTotals(c.Request.Context(), cam, day)
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to query count history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if totals == nil {
		totals = []store.DailyTotal{}
	}

	c.JSON(http.StatusOK, HistoryResponse{
		Day:    day.Format(store.DayLayout),
		Camera: cam,
		Totals: totals,
	})
}
