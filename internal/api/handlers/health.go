package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vehicle-counter-go/internal/models"
)

// StatusLister is satisfied by camera.CameraManager.
type StatusLister interface {
	Statuses() []models.CameraStatus
}

type HealthHandler struct {
	WorkerID       string
	Version        string
	cameras        StatusLister
	staleThreshold time.Duration
	now            func() time.Time
}

func NewHealthHandler(workerID, version string, cameras StatusLister, staleThreshold time.Duration) *HealthHandler {
	return &HealthHandler{
		WorkerID:       workerID,
		Version:        version,
		cameras:        cameras,
		staleThreshold: staleThreshold,
		now:            time.Now,
	}
}

type CameraHealth struct {
	CameraID     string `json:"camera_id" example:"cam_b-in"`
	SourceOnline bool   `json:"source_online"`
	Stale        bool   `json:"stale"`
}

type HealthResponse struct {
	Status   string         `json:"status" example:"healthy"`
	WorkerID string         `json:"worker_id" example:"counter-1"`
	Cameras  []CameraHealth `json:"cameras"`
}

type WorkerInfoResponse struct {
	WorkerID     string   `json:"worker_id" example:"counter-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Reports "degraded" when any camera source is offline or has not produced a frame within the stale threshold
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	resp := HealthResponse{Status: "healthy", WorkerID: h.WorkerID, Cameras: []CameraHealth{}}

	now := h.now()
	for _, st := range h.cameras.Statuses() {
		ch := CameraHealth{CameraID: st.CameraID, SourceOnline: st.SourceOnline}
		if h.staleThreshold > 0 && (st.LastFrameTime.IsZero() || now.Sub(st.LastFrameTime) > h.staleThreshold) {
			ch.Stale = true
		}
		if !ch.SourceOnline || ch.Stale {
			resp.Status = "degraded"
		}
		resp.Cameras = append(resp.Cameras, ch)
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Worker information
// @Tags health
// @Produce json
// @Success 200 {object} WorkerInfoResponse
// @Router / [get]
func (h *HealthHandler) WorkerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, WorkerInfoResponse{
		WorkerID: h.WorkerID,
		Status:   "running",
		Version:  h.Version,
		Capabilities: []string{
			"vehicle_counting",
			"zone_aggregation",
			"video_archive",
			"gate_events",
		},
	})
}
