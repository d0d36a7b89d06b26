package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"vehicle-counter-go/internal/services/notification"
)

// DispatcherStats is satisfied by notification.Dispatcher.
type DispatcherStats interface {
	Stats() notification.Stats
}

// DetectorInfo is satisfied by detection.Service.
type DetectorInfo interface {
	Endpoint() string
	State() string
	IsHealthy() bool
}

// SystemHandler handles system-related endpoints
type SystemHandler struct {
	WorkerID   string
	started    time.Time
	dispatcher DispatcherStats
	detector   DetectorInfo
}

// NewSystemHandler creates a new system handler. dispatcher and detector
// may be nil.
func NewSystemHandler(workerID string, dispatcher DispatcherStats, detector DetectorInfo) *SystemHandler {
	return &SystemHandler{
		WorkerID:   workerID,
		started:    time.Now(),
		dispatcher: dispatcher,
		detector:   detector,
	}
}

// @Summary Get system stats
// @Description Runtime, notification queue and detector connection statistics
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := gin.H{
		"worker_id":      h.WorkerID,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"memory_mb":      m.Alloc / 1024 / 1024,
		"cpu_cores":      runtime.NumCPU(),
		"goroutines":     runtime.NumGoroutine(),
		"go_version":     runtime.Version(),
	}
	if h.dispatcher != nil {
		stats["notifications"] = h.dispatcher.Stats()
	}
	if h.detector != nil {
		stats["detector"] = gin.H{
			"endpoint": h.detector.Endpoint(),
			"state":    h.detector.State(),
			"healthy":  h.detector.IsHealthy(),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"stats":     stats,
		"timestamp": time.Now().Unix(),
	})
}
