package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vehicle-counter-go/internal/logging"
	"vehicle-counter-go/internal/models"
	"vehicle-counter-go/internal/services/camera"
)

// CameraReader is satisfied by camera.CameraManager.
type CameraReader interface {
	StatusLister
	Status(id string) (models.CameraStatus, error)
	Counts(id string) (*models.CameraCounts, error)
}

type CameraHandler struct {
	cameras CameraReader
}

func NewCameraHandler(cameras CameraReader) *CameraHandler {
	return &CameraHandler{cameras: cameras}
}

type CameraListResponse struct {
	Cameras []models.CameraStatus `json:"cameras"`
	Total   int                   `json:"total"`
}

// ListCameras lists every configured camera pipeline
// @Summary List cameras
// @Tags cameras
// @Produce json
// @Success 200 {object} CameraListResponse
// @Router /cameras [get]
func (h *CameraHandler) ListCameras(c *gin.Context) {
	statuses := h.cameras.Statuses()
	c.JSON(http.StatusOK, CameraListResponse{Cameras: statuses, Total: len(statuses)})
}

// @Summary Camera status
// @Tags cameras
// @Produce json
// @Param id path string true "Camera ID"
// @Success 200 {object} models.CameraStatus
// @Failure 404 {object} ErrorResponse
// @Router /cameras/{id} [get]
func (h *CameraHandler) GetCameraStatus(c *gin.Context) {
	st, err := h.cameras.Status(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// GetCounts returns the live counters since the last rotation
// @Summary Live counts
// @Tags cameras
// @Produce json
// @Param id path string true "Camera ID"
// @Success 200 {object} models.CameraCounts
// @Failure 404 {object} ErrorResponse
// @Router /cameras/{id}/counts [get]
func (h *CameraHandler) GetCounts(c *gin.Context) {
	counts, err := h.cameras.Counts(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if counts == nil {
		counts = &models.CameraCounts{CameraID: c.Param("id"), Counters: []models.CounterCounts{}}
	}
	c.JSON(http.StatusOK, counts)
}

func (h *CameraHandler) writeError(c *gin.Context, err error) {
	if errors.Is(err, camera.ErrCameraNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	logging.Error(c).Err(err).Msg("Camera lookup failed")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}
