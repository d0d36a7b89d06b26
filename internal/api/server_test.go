package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"vehicle-counter-go/internal/config"
	"vehicle-counter-go/internal/models"
)

type staticCameras struct{}

func (staticCameras) Statuses() []models.CameraStatus {
	return []models.CameraStatus{{CameraID: "cam_b-in", SourceOnline: true}}
}

func (staticCameras) Status(id string) (models.CameraStatus, error) {
	return models.CameraStatus{CameraID: id}, nil
}

func (staticCameras) Counts(id string) (*models.CameraCounts, error) {
	return &models.CameraCounts{CameraID: id}, nil
}

func newTestServer() *Server {
	cfg := &config.Config{WorkerID: "counter-1", Version: "1.0.0", Environment: "test", Port: 8000}
	return NewServer(cfg, Dependencies{Cameras: staticCameras{}})
}

func TestServerRoutes(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		path string
		want int
	}{
		{"/", http.StatusOK},
		{"/health", http.StatusOK},
		{"/cameras", http.StatusOK},
		{"/cameras/cam_b-in", http.StatusOK},
		{"/cameras/cam_b-in/counts", http.StatusOK},
		{"/counts/history", http.StatusServiceUnavailable},
		{"/system/stats", http.StatusOK},
		{"/api/info", http.StatusOK},
		{"/docs", http.StatusMovedPermanently},
		{"/webrtc/status", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	s := newTestServer()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, "abc123", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Len(t, w.Header().Get("X-Request-ID"), 36)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/cameras", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
