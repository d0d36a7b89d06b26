package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"vehicle-counter-go/internal/api/handlers"
	"vehicle-counter-go/internal/api/middleware"
	"vehicle-counter-go/internal/config"
)

// Dependencies are the read-only views the API serves. History, Dispatcher
// and Detector may be nil.
type Dependencies struct {
	Cameras    handlers.CameraReader
	History    handlers.HistoryStore
	Dispatcher handlers.DispatcherStats
	Detector   handlers.DetectorInfo
}

type Server struct {
	config *config.Config
	router *gin.Engine
	server *http.Server

	healthHandler  *handlers.HealthHandler
	cameraHandler  *handlers.CameraHandler
	historyHandler *handlers.HistoryHandler
	systemHandler  *handlers.SystemHandler
}

func NewServer(cfg *config.Config, deps Dependencies) *Server {
	if cfg.Environment == "development" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:         cfg,
		router:         gin.New(),
		healthHandler:  handlers.NewHealthHandler(cfg.WorkerID, cfg.Version, deps.Cameras, cfg.FrameStaleThreshold),
		cameraHandler:  handlers.NewCameraHandler(deps.Cameras),
		historyHandler: handlers.NewHistoryHandler(deps.History),
		systemHandler:  handlers.NewSystemHandler(cfg.WorkerID, deps.Dispatcher, deps.Detector),
	}

	s.router.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery(), middleware.CORS())
	s.setupRoutes()
	s.setupSwagger()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("Starting counter API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping counter API")
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
