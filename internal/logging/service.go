package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vehicle-counter-go/internal/config"
)

// NewServiceLogger tags every entry with the worker and component name.
func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return log.With().Str("worker_id", cfg.WorkerID).Str("service", service).Logger()
}

// WithCamera tags entries of one camera's workers.
func WithCamera(base zerolog.Logger, cameraID string) zerolog.Logger {
	return base.With().Str("camera_id", cameraID).Logger()
}
