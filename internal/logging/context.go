package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Gin context keys set by the API middleware.
const (
	RequestIDKey = "request_id"
	StartTimeKey = "start_time"
)

// withGinContext adds the request id, the camera path parameter and the
// elapsed time to e.
func withGinContext(c *gin.Context, e *zerolog.Event) *zerolog.Event {
	if c == nil {
		return e
	}
	if id := c.GetString(RequestIDKey); id != "" {
		e.Str("request_id", id)
	}
	if cam := c.Param("id"); cam != "" {
		e.Str("camera_id", cam)
	}
	if v, ok := c.Get(StartTimeKey); ok {
		if t, ok := v.(time.Time); ok {
			e.Dur("duration", time.Since(t))
		}
	}
	return e
}

func Info(c *gin.Context) *zerolog.Event  { return withGinContext(c, log.Info()) }
func Debug(c *gin.Context) *zerolog.Event { return withGinContext(c, log.Debug()) }
func Warn(c *gin.Context) *zerolog.Event  { return withGinContext(c, log.Warn()) }
func Error(c *gin.Context) *zerolog.Event { return withGinContext(c, log.Error()) }
