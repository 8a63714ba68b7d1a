package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/zetl/notecard-capture/internal/adapters/http/handlers"
	"github.com/zetl/notecard-capture/internal/adapters/http/middleware"
	"github.com/zetl/notecard-capture/internal/platform/telemetry"
)

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	// Logger is the structured logger for request logging.
	Logger *slog.Logger

	// ServiceName names the server in spans and metrics.
	ServiceName string

	// HealthHandler handles the /-/ endpoints.
	HealthHandler *handlers.HealthHandler
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Recovery - catch panics first
//  2. Logging - attach the logger and log completed requests
//  3. Request ID - generate/extract request ID
//  4. OpenTelemetry - tracing and metrics
//
// The status server only serves the /-/ group; it never triggers captures.
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.Logging(cfg.Logger),
		middleware.RequestID(),
	)
	engine.Use(telemetry.Middleware(cfg.ServiceName)...)

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutesOnEngine(engine)
	}
}
