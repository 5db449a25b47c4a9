package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/tech-quiz-service/internal/platform/telemetry"
)

// DefaultRequestTimeout bounds REST requests when no timeout is configured.
const DefaultRequestTimeout = 30 * time.Second

// RouterConfig contains what SetupRouter wires together.
type RouterConfig struct {
	Logger *slog.Logger

	// ServiceName names spans and HTTP metrics.
	ServiceName string

	// AllowedOrigins feeds CORS. Empty allows any origin.
	AllowedOrigins []string

	HealthHandler *handlers.HealthHandler
	QuizHandler   *handlers.QuizHandler
	StreamHandler *handlers.QuizStreamHandler

	// Timeout bounds each REST request. Zero disables it.
	Timeout time.Duration
}

// SetupRouter configures middleware and routes on engine.
// Middleware runs in this order:
//  1. Recovery
//  2. Request ID
//  3. Correlation ID
//  4. CORS
//  5. OpenTelemetry tracing and metrics
//  6. Logging, skipping the /-/ endpoints
//
// Routes:
//   - /-/ operational endpoints
//   - /api/v1/quizzes REST endpoints, bounded by Timeout
//   - /api/v1/quizzes/:id/stream WebSocket, without a timeout
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	global := []gin.HandlerFunc{
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
		middleware.CORS(cfg.AllowedOrigins),
	}
	global = append(global, telemetry.Middleware(cfg.ServiceName)...)
	global = append(global, middleware.Logging(cfg.Logger))

	engine.Use(global...)

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(engine.Group("/-"))
	}

	apiV1 := engine.Group("/api/v1")

	if cfg.StreamHandler != nil {
		cfg.StreamHandler.RegisterRoutes(apiV1)
	}

	if cfg.QuizHandler != nil {
		rest := apiV1.Group("")
		if cfg.Timeout > 0 {
			rest.Use(middleware.Timeout(cfg.Timeout))
		}

		cfg.QuizHandler.RegisterRoutes(rest)
	}
}
