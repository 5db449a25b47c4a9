package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/tech-quiz-service/internal/platform/logging"
)

// Recovery returns middleware that turns a panic into a 500 error envelope.
// It must be first in the chain. Panics are logged with a stack trace to the
// request logger, or to logger when the request has none.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			ctx := c.Request.Context()

			ctxLogger := logger
			if logging.HasLogger(ctx) || ctxLogger == nil {
				ctxLogger = logging.FromContext(ctx)
			}

			traceID := dto.GetTraceID(c)

			ctxLogger.ErrorContext(ctx, "panic recovered",
				slog.Any("error", r),
				slog.String("stack", string(debug.Stack())),
				slog.String("path", c.Request.URL.Path),
				slog.String("method", c.Request.Method),
				slog.String("trace_id", traceID),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError,
				dto.NewErrorResponse(dto.ErrorCodeInternal, "an internal error occurred").WithTraceID(traceID))
		}()

		c.Next()
	}
}
