package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/zetl/notecard-capture/internal/platform/logging"
)

// errorResponse is the body of a recovered panic.
type errorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"traceId,omitempty"`
}

// Recovery returns middleware that recovers from panics.
// On panic, it logs the error with its stack trace at ERROR level and
// answers 500 with the trace ID, if any.
//
// This middleware should be applied first in the chain to catch panics
// from all subsequent handlers and middleware.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()

				ctxLogger := logger
				if ctxLogger == nil {
					ctxLogger = logging.FromContext(c.Request.Context())
				}

				var traceID string
				if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
					traceID = span.SpanContext().TraceID().String()
				}

				ctxLogger.Error("panic recovered",
					slog.Any("error", r),
					slog.String("stack", string(stack)),
					slog.String("path", c.Request.URL.Path),
					slog.String("method", c.Request.Method),
					slog.String("trace_id", traceID),
				)

				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{
						Error:   "an internal error occurred",
						TraceID: traceID,
					})
				} else {
					c.Abort()
				}
			}
		}()

		c.Next()
	}
}
