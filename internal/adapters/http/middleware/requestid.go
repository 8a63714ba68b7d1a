// Package middleware provides HTTP middleware components for the status server.
package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/zetl/notecard-capture/internal/platform/logging"
)

const (
	// HeaderRequestID is the header name for request ID.
	HeaderRequestID = "X-Request-ID"

	// ContextKeyRequestID is the gin context key for storing the request ID.
	ContextKeyRequestID = "request_id"

	// maxRequestIDLen bounds caller-supplied IDs before they reach the logs.
	maxRequestIDLen = 128
)

// RequestID returns middleware that tags each status request with an ID.
// A caller-supplied X-Request-ID is reused when present and short enough,
// otherwise a UUID is generated. The ID is echoed in the response and added
// to the request's context logger.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}

		c.Set(ContextKeyRequestID, id)
		c.Header(HeaderRequestID, id)

		ctx := c.Request.Context()
		logger := logging.FromContext(ctx).With(slog.String("request_id", id))
		c.Request = c.Request.WithContext(logging.WithContext(ctx, logger))

		c.Next()
	}
}

// GetRequestID returns the request ID stored by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	id, _ := c.Get(ContextKeyRequestID)
	s, _ := id.(string)
	return s
}
