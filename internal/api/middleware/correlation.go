package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stitts-dev/feature-engine/pkg/logger"
)

// CorrelationIDHeader carries the request correlation ID in and out.
const CorrelationIDHeader = "X-Correlation-ID"

// CorrelationIDKey is the gin context key handlers read.
const CorrelationIDKey = "correlation_id"

// CorrelationID assigns every request a correlation ID (honoring one
// supplied by the caller) and logs request completion with it.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		c.Set(CorrelationIDKey, correlationID)
		c.Header(CorrelationIDHeader, correlationID)

		started := time.Now()
		c.Next()

		logger.WithCorrelationID(correlationID).WithFields(map[string]interface{}{
			"http_method": c.Request.Method,
			"http_path":   c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(started).Milliseconds(),
		}).Debug("Request completed")
	}
}
