package middleware

import (
	"github.com/erp/marketsync/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength caps request ids recorded on spans
const MaxRequestIDLength = 64

// Tracing opens a server span per request through otelgin and tags it with
// the request id once the handlers ran. Register it before
// logger.GinMiddleware so the request context carries the span.
func Tracing(serviceName string, enabled bool, opts ...otelgin.Option) []gin.HandlerFunc {
	if !enabled {
		return nil
	}
	return []gin.HandlerFunc{otelgin.Middleware(serviceName, opts...), tagSpan}
}

// tagSpan runs inside the otelgin span, which ends after it returns
func tagSpan(c *gin.Context) {
	c.Next()

	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}
	if id := requestID(c); id != "" {
		span.SetAttributes(attribute.String("request_id", id))
	}
}

func requestID(c *gin.Context) string {
	id := c.Writer.Header().Get(logger.RequestIDHeader)
	if id == "" {
		id = c.GetHeader(logger.RequestIDHeader)
	}
	if len(id) > MaxRequestIDLength {
		return id[:MaxRequestIDLength]
	}
	return id
}
