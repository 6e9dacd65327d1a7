package logger

import (
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/erp/marketsync/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestIDHeader carries the request id in and out of the service
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength caps ids accepted from callers
const maxRequestIDLength = 64

type accessLog struct {
	quiet map[string]bool
}

// AccessLogOption configures GinMiddleware
type AccessLogOption func(*accessLog)

// WithQuietPaths logs successful requests to paths at debug level
func WithQuietPaths(paths ...string) AccessLogOption {
	return func(a *accessLog) {
		for _, p := range paths {
			a.quiet[p] = true
		}
	}
}

// GinMiddleware puts a request-scoped logger and request id on the request
// context and writes one access log entry per request. The entry carries the
// trace id when a tracing middleware ran first. Caller ids that are
// too long or not printable ASCII are replaced with a fresh UUID.
func GinMiddleware(base *zap.Logger, opts ...AccessLogOption) gin.HandlerFunc {
	a := &accessLog{quiet: make(map[string]bool)}
	for _, opt := range opts {
		opt(a)
	}

	return func(c *gin.Context) {
		start := time.Now()
		id := acceptRequestID(c.GetHeader(RequestIDHeader))
		c.Header(RequestIDHeader, id)
		c.Set(string(requestIDKey), id)

		scoped := base.With(zap.String("method", c.Request.Method), zap.String("path", c.Request.URL.Path))
		if traceID := telemetry.TraceID(c.Request.Context()); traceID != "" {
			scoped = scoped.With(zap.String("trace_id", traceID))
		}
		ctx := WithRequestID(WithContext(c.Request.Context(), scoped), id)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		ce := FromContext(ctx).Check(a.level(c.Request.URL.Path, status), "HTTP Request")
		if ce == nil {
			return
		}
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if route := c.FullPath(); route != "" {
			fields = append(fields, zap.String("route", route))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}
		ce.Write(fields...)
	}
}

func (a *accessLog) level(path string, status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	case a.quiet[path]:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func acceptRequestID(id string) string {
	if id == "" || len(id) > maxRequestIDLength {
		return uuid.NewString()
	}
	if strings.ContainsFunc(id, func(r rune) bool { return r > unicode.MaxASCII || !unicode.IsGraphic(r) || r == ' ' }) {
		return uuid.NewString()
	}
	return id
}

// Recovery turns a handler panic into a 500 and logs it with the request id
// when the access log middleware already assigned one.
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			log := base
			if id := GetRequestID(c.Request.Context()); id != "" {
				log = log.With(zap.String("request_id", id))
			}
			log.Error("Panic recovered",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("panic", rec),
				zap.Stack("stacktrace"),
			)
			c.AbortWithStatus(http.StatusInternalServerError)
		}()
		c.Next()
	}
}
