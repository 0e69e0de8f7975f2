package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cinehub/internal/logger"
)

const (
	RequestIDKey    = "RequestID"
	LoggerKey       = "logger"
	RequestIDHeader = "X-Request-ID"
)

// RequestLogger attaches a request-scoped logger carrying the request ID and
// logs each completed request.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Set(LoggerKey, log.WithRequestID(requestID))

		c.Next()

		status := c.Writer.Status()
		fields := logrus.Fields{
			"status":     status,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"client_ip":  c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
		}
		if caller, _ := Caller(c); caller.Authenticated() {
			fields["user_id"] = caller.UserUID
		}
		entry := Log(c).WithFields(fields)
		switch {
		case status >= 500:
			entry.Error("request completed")
		case status >= 400:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
	}
}

// Log returns the request-scoped logger, or a discarding one when
// RequestLogger did not run.
func Log(c *gin.Context) *logrus.Entry {
	if v, ok := c.Get(LoggerKey); ok {
		if entry, ok := v.(*logrus.Entry); ok {
			return entry
		}
	}
	return logger.Discard().Entry
}
