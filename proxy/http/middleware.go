package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
)

const (
	requestIDHeader = "X-Request-Id"
	requestIDKey    = "requestID"
)

// tracing sets an identifier to every request, unless the client provides one.
func tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = xid.New().String()
		}

		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()
	}
}

// logging logs every request once it has been served.
func logging(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info().
			Str("requestID", c.GetString(requestIDKey)).
			Str("method", c.Request.Method).
			Str("url", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("remoteAddr", c.ClientIP()).
			Str("agent", c.Request.UserAgent()).
			Msg("request served")
	}
}

// metrics counts the requests by route and status.
func metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}

		promRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
