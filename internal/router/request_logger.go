package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// quietRoutes are polled often; they only log at DEBUG unless they fail.
var quietRoutes = map[string]bool{
	"/health":                          true,
	"/metrics":                         true,
	"/api/tests/:id/games/:questionId": true,
}

// RequestLogger logs one line per request, keyed by route template so that
// per-session paths group together.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(requestIDContextKey)),
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String("sessionID", id))
		}
		if q := c.Param("questionId"); q != "" {
			fields = append(fields, zap.String("questionID", q))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.Error("Server error", fields...)
		case status >= 400:
			log.Warn("Client error", fields...)
		case quietRoutes[route] && c.Request.Method == http.MethodGet:
			log.Debug("Request processed", fields...)
		default:
			log.Info("Request processed", fields...)
		}
	}
}
