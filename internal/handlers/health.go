// internal/handlers/health.go
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health reports liveness along with the catalog the server is running.
func Health(catalogVersion string, started time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "OK",
			"service":        "trader-insights",
			"timestamp":      time.Now().UTC().Format(time.RFC3339),
			"catalogVersion": catalogVersion,
			"uptime":         time.Since(started).Round(time.Second).String(),
		})
	}
}
