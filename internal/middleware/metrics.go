package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meridian-legal/docvault-api/internal/service"
)

// Metrics records request duration and status per route. Unmatched requests
// are bucketed under a single label: raw paths may carry link tokens and must
// not become metric label values.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
