package mw

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"printer-docs-backend/internal/metrics"
)

// Metrics records request counts and latency per route template.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTP(route, c.Request.Method, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}
