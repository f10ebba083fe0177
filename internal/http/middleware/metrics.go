package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/firstflame-backend/internal/observability"
)

// Metrics records request latency per route. Long-lived streams are counted as SSE clients
// instead, since their duration is connection lifetime rather than latency.
func Metrics(m *observability.Metrics, streamRoutes ...string) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	streams := make(map[string]bool, len(streamRoutes))
	for _, r := range streamRoutes {
		streams[r] = true
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if streams[route] {
			m.SSEClientInc()
			defer m.SSEClientDec()
			c.Next()
			return
		}

		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		if route == "" {
			route = "unknown"
		}
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
