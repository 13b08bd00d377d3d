package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/companion-backend/internal/observability"
)

// Metrics records request counts and latency by route template. Websocket
// routes are counted by the socket handler itself, since a hijacked
// connection's lifetime is not a request latency.
func Metrics(m *observability.Metrics, skip ...string) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	skipped := make(map[string]struct{}, len(skip))
	for _, route := range skip {
		skipped[route] = struct{}{}
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if _, ok := skipped[route]; ok {
			c.Next()
			return
		}
		if route == "" {
			route = "unmatched"
		}

		start := time.Now()
		m.APIInflight(1)
		defer m.APIInflight(-1)
		c.Next()
		m.ObserveAPI(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
