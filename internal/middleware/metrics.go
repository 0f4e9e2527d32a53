package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const unmatchedRoute = "unmatched"

type requestObserver interface {
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
}

// Metrics records one observation per request labelled by the matched route template.
// Requests that match no route share a single label so scans cannot inflate series.
func Metrics(observer requestObserver, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if observer == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if _, ok := skipped[route]; ok {
			return
		}
		if route == "" {
			route = unmatchedRoute
		}
		observer.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
