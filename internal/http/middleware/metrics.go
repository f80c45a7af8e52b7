package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/skooly-backend/internal/observability"
	"github.com/yungbote/skooly-backend/internal/platform/ctxutil"
)

// unmatchedRoute labels requests gin could not route, keeping arbitrary
// 404 paths out of the label set.
const unmatchedRoute = "unmatched"

var unmeteredRoutes = map[string]bool{
	"/healthcheck": true,
	"/metrics":     true,
}

// Metrics records latency and status per route template, plus whether the
// caller was signed in. Health and scrape endpoints are not counted.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if unmeteredRoutes[c.FullPath()] {
			c.Next()
			return
		}
		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
		m.ObserveAPIAccess(route, accessLabel(c))
	}
}

// accessLabel reads the identity the auth middleware attached, which is
// only visible once the handler chain has run.
func accessLabel(c *gin.Context) string {
	if ctxutil.ActorID(c.Request.Context()) != "" {
		return "authenticated"
	}
	return "anonymous"
}
