package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flightsearch/observability"
	"github.com/kbukum/flightsearch/version"
)

// Health reports the aggregated health of checkers; 503 when any is down.
func Health(serviceName string, checkers ...observability.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		sh := observability.Check(c.Request.Context(), serviceName, version.Get().Short(), checkers...)
		status := http.StatusOK
		if sh.Status == observability.HealthStatusDown {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, sh)
	}
}

// Version reports build information.
func Version() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Get())
	}
}
