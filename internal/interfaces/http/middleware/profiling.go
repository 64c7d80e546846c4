package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prepacking/backend/internal/infrastructure/telemetry"
)

// Profiling tags the CPU samples of a request with its route pattern and method.
// Unmatched routes are left unlabelled.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || route == "/health" {
			c.Next()
			return
		}

		telemetry.WithProfilingLabels(c.Request.Context(), telemetry.HTTPRequestLabels(route, c.Request.Method), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
