package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cozi7266/aieng/internal/pkg/ctxutil"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

// quietRoutes log at Debug; probes would drown everything else.
var quietRoutes = map[string]bool{
	"/internal/health": true,
	"/metrics":         true,
}

// RequestLogger writes one line per request once the handler chain returns.
// Word and song generation take seconds to minutes, so duration_ms is the useful field.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		kv := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", c.Writer.Size(),
			"request_id", ctxutil.RequestID(c.Request.Context()),
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			kv = append(kv, "errors", errs.String())
		}

		switch {
		case status >= 500:
			log.Error("request failed", kv...)
		case status >= 400:
			log.Warn("request rejected", kv...)
		case quietRoutes[route]:
			log.Debug("request", kv...)
		default:
			log.Info("request", kv...)
		}
	}
}
