package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/jelli-fit/pkg/logger"
)

// AccessLogConfig holds configuration for the access log middleware
type AccessLogConfig struct {
	Logger *logger.Logger
	// SkipPaths are exact paths or prefixes ending in "*" that are not logged
	SkipPaths []string
}

// DefaultAccessLogConfig skips the health probe
func DefaultAccessLogConfig(l *logger.Logger) AccessLogConfig {
	return AccessLogConfig{
		Logger:    l,
		SkipPaths: []string{"/health"},
	}
}

// AccessLog writes one structured line per request once the handler chain
// has finished. Server errors log at error level, client errors at warn.
func AccessLog(config AccessLogConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, p := range config.SkipPaths {
			if matchPath(path, p) {
				c.Next()
				return
			}
		}

		start := time.Now()
		c.Next()

		l := config.Logger
		if l == nil {
			l = logger.Get()
		}

		route := c.FullPath()
		if route == "" {
			route = path
		}

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			l.ErrorContext(ctx, "request", fields...)
		case status >= 400:
			l.WarnContext(ctx, "request", fields...)
		default:
			l.InfoContext(ctx, "request", fields...)
		}
	}
}

func matchPath(path, pattern string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(path, prefix)
	}
	return path == pattern
}
