package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/jelli-fit/internal/handler"
	"github.com/prohmpiriya/jelli-fit/pkg/logger"
	"github.com/prohmpiriya/jelli-fit/pkg/middleware"
	"github.com/prohmpiriya/jelli-fit/pkg/response"
)

// Handlers groups the HTTP handlers the router dispatches to
type Handlers struct {
	Event  *handler.EventHandler
	Person *handler.PersonHandler
	Info   *handler.InfoHandler
	Task   *handler.TaskHandler
}

// Config holds the router's middleware configuration
type Config struct {
	AllowedOrigin string
	RateLimit     middleware.RateLimitConfig
	// RedisLimiter, when set, replaces the in-memory rate limiter
	RedisLimiter *middleware.RedisRateLimiter
	Logger       *logger.Logger
}

// New builds the gin engine. The health probe is exempt from rate limiting.
func New(cfg Config, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	r := gin.New()
	r.Use(
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			log.ErrorContext(c.Request.Context(), "panic recovered", zap.Any("panic", recovered))
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.InternalError(""))
		}),
		middleware.RequestID(),
		middleware.AccessLog(middleware.DefaultAccessLogConfig(log)),
		middleware.CORSWithConfig(middleware.DefaultCORSConfig(cfg.AllowedOrigin)),
	)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, response.NotFound(""))
	})

	r.GET("/health", h.Info.Health)

	api := r.Group("/", middleware.RateLimiter(cfg.RateLimit, cfg.RedisLimiter))
	{
		api.GET("", h.Info.Root)
		api.GET("/stats", h.Info.Stats)

		api.POST("/event", h.Event.Create)
		api.GET("/event/:event_id", h.Event.Get)
		api.GET("/event/:event_id/people", h.Person.List)
		api.GET("/event/:event_id/people/:person_name", h.Person.Get)
		api.PATCH("/event/:event_id/people/:person_name", h.Person.Update)

		api.GET("/tasks/cleanup", h.Task.Cleanup)
	}

	return r
}
