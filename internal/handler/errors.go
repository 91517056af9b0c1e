package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/jelli-fit/internal/service"
	"github.com/prohmpiriya/jelli-fit/pkg/logger"
	"github.com/prohmpiriya/jelli-fit/pkg/response"
)

// respondError maps a service error onto the response envelope. Storage
// details are logged, never returned.
func respondError(c *gin.Context, op string, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, response.ValidationFailed(verr.Fields))
	case errors.Is(err, service.ErrEventNotFound):
		c.JSON(http.StatusNotFound, response.NotFound("Event not found"))
	case errors.Is(err, service.ErrPersonNotFound):
		c.JSON(http.StatusNotFound, response.NotFound("Person not found"))
	case errors.Is(err, service.ErrNotAuthorized):
		c.JSON(http.StatusUnauthorized, response.Unauthorized(""))
	default:
		logger.Get().ErrorContext(c.Request.Context(), "request failed",
			zap.String("operation", op),
			zap.String("event_id", c.Param("event_id")),
			zap.Error(err),
		)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, response.InternalError(""))
	}
}
