package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/jelli-fit/internal/service"
)

// HeaderCronKey carries the shared secret for scheduled tasks
const HeaderCronKey = "X-Cron-Key"

// TaskHandler serves scheduled maintenance endpoints
type TaskHandler struct {
	cleanupService service.CleanupService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(cleanupService service.CleanupService) *TaskHandler {
	return &TaskHandler{
		cleanupService: cleanupService,
	}
}

// Cleanup handles GET /tasks/cleanup
func (h *TaskHandler) Cleanup(c *gin.Context) {
	_, err := h.cleanupService.Cleanup(c.Request.Context(), c.GetHeader(HeaderCronKey))
	if err != nil {
		respondError(c, "cleanup", err)
		return
	}

	// counts are logged by the service, the caller only needs the status
	c.Status(http.StatusOK)
}
