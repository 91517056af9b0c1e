package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/jelli-fit/internal/dto"
	"github.com/prohmpiriya/jelli-fit/internal/service"
	"github.com/prohmpiriya/jelli-fit/pkg/response"
)

// EventHandler handles event-related HTTP requests
type EventHandler struct {
	eventService service.EventService
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(eventService service.EventService) *EventHandler {
	return &EventHandler{
		eventService: eventService,
	}
}

// Create handles POST /event
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.CreateEventRequest
	if !bindJSON(c, &req) {
		return
	}

	event, err := h.eventService.CreateEvent(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "create_event", err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(dto.NewEventResponse(event)))
}

// Get handles GET /event/:event_id
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.eventService.GetEvent(c.Request.Context(), c.Param("event_id"))
	if err != nil {
		respondError(c, "get_event", err)
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.NewEventResponse(event)))
}
