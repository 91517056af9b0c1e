package dto

import (
	"github.com/prohmpiriya/jelli-fit/internal/domain"
)

// CreateEventRequest represents the request to create a new event
type CreateEventRequest struct {
	Name     *string  `json:"name"`
	Times    []string `json:"times"`
	Timezone string   `json:"timezone"`
}

// EventResponse represents the response for an event
type EventResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Times     []string `json:"times"`
	Timezone  string   `json:"timezone"`
	CreatedAt int64    `json:"created_at"`
}

// NewEventResponse projects an event onto its public payload
func NewEventResponse(e *domain.Event) *EventResponse {
	times := e.Times
	if times == nil {
		times = []string{}
	}
	return &EventResponse{
		ID:        e.ID,
		Name:      e.Name,
		Times:     times,
		Timezone:  e.Timezone,
		CreatedAt: e.CreatedAt.Unix(),
	}
}
