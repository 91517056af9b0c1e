package dto

import (
	"github.com/prohmpiriya/jelli-fit/internal/domain"
)

// UpdatePersonRequest replaces a person's availability
type UpdatePersonRequest struct {
	Availability []string `json:"availability"`
}

// PersonResponse represents the response for a person
type PersonResponse struct {
	Name         string   `json:"name"`
	Availability []string `json:"availability"`
	CreatedAt    int64    `json:"created_at"`
}

// NewPersonResponse projects a person onto its public payload. The password
// hash is never exposed.
func NewPersonResponse(p *domain.Person) *PersonResponse {
	availability := p.Availability
	if availability == nil {
		availability = []string{}
	}
	return &PersonResponse{
		Name:         p.Name,
		Availability: availability,
		CreatedAt:    p.CreatedAt.Unix(),
	}
}

// NewPeopleResponse projects a list of people
func NewPeopleResponse(people []*domain.Person) []*PersonResponse {
	out := make([]*PersonResponse, 0, len(people))
	for _, p := range people {
		out = append(out, NewPersonResponse(p))
	}
	return out
}

// StatsResponse represents the public stats payload
type StatsResponse struct {
	EventCount  int64  `json:"event_count"`
	PersonCount int64  `json:"person_count"`
	Version     string `json:"version"`
}
