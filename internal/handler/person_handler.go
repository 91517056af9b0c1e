package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/jelli-fit/internal/dto"
	"github.com/prohmpiriya/jelli-fit/internal/service"
	"github.com/prohmpiriya/jelli-fit/pkg/response"
)

// PersonHandler handles person-related HTTP requests
type PersonHandler struct {
	personService service.PersonService
}

// NewPersonHandler creates a new PersonHandler
func NewPersonHandler(personService service.PersonService) *PersonHandler {
	return &PersonHandler{
		personService: personService,
	}
}

// List handles GET /event/:event_id/people
func (h *PersonHandler) List(c *gin.Context) {
	people, err := h.personService.GetPeople(c.Request.Context(), c.Param("event_id"))
	if err != nil {
		respondError(c, "get_people", err)
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.NewPeopleResponse(people)))
}

// Get handles GET /event/:event_id/people/:person_name
func (h *PersonHandler) Get(c *gin.Context) {
	password, err := bearerPassword(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Authorization must be a Bearer base64 password"))
		return
	}

	person, err := h.personService.GetPerson(c.Request.Context(), c.Param("event_id"), c.Param("person_name"), password)
	if err != nil {
		respondError(c, "get_person", err)
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.NewPersonResponse(person)))
}

// Update handles PATCH /event/:event_id/people/:person_name
func (h *PersonHandler) Update(c *gin.Context) {
	password, err := bearerPassword(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Authorization must be a Bearer base64 password"))
		return
	}

	var req dto.UpdatePersonRequest
	if !bindJSON(c, &req) {
		return
	}

	person, err := h.personService.UpdatePerson(c.Request.Context(), c.Param("event_id"), c.Param("person_name"), password, &req)
	if err != nil {
		respondError(c, "update_person", err)
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.NewPersonResponse(person)))
}
