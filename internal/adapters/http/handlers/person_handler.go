package handlers

import (
	"errors"
	"strconv"

	"diglab-api/internal/core/domain"
	"diglab-api/internal/core/services"
	"diglab-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// PersonHandler handles person registry endpoints
type PersonHandler struct {
	personService *services.PersonService
}

// NewPersonHandler creates a new person handler
func NewPersonHandler(personService *services.PersonService) *PersonHandler {
	return &PersonHandler{personService: personService}
}

// Create registers a person
// @Summary Register person
// @Description Register a person keyed by their 11 digit personnummer
// @Tags Persons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreatePersonInput true "Person data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /persons [post]
func (h *PersonHandler) Create(c *fiber.Ctx) error {
	var req services.CreatePersonInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	person, err := h.personService.Create(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPersonnummer):
			return response.BadRequest(c, "Personnummer must be exactly 11 digits")
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "First and last name are required")
		case errors.Is(err, domain.ErrPersonAlreadyExists):
			return response.Conflict(c, "Personnummer already registered")
		default:
			return response.InternalServerError(c, "Failed to register person")
		}
	}

	return response.Created(c, "Person registered successfully", person)
}

// Get looks up a person by personnummer
// @Summary Get person
// @Description Look up a person by their personnummer
// @Tags Persons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param pnr path string true "Personnummer"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /persons/by-pnr/{pnr} [get]
func (h *PersonHandler) Get(c *fiber.Ctx) error {
	person, err := h.personService.GetByPersonnummer(c.Context(), c.Params("pnr"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPersonnummer):
			return response.BadRequest(c, "Personnummer must be exactly 11 digits")
		case errors.Is(err, domain.ErrPersonNotFound):
			return response.NotFound(c, "Person not found")
		default:
			return response.InternalServerError(c, "Failed to get person")
		}
	}

	return response.Success(c, "Person retrieved successfully", person)
}

// UpdateContact patches a person's contact details
// @Summary Update contact details
// @Description Update a person's address and contact fields
// @Tags Persons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param pnr path string true "Personnummer"
// @Param body body services.UpdateContactInput true "Contact fields"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /persons/{pnr}/contact [patch]
func (h *PersonHandler) UpdateContact(c *fiber.Ctx) error {
	var req services.UpdateContactInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	person, err := h.personService.UpdateContact(c.Context(), c.Params("pnr"), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPersonnummer):
			return response.BadRequest(c, "Personnummer must be exactly 11 digits")
		case errors.Is(err, domain.ErrPersonNotFound):
			return response.NotFound(c, "Person not found")
		default:
			return response.InternalServerError(c, "Failed to update person")
		}
	}

	return response.Success(c, "Person updated successfully", person)
}

// Search finds persons by personnummer or name prefix
// @Summary Search persons
// @Description Search the registry by personnummer or name prefix
// @Tags Persons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param q query string true "Search query"
// @Param limit query int false "Max results (default 20)"
// @Success 200 {object} response.Response
// @Router /persons [get]
func (h *PersonHandler) Search(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	persons, err := h.personService.Search(c.Context(), c.Query("q"), limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to search persons")
	}

	return response.Success(c, "Persons retrieved successfully", fiber.Map{
		"persons": persons,
	})
}
