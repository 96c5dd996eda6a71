package handlers

import (
	"errors"

	"diglab-api/internal/core/domain"
	"diglab-api/internal/core/services"
	"diglab-api/internal/pkg/pagination"
	"diglab-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles lab order endpoints
type OrderHandler struct {
	orderService *services.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// Create registers a lab order and returns its requisition PDF
// @Summary Create lab order
// @Description Register a lab order and return the generated requisition PDF
// @Tags Orders
// @Accept json
// @Produce application/pdf
// @Security BearerAuth
// @Param body body services.CreateOrderInput true "Order data"
// @Success 201 {file} binary
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /orders [post]
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var req services.CreateOrderInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.orderService.CreateOrder(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPersonnummer):
			return response.BadRequest(c, "Personnummer must be exactly 11 digits")
		case errors.Is(err, domain.ErrInvalidOrderDate):
			return response.BadRequest(c, "Date must be in YYYY-MM-DD format")
		case errors.Is(err, domain.ErrInvalidOrderTime):
			return response.BadRequest(c, "Time must be in HH:MM format")
		case errors.Is(err, domain.ErrNoDiagnoses):
			return response.BadRequest(c, "At least one diagnosis is required")
		case errors.Is(err, domain.ErrPersonNotFound):
			return response.NotFound(c, "Person not found")
		case errors.Is(err, domain.ErrLabNumberConflict):
			return response.Conflict(c, "Could not allocate a unique lab number")
		default:
			if ue, ok := domain.AsUpstream(err); ok {
				return response.Upstream(c, ue.Status, ue.Body)
			}
			return response.InternalServerError(c, "Failed to create order")
		}
	}

	lab := result.Order.LabNumber
	c.Set("X-Lab-Number", lab)
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="DigLab-`+lab+`.pdf"`)
	return c.Status(fiber.StatusCreated).Send(result.PDF)
}

// List returns recent orders
// @Summary List recent orders
// @Description List the most recently created orders, newest first
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param take query int false "Number of orders (default 20, max 100)"
// @Success 200 {object} response.Response
// @Router /orders [get]
func (h *OrderHandler) List(c *fiber.Ctx) error {
	items, err := h.orderService.ListRecent(c.Context(), pagination.Take(c))
	if err != nil {
		return response.InternalServerError(c, "Failed to list orders")
	}

	return response.Success(c, "Orders retrieved successfully", fiber.Map{
		"orders": items,
	})
}

// Get returns one order by lab number
// @Summary Get order
// @Description Get an order's requested diagnoses and current results
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param lab path string true "Lab number"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /orders/{lab} [get]
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	details, err := h.orderService.GetOrder(c.Context(), c.Params("lab"))
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return response.NotFound(c, "Order not found")
		}
		return response.InternalServerError(c, "Failed to get order")
	}

	return response.Success(c, "Order retrieved successfully", details)
}

// Document serves the order's current PDF
// @Summary Get order PDF
// @Description Serve the results PDF when available, the requisition otherwise; prefer=results returns 404 until a results PDF exists
// @Tags Orders
// @Produce application/pdf
// @Param lab path string true "Lab number"
// @Param prefer query string false "Set to 'results' to require the results PDF"
// @Success 200 {file} binary
// @Failure 404 {object} response.Response
// @Router /orders/{lab}/pdf [get]
func (h *OrderHandler) Document(c *fiber.Ctx) error {
	preferResults := c.Query("prefer") == "results"
	data, lab, err := h.orderService.FetchDocument(c.Context(), c.Params("lab"), preferResults)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			return response.NotFound(c, "Order not found")
		case errors.Is(err, domain.ErrDocumentNotFound):
			return response.NotFound(c, "No document available for this order")
		default:
			return response.InternalServerError(c, "Failed to fetch document")
		}
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="DigLab-`+lab+`.pdf"`)
	return c.Send(data)
}

// FinalizeRequest represents the finalize request body
type FinalizeRequest struct {
	Results []services.FinalizeRowInput `json:"results"`
}

// Finalize replaces the order's results
// @Summary Finalize order results
// @Description Replace the order's result set and regenerate its results PDF
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param lab path string true "Lab number"
// @Param body body FinalizeRequest true "Result rows"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /orders/{lab}/finalize [post]
func (h *OrderHandler) Finalize(c *fiber.Ctx) error {
	var req FinalizeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	details, savedPdf, err := h.orderService.Finalize(c.Context(), c.Params("lab"), req.Results)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return response.NotFound(c, "Order not found")
		}
		return response.InternalServerError(c, "Failed to finalize order")
	}

	return response.Success(c, "Order finalized successfully", fiber.Map{
		"order":    details,
		"savedPdf": savedPdf,
	})
}
