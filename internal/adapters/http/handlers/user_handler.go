package handlers

import (
	"errors"
	"strconv"

	"diglab-api/internal/core/domain"
	"diglab-api/internal/core/services"
	"diglab-api/internal/pkg/pagination"
	"diglab-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles staff account endpoints
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ChangePasswordRequest represents a self-service password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Create provisions a staff account
// @Summary Create staff account
// @Description Provision a staff account; returns a one-time temporary password when none was supplied
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateUserInput true "Account data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /users [post]
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req services.CreateUserInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.FirstName == "" || req.LastName == "" {
		return response.BadRequest(c, "First and last name are required")
	}

	result, err := h.userService.CreateUser(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrWorkerIDRequired):
			return response.BadRequest(c, "Worker ID is required")
		case errors.Is(err, domain.ErrWorkerIDExists):
			return response.Conflict(c, "Worker ID already registered")
		default:
			return response.BadRequest(c, err.Error())
		}
	}

	return response.Created(c, "User created successfully", result)
}

// List returns staff accounts
// @Summary List staff accounts
// @Description List staff accounts ordered by name
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /users [get]
func (h *UserHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	users, total, err := h.userService.ListUsers(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list users")
	}

	return response.Success(c, "Users retrieved successfully", fiber.Map{
		"users":      users,
		"pagination": pagination.GetMeta(params, total),
	})
}

// ChangePassword lets the signed-in user change their own password
// @Summary Change own password
// @Description Change the caller's password after verifying the current one
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ChangePasswordRequest true "Password change"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /users/me/password [put]
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.NewPassword == "" {
		return response.BadRequest(c, "New password is required")
	}

	err := h.userService.ChangeOwnPassword(c.Context(), userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrWrongPassword):
			return response.BadRequest(c, "Current password is incorrect")
		case errors.Is(err, domain.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		default:
			return response.BadRequest(c, err.Error())
		}
	}

	return response.Success(c, "Password changed successfully", nil)
}

// ResetPasswordRequest carries an optional admin-chosen password
type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// ResetPassword sets an account's password on behalf of an admin
// @Summary Reset account password
// @Description Set the account's password; generates a one-time temporary password when none is supplied
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body ResetPasswordRequest false "New password (optional)"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id}/password [put]
func (h *UserHandler) ResetPassword(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid user ID")
	}

	// Empty body means "generate a temporary password"
	var req ResetPasswordRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	temp, err := h.userService.AdminResetPassword(c.Context(), uint(id), req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, services.ErrWeakPassword):
			return response.BadRequest(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to reset password")
		}
	}

	data := fiber.Map{}
	if temp != "" {
		data["tempPassword"] = temp
	}
	return response.Success(c, "Password reset successfully", data)
}
