package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civicwatch/civic-reports/internal/core/ports"
)

// AdminHandler serves the account management routes. Every route sits
// behind the Auth middleware and an admin-only RBAC policy.
type AdminHandler struct {
	users ports.UserService
}

func NewAdminHandler(users ports.UserService) *AdminHandler {
	return &AdminHandler{users: users}
}

// ListUsers handles GET /api/admin/users.
//
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.User
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.users.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// GetUser handles GET /api/admin/users/:id.
//
// @Summary      Get a user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/admin/users/{id} [get]
func (h *AdminHandler) GetUser(c echo.Context) error {
	user, err := h.users.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateUser handles PUT /api/admin/users/:id.
//
// @Summary      Update a user's name, email or role
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "User id"
// @Param        body  body      updateUserRequest  true  "Fields to change"
// @Success      200   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/admin/users/{id} [put]
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	req.trim()
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.users.Update(c.Request().Context(), c.Param("id"), toUserUpdate(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
