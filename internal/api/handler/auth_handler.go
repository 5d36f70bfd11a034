package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civicwatch/civic-reports/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a new user account and signs it in.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	req.trim()
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.authService.Register(c.Request().Context(), toRegisterInput(req))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, authResponse{User: result.User, Token: result.Token})
}

// Login authenticates a user and returns a JWT token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	req.trim()
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, authResponse{User: result.User, Token: result.Token})
}

// Logout revokes the presented token when server-side revocation is enabled.
// Clients must discard the token either way.
//
// @Summary      Logout
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  errorResponse
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	token, err := BearerToken(c)
	if err != nil {
		return err
	}
	if err := h.authService.Logout(c.Request().Context(), token); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the identity resolved for the presented token.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorResponse
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
