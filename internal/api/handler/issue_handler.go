package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civicwatch/civic-reports/internal/core/domain"
	"github.com/civicwatch/civic-reports/internal/core/ports"
)

// IssueHandler handles HTTP requests for issue reports.
type IssueHandler struct {
	service ports.IssueService
}

func NewIssueHandler(service ports.IssueService) *IssueHandler {
	return &IssueHandler{service: service}
}

// Create handles POST /api/issues.
//
// @Summary      Report an issue
// @Tags         issues
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createIssueRequest  true  "Issue details"
// @Success      201   {object}  domain.Issue
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/issues [post]
func (h *IssueHandler) Create(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}

	var req createIssueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	req.trim()
	if err := c.Validate(&req); err != nil {
		return err
	}

	issue, err := h.service.Create(c.Request().Context(), toCreateIssueInput(req, user.ID))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, issue)
}

// List handles GET /api/issues.
//
// @Summary      List issues, newest first
// @Tags         issues
// @Produce      json
// @Security     BearerAuth
// @Param        status    query     string  false  "Filter by status"
// @Param        category  query     string  false  "Filter by category"
// @Param        user_id   query     string  false  "Filter by reporter"
// @Param        page      query     int     false  "Page (1-based)"
// @Param        limit     query     int     false  "Page size (max 100)"
// @Success      200       {object}  listIssuesResponse
// @Failure      400       {object}  errorResponse
// @Failure      401       {object}  errorResponse
// @Router       /api/issues [get]
func (h *IssueHandler) List(c echo.Context) error {
	var q listIssuesQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return domain.NewValidationError("query", "page and limit must be integers")
	}
	if err := c.Validate(&q); err != nil {
		return err
	}

	result, err := h.service.List(c.Request().Context(), toListIssuesInput(q))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListIssuesResponse(result))
}

// Get handles GET /api/issues/:id.
//
// @Summary      Get an issue with its status history
// @Tags         issues
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Issue id"
// @Success      200  {object}  domain.Issue
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/issues/{id} [get]
func (h *IssueHandler) Get(c echo.Context) error {
	issue, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, issue)
}

// UpdateStatus handles PATCH /api/issues/:id/status.
//
// @Summary      Change an issue's status
// @Tags         issues
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Issue id"
// @Param        body  body      updateStatusRequest  true  "New status"
// @Success      200   {object}  domain.Issue
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/issues/{id}/status [patch]
func (h *IssueHandler) UpdateStatus(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}

	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	req.trim()
	if err := c.Validate(&req); err != nil {
		return err
	}

	issue, err := h.service.UpdateStatus(c.Request().Context(), ports.UpdateStatusInput{
		IssueID:   c.Param("id"),
		Status:    domain.IssueStatus(req.Status),
		Note:      req.Note,
		ChangedBy: user.ID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, issue)
}
