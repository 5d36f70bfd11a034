package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const readinessTimeout = 3 * time.Second

// Checker is a dependency the readiness probe pings.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	checkers []Checker
}

func NewHealthHandler(checkers ...Checker) *HealthHandler {
	return &HealthHandler{checkers: checkers}
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

// Liveness handles GET /health. Returns 200 as long as the process is up.
//
// @Summary      Liveness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Readiness handles GET /health/ready. Every configured dependency is pinged;
// any failure yields 503 with the per-dependency breakdown.
//
// @Summary      Readiness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  readinessResponse
// @Failure      503  {object}  readinessResponse
// @Router       /health/ready [get]
func (h *HealthHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	deps := make(map[string]dependencyStatus, len(h.checkers))
	healthy := true

	for _, chk := range h.checkers {
		if err := chk.Check(ctx); err != nil {
			deps[chk.Name()] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
			healthy = false
			continue
		}
		deps[chk.Name()] = dependencyStatus{Status: "ok"}
	}

	status := "ok"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, readinessResponse{
		Status:       status,
		Dependencies: deps,
	})
}
