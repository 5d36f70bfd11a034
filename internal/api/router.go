package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/civicwatch/civic-reports/docs"
	"github.com/civicwatch/civic-reports/internal/api/handler"
	"github.com/civicwatch/civic-reports/internal/api/middleware"
	"github.com/civicwatch/civic-reports/internal/core/domain"
	"github.com/civicwatch/civic-reports/internal/core/ports"
)

const defaultBodyLimit = "50M"

// Deps carries everything the router wires into handlers and middleware.
type Deps struct {
	Log      zerolog.Logger
	Auth     ports.AuthService
	Identity ports.IdentityResolver
	Users    ports.UserService
	Issues   ports.IssueService
	Checkers []handler.Checker

	CORSOrigins []string
	BodyLimit   string

	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	if d.Registerer == nil {
		d.Registerer = prometheus.DefaultRegisterer
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	bodyLimit := d.BodyLimit
	if bodyLimit == "" {
		bodyLimit = defaultBodyLimit
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: d.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomiddleware.BodyLimit(bodyLimit))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth)
	adminHandler := handler.NewAdminHandler(d.Users)
	issueHandler := handler.NewIssueHandler(d.Issues)
	healthHandler := handler.NewHealthHandler(d.Checkers...)

	authenticated := middleware.Auth(d.Identity, d.Log)

	// --- Auth routes ---
	auth := e.Group("/api/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout, authenticated)
	auth.GET("/me", authHandler.Me, authenticated)

	// --- Admin routes ---
	admin := e.Group("/api/admin", authenticated, middleware.RBAC(domain.PolicyAdminOnly))
	admin.GET("/users", adminHandler.ListUsers)
	admin.GET("/users/:id", adminHandler.GetUser)
	admin.PUT("/users/:id", adminHandler.UpdateUser)

	// --- Issue routes ---
	issues := e.Group("/api/issues", authenticated)
	anyone := middleware.RBAC(domain.PolicyAnyAuthenticated)
	issues.POST("", issueHandler.Create, anyone)
	issues.GET("", issueHandler.List, anyone)
	issues.GET("/:id", issueHandler.Get, anyone)
	issues.PATCH("/:id/status", issueHandler.UpdateStatus, middleware.RBAC(domain.PolicyStaff))

	// --- Health probes, metrics and docs (no auth required) ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
