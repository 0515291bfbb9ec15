package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/storefront/shop-api/docs"
	"github.com/storefront/shop-api/internal/api/handler"
	"github.com/storefront/shop-api/internal/api/middleware"
	"github.com/storefront/shop-api/internal/core/ports"
)

// Dependencies groups everything the HTTP layer needs.
type Dependencies struct {
	Log      zerolog.Logger
	Auth     ports.AuthService
	Users    ports.UserService
	Products ports.ProductService
	Tags     ports.TagService

	// Readiness lists the dependencies pinged by /health/ready, keyed by name.
	Readiness map[string]handler.Pinger

	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	registerer, gatherer := deps.Registerer, deps.Gatherer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "shop",
		Registerer: registerer,
	}))

	// --- Handlers ---
	users := handler.NewUserHandler(deps.Auth, deps.Users)
	products := handler.NewProductHandler(deps.Products)
	tags := handler.NewTagHandler(deps.Tags)
	admin := middleware.Admin(deps.Auth)
	optional := middleware.OptionalAuth(deps.Auth)

	// --- User routes ---
	u := e.Group("/users")
	u.POST("/signup", users.Signup, optional)
	u.POST("/login", users.Login, optional)
	u.GET("/test-token", users.TestToken, admin...)
	u.GET("", users.List, admin...)
	u.GET("/:id", users.Get, admin...)

	// --- Catalog routes ---
	p := e.Group("/products")
	p.GET("", products.List)
	p.GET("/:id", products.Get)
	p.POST("", products.Create, admin...)
	p.PATCH("/:id", products.Update, admin...)
	p.DELETE("/:id", products.Delete, admin...)

	t := e.Group("/tags", admin...)
	t.GET("", tags.List)
	t.GET("/:id", tags.Get)
	t.POST("", tags.Create)
	t.PATCH("/:id", tags.Update)
	t.DELETE("/:id", tags.Delete)

	// --- Health probes, metrics and docs (no auth required) ---
	e.GET("/health", handler.NewHealthHandler().Liveness)                         // liveness  – is the process alive?
	e.GET("/health/ready", handler.NewReadinessHandler(deps.Readiness).Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one zerolog event per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Error != nil || v.Status >= 500 {
				event = log.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
