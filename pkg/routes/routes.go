// Package routes assembles the read API server
package routes

import (
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/bramble/pkg/middleware"
	"github.com/Ramsey-B/bramble/pkg/routes/graph"
	"github.com/Ramsey-B/bramble/pkg/routes/health"
)

// Options configures the server
type Options struct {
	ServiceName    string
	MetricsEnabled bool
	TracingEnabled bool
}

// NewServer wires middleware, health and graph routes onto a new echo instance
func NewServer(opts Options, checker *health.Checker, handler *graph.Handler, logger ectologger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(echomiddleware.Recover())
	if opts.TracingEnabled {
		e.Use(otelecho.Middleware(opts.ServiceName))
	}
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	checker.RegisterRoutes(e)
	handler.Register(e.Group("/api/v1"))

	if opts.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	return e
}
