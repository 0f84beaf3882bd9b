package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"flightsurety-service/internal/interface/rest/middleware"
	"flightsurety-service/pkg/logger"
)

// RouteRegistrar mounts API routes on a group.
type RouteRegistrar interface {
	RegisterRoutes(g *echo.Group)
}

// OperationalReporter reports whether the ledger accepts mutating calls.
type OperationalReporter interface {
	IsOperational() bool
}

type healthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Operational bool   `json:"operational"`
}

// ServiceName labels the server spans.
const ServiceName = "flightsurety-service"

// New builds the HTTP router serving /health, /metrics and the API routes of api.
func New(api RouteRegistrar, status OperationalReporter, gatherer prometheus.Gatherer, version string, log logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(otelecho.Middleware(ServiceName))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Status >= http.StatusInternalServerError {
				log.Error("HTTP request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "error", v.Error)
				return nil
			}
			log.Debug("HTTP request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, healthResponse{
			Status:      "healthy",
			Version:     version,
			Operational: status.IsOperational(),
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api.RegisterRoutes(e.Group("", middleware.IdentifyAccount))

	log.Info("Registered HTTP routes", "routes", len(e.Routes()))
	return e
}
