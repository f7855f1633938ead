// Package api assembles the Echo server for the OPay settings API.
package api

import (
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/donaldgifford/opay/internal/api/handlers"
	mw "github.com/donaldgifford/opay/internal/api/middleware"
	"github.com/donaldgifford/opay/internal/opay"
	"github.com/donaldgifford/opay/internal/settings"
)

// Version is reported in the OpenAPI document.
var Version = "dev"

// Options configures the server.
type Options struct {
	Store  settings.Store
	Logger *slog.Logger

	// ClientOptions are applied to every OPay client built for
	// POST /api/v1/requests.
	ClientOptions []opay.Option
}

// NewServer returns an Echo instance with middleware, probes, metrics and
// the huma-registered API routes.
func NewServer(opts Options) *echo.Echo {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(mw.Recovery(log))
	e.Use(mw.RequestLog(log))
	e.Use(mw.Metrics())

	health := handlers.NewHealthHandler(opts.Store)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := humaecho.New(e, huma.DefaultConfig("OPay Settings API", Version))

	clientOpts := append([]opay.Option{opay.WithLogger(log)}, opts.ClientOptions...)

	handlers.RegisterSettingsRoutes(api, handlers.NewSettingsHandler(opts.Store, log))
	handlers.RegisterRequestRoutes(api, handlers.NewRequestHandler(opts.Store, clientOpts...))

	return e
}
