// Package middleware provides the Echo middleware chain of the OPay
// settings server.
package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/donaldgifford/opay/internal/metrics"
)

const (
	metricsPath  = "/metrics"
	forwardRoute = "/api/v1/requests"
	unmatched    = "unmatched"
)

// probeGauges holds the probe routes. They set an up gauge and are not
// counted as requests.
var probeGauges = map[string]prometheus.Gauge{
	"/healthz": metrics.HealthzUp,
	"/readyz":  metrics.ReadyzUp,
}

// Metrics returns Echo middleware that records request duration and
// status per route, tracks probe results as gauges and counts forwarded
// OPay calls by outcome. Scrapes of /metrics are not recorded.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := routeLabel(c)
			if route == metricsPath {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			status := responseStatus(c, err)

			if gauge, ok := probeGauges[route]; ok {
				gauge.Set(up(status))
				return err
			}

			method := c.Request().Method
			code := strconv.Itoa(status)
			metrics.HTTPRequestDuration.
				WithLabelValues(method, route, code).
				Observe(time.Since(start).Seconds())
			metrics.HTTPRequestsTotal.
				WithLabelValues(method, route, code).
				Inc()

			if route == forwardRoute {
				metrics.ForwardRequestsTotal.WithLabelValues(forwardResult(status)).Inc()
			}

			return err
		}
	}
}

// routeLabel returns the matched route template. Requests that matched
// nothing share one label so arbitrary paths cannot grow the series.
func routeLabel(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return unmatched
}

// responseStatus returns the status the client will see. Errors handed
// back to Echo are written after the middleware returns, so their code
// comes from the error itself.
func responseStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

func forwardResult(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "ok"
	case status == http.StatusConflict:
		return "unconfigured"
	case status == http.StatusBadGateway:
		return "upstream_error"
	case status >= 400 && status < 500:
		return "rejected"
	default:
		return "error"
	}
}

func up(status int) float64 {
	if status >= 200 && status < 300 {
		return 1
	}
	return 0
}
