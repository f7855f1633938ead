// Package metrics defines Prometheus metrics for the OPay client and the
// settings service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "opay"

// HTTP server metrics.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	// ForwardRequestsTotal counts POST /api/v1/requests by outcome: ok,
	// unconfigured, upstream_error, rejected or error.
	ForwardRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "forward_requests_total",
		Help:      "Total forwarded OPay calls by outcome.",
	}, []string{"result"})
)

// Health metrics.
var (
	HealthzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "healthz_up",
		Help:      "Whether the last /healthz probe succeeded (1) or failed (0).",
	})

	ReadyzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "readyz_up",
		Help:      "Whether the last /readyz probe succeeded (1) or failed (0).",
	})
)

// OPay API metrics.
var (
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Total OPay API calls by method and response status class.",
	}, []string{"method", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "Duration of OPay API calls in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	APITransportErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_transport_errors_total",
		Help:      "Total OPay API calls that failed in transport or returned a non-2xx status.",
	})
)

// Settings metrics.
var (
	SettingsSavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settings_saves_total",
		Help:      "Total settings save attempts by result.",
	}, []string{"result"})

	SettingsValid = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "settings_valid",
		Help:      "Whether the stored OPay credentials are complete (1) or not (0).",
	})
)
