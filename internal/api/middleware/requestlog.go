package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	requestIDHeader = "X-Request-ID"

	// RequestIDKey is the echo context key holding the request ID.
	RequestIDKey = "request_id"
)

// RequestLog returns Echo middleware that assigns every request an ID
// (taken from X-Request-ID when the caller sent one) and logs one line per
// request with the matched route. Probe routes log only their first
// success and every failure. Responses of 500 and above, including a 502
// from a failed OPay call, log at WARN.
func RequestLog(log *slog.Logger) echo.MiddlewareFunc {
	var probesUp sync.Map

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			reqID := c.Request().Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Set(RequestIDKey, reqID)
			c.Response().Header().Set(requestIDHeader, reqID)

			err := next(c)

			route := routeLabel(c)
			status := responseStatus(c, err)

			level := slog.LevelInfo
			if _, probe := probeGauges[route]; probe {
				if status < http.StatusBadRequest {
					if _, seen := probesUp.LoadOrStore(route, true); seen {
						return err
					}
				} else {
					// Log the next success again once the probe recovers.
					probesUp.Delete(route)
					level = slog.LevelWarn
				}
			}
			if status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}

			log.Log(c.Request().Context(), level, "request",
				"method", c.Request().Method,
				"route", route,
				"path", c.Request().URL.Path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", reqID,
			)

			return err
		}
	}
}
