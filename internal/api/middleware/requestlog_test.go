package middleware

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLoggedServer mirrors the API's routes. Handlers answer with the
// status given in the "status" query parameter.
func newLoggedServer(buf *bytes.Buffer) *echo.Echo {
	e := echo.New()
	e.Use(RequestLog(slog.New(slog.NewTextHandler(buf, nil))))

	respond := func(c echo.Context) error {
		status := http.StatusOK
		if s := c.QueryParam("status"); s != "" {
			status, _ = strconv.Atoi(s)
		}
		return c.String(status, fmt.Sprint(c.Get(RequestIDKey)))
	}
	e.GET("/healthz", respond)
	e.GET("/readyz", respond)
	e.GET("/api/v1/settings/status", respond)
	e.POST("/api/v1/requests", respond)
	return e
}

func TestRequestLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		method    string
		target    string
		requestID string
		wantCode  int
		wantLog   []string
	}{
		{
			name:     "settings status",
			method:   http.MethodGet,
			target:   "/api/v1/settings/status",
			wantCode: http.StatusOK,
			wantLog: []string{
				"level=INFO",
				"method=GET",
				"route=/api/v1/settings/status",
				"status=200",
				"duration_ms=",
			},
		},
		{
			name:     "forward rejected for incomplete settings",
			method:   http.MethodPost,
			target:   "/api/v1/requests?status=409",
			wantCode: http.StatusConflict,
			wantLog:  []string{"level=INFO", "route=/api/v1/requests", "status=409"},
		},
		{
			name:     "forward failed upstream",
			method:   http.MethodPost,
			target:   "/api/v1/requests?status=502",
			wantCode: http.StatusBadGateway,
			wantLog:  []string{"level=WARN", "route=/api/v1/requests", "status=502"},
		},
		{
			name:     "unknown path",
			method:   http.MethodGet,
			target:   "/api/v1/orders/42",
			wantCode: http.StatusNotFound,
			wantLog:  []string{"route=unmatched", "path=/api/v1/orders/42", "status=404"},
		},
		{
			name:      "caller request ID kept",
			method:    http.MethodPost,
			target:    "/api/v1/requests",
			requestID: "opay-cli-7",
			wantCode:  http.StatusOK,
			wantLog:   []string{"request_id=opay-cli-7"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			e := newLoggedServer(&buf)

			req := httptest.NewRequest(tt.method, tt.target, http.NoBody)
			if tt.requestID != "" {
				req.Header.Set(requestIDHeader, tt.requestID)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)
			for _, field := range tt.wantLog {
				assert.Contains(t, buf.String(), field)
			}
			assert.Equal(t, 1, strings.Count(buf.String(), "msg=request"))

			id := rec.Header().Get(requestIDHeader)
			require.NotEmpty(t, id)
			if tt.requestID != "" {
				assert.Equal(t, tt.requestID, id)
			}
			if rec.Code < http.StatusBadRequest {
				// Handlers see the same ID through the echo context.
				assert.Equal(t, id, rec.Body.String())
			}
		})
	}
}

func TestRequestLog_Probes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		statuses   []int
		wantLogged []bool
	}{
		{
			name:       "steady healthz logs once",
			path:       "/healthz",
			statuses:   []int{200, 200, 200},
			wantLogged: []bool{true, false, false},
		},
		{
			name:       "readyz failures always logged",
			path:       "/readyz",
			statuses:   []int{503, 503},
			wantLogged: []bool{true, true},
		},
		{
			name:       "readyz recovery logged once",
			path:       "/readyz",
			statuses:   []int{200, 200, 503, 200, 200},
			wantLogged: []bool{true, false, true, true, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			e := newLoggedServer(&buf)

			for i, status := range tt.statuses {
				before := buf.Len()
				req := httptest.NewRequest(http.MethodGet, tt.path+"?status="+strconv.Itoa(status), http.NoBody)
				e.ServeHTTP(httptest.NewRecorder(), req)

				logged := buf.Len() > before
				assert.Equal(t, tt.wantLogged[i], logged, "call %d (status %d)", i+1, status)
				if logged && status >= http.StatusBadRequest {
					assert.Contains(t, buf.String()[before:], "level=WARN")
				}
			}
		})
	}
}
