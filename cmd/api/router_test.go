package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func ok(context.Context) error { return nil }

func failing(context.Context) error { return errors.New("connection refused") }

func TestHealthCheckHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		checks []healthCheck
		status int
		body   string
	}{
		{
			name:   "all healthy",
			checks: []healthCheck{{name: "database", critical: true, ping: ok}, {name: "redis", ping: ok}},
			status: http.StatusOK,
			body:   `"status":"ok"`,
		},
		{
			name:   "cache down is degraded but serving",
			checks: []healthCheck{{name: "database", critical: true, ping: ok}, {name: "redis", ping: failing}},
			status: http.StatusOK,
			body:   `"status":"degraded"`,
		},
		{
			name:   "database down",
			checks: []healthCheck{{name: "database", critical: true, ping: failing}, {name: "redis", ping: ok}},
			status: http.StatusServiceUnavailable,
			body:   `"database":"error: connection refused"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", healthCheckHandler("1.2.3", tt.checks))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
			assert.Contains(t, w.Body.String(), `"version":"1.2.3"`)
		})
	}
}
