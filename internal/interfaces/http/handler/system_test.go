package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepacking/backend/internal/interfaces/http/dto"
)

func serveSystem(h *SystemHandler, path string) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/system/info", h.GetSystemInfo)
	r.GET("/system/ping", h.Ping)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestSystemHandler_HealthUp(t *testing.T) {
	ok := func(context.Context) error { return nil }
	h := NewSystemHandler("1.0.0", map[string]HealthCheck{"database": ok, "redis": ok})

	w := serveSystem(h, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "UP", resp.Status)
	assert.Equal(t, map[string]string{"database": "UP", "redis": "UP"}, resp.Components)
}

func TestSystemHandler_HealthDown(t *testing.T) {
	h := NewSystemHandler("1.0.0", map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	w := serveSystem(h, "/health")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "DOWN", resp.Status)
	assert.Equal(t, "UP", resp.Components["database"])
	assert.Equal(t, "DOWN", resp.Components["redis"])
}

func TestSystemHandler_HealthChecksHaveDeadline(t *testing.T) {
	var hadDeadline bool
	h := NewSystemHandler("1.0.0", map[string]HealthCheck{
		"database": func(ctx context.Context) error {
			_, hadDeadline = ctx.Deadline()
			return nil
		},
	})

	serveSystem(h, "/health")
	assert.True(t, hadDeadline)
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler("2.3.4", nil)

	w := serveSystem(h, "/system/info")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "2.3.4", data["version"])
	assert.NotEmpty(t, data["go_version"])
}

func TestSystemHandler_Ping(t *testing.T) {
	w := serveSystem(NewSystemHandler("1.0.0", nil), "/system/ping")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pong"`)
}
