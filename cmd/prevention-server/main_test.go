package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alzcare/alzcare/internal/platform/db"
)

func ok(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func serveHealth(t *testing.T, checks ...db.Check) (int, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/db", nil), rec)
	require.NoError(t, healthHandler(checks...)(c))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealthHandler_Healthy(t *testing.T) {
	code, body := serveHealth(t, db.Check{Name: "database", Required: true, Probe: ok})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
}

func TestHealthHandler_RequiredFailure(t *testing.T) {
	code, body := serveHealth(t,
		db.Check{Name: "database", Required: true, Probe: down},
		db.Check{Name: "backend", Probe: ok},
	)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body["status"])

	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "unhealthy", checks["database"].(map[string]interface{})["status"])
	assert.Equal(t, "healthy", checks["backend"].(map[string]interface{})["status"])
}

func TestHealthHandler_OptionalFailure(t *testing.T) {
	code, _ := serveHealth(t,
		db.Check{Name: "database", Required: true, Probe: ok},
		db.Check{Name: "backend", Probe: down},
	)
	assert.Equal(t, http.StatusOK, code)
}
