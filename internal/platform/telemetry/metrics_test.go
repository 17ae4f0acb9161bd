package telemetry

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_CountsByRoute(t *testing.T) {
	m := New("alzcare")
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/v1/medical-records/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/medical-records/"+id, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}

	got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/medical-records/:id", "200"))
	if got != 3 {
		t.Errorf("expected 3 requests under the route label, got %v", got)
	}
	if v := testutil.ToFloat64(m.httpRequestsInFlight); v != 0 {
		t.Errorf("expected in-flight gauge back at 0, got %v", v)
	}
}

func TestMiddleware_ErrorStatus(t *testing.T) {
	m := New("alzcare")
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/missing", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})
	e.GET("/broken", func(c echo.Context) error {
		return errors.New("boom")
	})

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/broken", nil))

	if v := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues(http.MethodGet, "/missing", "404")); v != 1 {
		t.Errorf("expected one 404, got %v", v)
	}
	if v := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues(http.MethodGet, "/broken", "500")); v != 1 {
		t.Errorf("expected one 500, got %v", v)
	}
}

func TestDomainHelpers(t *testing.T) {
	m := New("alzcare")
	m.RiskScoreCalculated("HIGH", 62.5)
	m.RiskScoreCalculated("HIGH", 70)
	m.TimelineEventRecorded("RISK_FACTOR_ADDED")
	m.PreventionTransition("PENDING", "IN_PROGRESS")
	m.MMSESubmitted("Normal cognition")
	m.PHIAccess("medical-records", "read", 200)
	m.BackendRequest("risk_score", errors.New("timeout"))
	m.CognitiveSession("COMPLETED")

	if v := testutil.ToFloat64(m.riskScoresCalculated.WithLabelValues("HIGH")); v != 2 {
		t.Errorf("expected 2 HIGH calculations, got %v", v)
	}
	if v := testutil.ToFloat64(m.timelineEvents.WithLabelValues("RISK_FACTOR_ADDED")); v != 1 {
		t.Errorf("expected 1 timeline event, got %v", v)
	}
	if v := testutil.ToFloat64(m.preventionTransitions.WithLabelValues("PENDING", "IN_PROGRESS")); v != 1 {
		t.Errorf("expected 1 transition, got %v", v)
	}
	if v := testutil.ToFloat64(m.backendRequests.WithLabelValues("risk_score", "error")); v != 1 {
		t.Errorf("expected 1 failed backend call, got %v", v)
	}
	if v := testutil.ToFloat64(m.cognitiveSessions.WithLabelValues("COMPLETED")); v != 1 {
		t.Errorf("expected 1 completed session, got %v", v)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RiskScoreCalculated("LOW", 1)
	m.TimelineEventRecorded("X")
	m.PreventionTransition("A", "B")
	m.WellnessScoreComputed(50)
	m.MMSESubmitted("x")
	m.PHIAccess("r", "read", 200)
	m.BackendRequest("op", nil)
	m.CognitiveSession("ABANDONED")
	m.RegisterPool("alzcare", nil)

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	called := false
	if err := m.Middleware()(func(echo.Context) error { called = true; return nil })(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected handler to run")
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New("alzcare")
	m.WellnessScoreComputed(72)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{"alzcare_wellness_score_bucket", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %s in exposition output", want)
		}
	}
}
