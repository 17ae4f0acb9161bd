// Package telemetry exposes Prometheus metrics for the HTTP surface, the
// database pool and the risk engine.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several servers (and tests) can live in
// one process. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	riskScoresCalculated  *prometheus.CounterVec
	riskScore             prometheus.Histogram
	timelineEvents        *prometheus.CounterVec
	preventionTransitions *prometheus.CounterVec
	wellnessScore         prometheus.Histogram
	mmseSubmissions       *prometheus.CounterVec
	phiAccess             *prometheus.CounterVec
	backendRequests       *prometheus.CounterVec
	cognitiveSessions     *prometheus.CounterVec
}

// New builds the metric set under namespace, e.g. "alzcare".
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "path"}),
		httpRequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		}),

		riskScoresCalculated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_scores_calculated_total",
			Help:      "Risk score recalculations by resulting level",
		}, []string{"level"}),
		riskScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "risk_score",
			Help:      "Distribution of calculated risk scores",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		timelineEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timeline_events_total",
			Help:      "Timeline events recorded by type",
		}, []string{"event_type"}),
		preventionTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prevention_action_transitions_total",
			Help:      "Prevention action status changes",
		}, []string{"from_status", "to_status"}),
		wellnessScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "wellness_score",
			Help:      "Distribution of computed lifestyle wellness scores",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		mmseSubmissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mmse_submissions_total",
			Help:      "MMSE results submitted by interpretation",
		}, []string{"interpretation"}),
		phiAccess: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phi_access_total",
			Help:      "Audited patient data accesses",
		}, []string{"resource", "action", "status"}),
		backendRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Outbound calls to the risk engine API",
		}, []string{"operation", "outcome"}),
		cognitiveSessions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cognitive_sessions_total",
			Help:      "Cognitive activity sessions by resulting status",
		}, []string{"status"}),
	}
}

// Registry exposes the underlying registry for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency keyed by route pattern, so
// ids in the path do not explode label cardinality.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			m.httpRequestsInFlight.Inc()
			defer m.httpRequestsInFlight.Dec()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if status < http.StatusBadRequest {
					status = http.StatusInternalServerError
				}
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			m.httpRequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			m.httpRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// RegisterPool exports pgxpool statistics as gauges.
func (m *Metrics) RegisterPool(namespace string, pool *pgxpool.Pool) {
	if m == nil || pool == nil {
		return
	}
	gauge := func(name, help string, fn func(*pgxpool.Stat) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return fn(pool.Stat()) })
	}
	m.registry.MustRegister(
		gauge("total_conns", "Total connections in the pool", func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
		gauge("acquired_conns", "Connections currently acquired", func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
		gauge("idle_conns", "Idle connections", func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
		gauge("max_conns", "Configured maximum connections", func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }),
	)
}

// ── Domain helpers ──

func (m *Metrics) RiskScoreCalculated(level string, score float64) {
	if m == nil {
		return
	}
	m.riskScoresCalculated.WithLabelValues(level).Inc()
	m.riskScore.Observe(score)
}

func (m *Metrics) TimelineEventRecorded(eventType string) {
	if m == nil {
		return
	}
	m.timelineEvents.WithLabelValues(eventType).Inc()
}

func (m *Metrics) PreventionTransition(from, to string) {
	if m == nil {
		return
	}
	m.preventionTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) WellnessScoreComputed(score float64) {
	if m == nil {
		return
	}
	m.wellnessScore.Observe(score)
}

func (m *Metrics) MMSESubmitted(interpretation string) {
	if m == nil {
		return
	}
	m.mmseSubmissions.WithLabelValues(interpretation).Inc()
}

func (m *Metrics) PHIAccess(resource, action string, status int) {
	if m == nil {
		return
	}
	m.phiAccess.WithLabelValues(resource, action, strconv.Itoa(status)).Inc()
}

func (m *Metrics) BackendRequest(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.backendRequests.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) CognitiveSession(status string) {
	if m == nil {
		return
	}
	m.cognitiveSessions.WithLabelValues(status).Inc()
}
