package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// GetPoolStats returns connection pool statistics.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// Check is an additional dependency probed by the health endpoint, such as
// the event store.
type Check struct {
	Name     string
	Required bool
	Probe    func(ctx context.Context) error
}

// CheckResult is the outcome of a single Check.
type CheckResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// RunChecks probes every check and reports whether all required ones passed.
func RunChecks(ctx context.Context, checks []Check) (map[string]CheckResult, bool) {
	results := make(map[string]CheckResult, len(checks))
	healthy := true
	for _, chk := range checks {
		if err := chk.Probe(ctx); err != nil {
			results[chk.Name] = CheckResult{Status: "unhealthy", Error: err.Error()}
			if chk.Required {
				healthy = false
			}
			continue
		}
		results[chk.Name] = CheckResult{Status: "healthy"}
	}
	return results, healthy
}

// HealthHandler pings the database and any extra checks. Optional checks
// that fail are reported without failing the endpoint.
func HealthHandler(pool *pgxpool.Pool, extra ...Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		checks := append([]Check{{Name: "database", Required: true, Probe: pool.Ping}}, extra...)
		results, healthy := RunChecks(ctx, checks)
		stats := GetPoolStats(pool)

		status, code := "healthy", http.StatusOK
		if !healthy {
			stats.Healthy = false
			status, code = "unhealthy", http.StatusServiceUnavailable
		}

		return c.JSON(code, map[string]interface{}{
			"status": status,
			"checks": results,
			"pool":   stats,
		})
	}
}
