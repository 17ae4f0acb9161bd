package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/alzcare/alzcare/internal/config"
	"github.com/alzcare/alzcare/internal/domain/cognitive"
	"github.com/alzcare/alzcare/internal/domain/wellness"
	"github.com/alzcare/alzcare/internal/platform/auth"
	"github.com/alzcare/alzcare/internal/platform/db"
	"github.com/alzcare/alzcare/internal/platform/middleware"
	"github.com/alzcare/alzcare/internal/platform/telemetry"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "prevention-server",
		Short: "Health prevention and wellness API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the prevention API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the prevention tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Env, cfg.LogLevel)
			gdb, err := openGorm(cfg, logger)
			if err != nil {
				return err
			}
			if err := wellness.AutoMigrate(gdb); err != nil {
				return err
			}
			if err := cognitive.AutoMigrate(gdb); err != nil {
				return err
			}
			fmt.Println("Prevention tables are up to date.")
			return nil
		},
	}
}

func openGorm(cfg *config.Config, logger zerolog.Logger) (*gorm.DB, error) {
	return db.OpenGorm(db.GormConfig{
		DSN:           cfg.DatabaseURL,
		MaxOpenConns:  int(cfg.DBMaxConns),
		MaxIdleConns:  int(cfg.DBMinConns),
		SlowThreshold: 200 * time.Millisecond,
		Debug:         cfg.IsDev() && strings.EqualFold(cfg.LogLevel, "debug"),
	}, logger)
}

func runServer() error {
	// Logger
	logger := newLogger(os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	logger = newLogger(cfg.Env, cfg.LogLevel).With().Str("service", "prevention").Logger()

	// Database
	gdb, err := openGorm(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to get database handle")
	}
	defer sqlDB.Close()
	if cfg.IsDev() {
		if err := wellness.AutoMigrate(gdb); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate prevention tables")
		}
		if err := cognitive.AutoMigrate(gdb); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate cognitive activity tables")
		}
	}
	logger.Info().Msg("connected to database")

	// Metrics
	var metrics *telemetry.Metrics
	if cfg.MetricsEnabled {
		metrics = telemetry.New("alzcare_prevention")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.ContextTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	jc := auth.JWTConfig{
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		JWKSURL:  cfg.AuthJWKSURL,
		Skipper:  auth.AuthSkipper,
	}
	if cfg.AuthSigningKey != "" && !cfg.IsProduction() {
		jc.SigningKey = []byte(cfg.AuthSigningKey)
	}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(cfg.DefaultTenant, jc))
	} else {
		e.Use(auth.JWTMiddleware(jc))
	}

	// Audit middleware
	e.Use(middleware.Audit(logger))

	// API group
	apiV1 := e.Group("/api/v1")
	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", healthHandler(db.Check{Name: "database", Required: true, Probe: sqlDB.PingContext}))
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	// Wellness domain
	backend := wellness.NewBackendClient(cfg.BackendURL, cfg.BackendTimeout, metrics)
	svc := wellness.NewService(
		wellness.NewProfileRepoGorm(gdb),
		wellness.NewRecommendationRepoGorm(gdb),
		wellness.NewActivityRepoGorm(gdb),
		wellness.NewTransactor(gdb),
		wellness.WithRiskSource(backend),
		wellness.WithMetrics(metrics),
		wellness.WithLogger(logger),
	)
	wellness.NewHandler(svc).RegisterRoutes(apiV1)

	// Cognitive activities
	games := cognitive.NewService(
		cognitive.NewActivityRepoGorm(gdb),
		cognitive.NewSessionRepoGorm(gdb),
		cognitive.WithMetrics(metrics),
		cognitive.WithLogger(logger),
	)
	cognitive.NewHandler(games).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.PreventionPort
		logger.Info().Str("addr", addr).Str("backend", cfg.BackendURL).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// healthHandler reports 503 when a required check fails.
func healthHandler(checks ...db.Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		results, healthy := db.RunChecks(ctx, checks)
		status, code := "healthy", http.StatusOK
		if !healthy {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		return c.JSON(code, map[string]interface{}{
			"status": status,
			"checks": results,
		})
	}
}

func newLogger(env, level string) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if env == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return logger.Level(lvl)
}
