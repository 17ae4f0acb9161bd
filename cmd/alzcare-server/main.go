package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alzcare/alzcare/internal/config"
	"github.com/alzcare/alzcare/internal/domain/medical"
	"github.com/alzcare/alzcare/internal/domain/mmse"
	"github.com/alzcare/alzcare/internal/platform/auth"
	"github.com/alzcare/alzcare/internal/platform/db"
	"github.com/alzcare/alzcare/internal/platform/eventstore"
	"github.com/alzcare/alzcare/internal/platform/fhir"
	"github.com/alzcare/alzcare/internal/platform/middleware"
	"github.com/alzcare/alzcare/internal/platform/telemetry"
	"github.com/alzcare/alzcare/migrations"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "alzcare-server",
		Short: "Alzheimer risk assessment API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(eventsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the medical records API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// openPool loads config and connects; callers close the pool.
func openPool(ctx context.Context) (*config.Config, *pgxpool.Pool, *db.Migrator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		ApplicationName: "alzcare-cli",
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, pool, db.NewMigratorFS(pool, migrations.FS), nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")

			ctx := context.Background()
			_, pool, migrator, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Printf("Running migrations on schema: %s\n", schema)
			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "tenant_default", "Target schema for migrations")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")

			ctx := context.Background()
			_, pool, migrator, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", "tenant_default", "Target schema for migrations")
	cmd.AddCommand(statusCmd)

	// migrate down
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			steps, _ := cmd.Flags().GetInt("steps")
			if steps <= 0 {
				return fmt.Errorf("--steps must be positive")
			}

			ctx := context.Background()
			cfg, pool, migrator, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			if cfg.IsProduction() {
				return fmt.Errorf("migrate down is disabled when ENV=production")
			}

			count, err := migrator.Down(ctx, schema, steps)
			if err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			fmt.Printf("Rolled back %d migration(s) on schema %s.\n", count, schema)
			return nil
		},
	}
	downCmd.Flags().String("schema", "tenant_default", "Target schema for migrations")
	downCmd.Flags().Int("steps", 1, "Number of migrations to roll back")
	cmd.AddCommand(downCmd)

	return cmd
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create and migrate a tenant schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			if !db.ValidTenantID(name) {
				return fmt.Errorf("invalid tenant name %q", name)
			}

			ctx := context.Background()
			_, pool, migrator, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Printf("Creating tenant schema: %s\n", db.SchemaName(name))
			count, err := db.CreateTenantSchema(ctx, pool, name, migrator)
			if err != nil {
				return err
			}
			fmt.Printf("Tenant created, %d migration(s) applied.\n", count)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Tenant identifier (alphanumeric)")

	cmd.AddCommand(createCmd)
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Development token utilities",
	}

	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign an HS256 token with AUTH_SIGNING_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			roles, _ := cmd.Flags().GetString("roles")
			tenant, _ := cmd.Flags().GetString("tenant")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return fmt.Errorf("token issue is disabled when ENV=production")
			}
			if cfg.AuthSigningKey == "" {
				return fmt.Errorf("AUTH_SIGNING_KEY is not set")
			}
			if tenant == "" {
				tenant = cfg.DefaultTenant
			}

			parsed, err := parseRoles(roles)
			if err != nil {
				return err
			}
			token, err := auth.IssueHS256([]byte(cfg.AuthSigningKey), auth.TokenRequest{
				Subject:  subject,
				TenantID: tenant,
				Roles:    parsed,
				Issuer:   cfg.AuthIssuer,
				Audience: cfg.AuthAudience,
				TTL:      ttl,
			})
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	issueCmd.Flags().String("subject", "", "Token subject (user id)")
	issueCmd.Flags().String("roles", auth.RoleDoctor, "Comma separated roles")
	issueCmd.Flags().String("tenant", "", "Tenant id (defaults to DEFAULT_TENANT)")
	issueCmd.Flags().Duration("ttl", time.Hour, "Token lifetime")

	cmd.AddCommand(issueCmd)
	return cmd
}

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect timeline event streams",
	}

	tailCmd := &cobra.Command{
		Use:   "tail <medical-record-id>",
		Short: "Print the latest events of a medical record stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			max, _ := cmd.Flags().GetUint64("max")
			recordID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid medical record id: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client, err := eventstore.NewClient(eventstore.Config{URL: cfg.EventStoreURL, StreamPrefix: cfg.StreamPrefix})
			if err != nil {
				return err
			}
			defer client.Close()

			events, err := client.ReadLatest(cmd.Context(), recordID.String(), max)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			for _, ev := range events {
				if err := enc.Encode(ev); err != nil {
					return err
				}
			}
			return nil
		},
	}
	tailCmd.Flags().Uint64("max", 20, "Maximum number of events")

	cmd.AddCommand(tailCmd)
	return cmd
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
	logger = newLogger(cfg.Env, cfg.LogLevel)

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		ApplicationName: "alzcare-server",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Metrics
	var metrics *telemetry.Metrics
	if cfg.MetricsEnabled {
		metrics = telemetry.New("alzcare")
		metrics.RegisterPool("alzcare", pool)
	}

	// Event store
	var publishers []medical.TimelinePublisher
	var healthChecks []db.Check
	if cfg.EventStoreURL != "" {
		es, err := eventstore.NewClient(eventstore.Config{URL: cfg.EventStoreURL, StreamPrefix: cfg.StreamPrefix})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create eventstore client")
		}
		defer es.Close()
		publishers = append(publishers, medical.NewEventStorePublisher(es, metrics))
		healthChecks = append(healthChecks, db.Check{Name: "eventstore", Probe: es.HealthCheck})
		logger.Info().Str("prefix", cfg.StreamPrefix).Msg("publishing timeline events to eventstore")
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
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Tenant-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(cfg.DefaultTenant, jwtConfig(cfg)))
	} else {
		e.Use(auth.JWTMiddleware(jwtConfig(cfg)))
	}

	// Tenant middleware
	e.Use(db.TenantMiddleware(pool, cfg.DefaultTenant))

	// Audit middleware
	e.Use(middleware.Audit(logger, phiAccessRecorder(metrics)))

	// API groups
	apiV1 := e.Group("/api/v1")
	fhirGroup := e.Group("/fhir")

	// Rate limiting middleware
	rateLimitCfg := rateLimitConfig(cfg)
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	fhirGroup.Use(middleware.RateLimit(rateLimitCfg))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool, healthChecks...))
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	// CapabilityStatement
	capability := fhir.NewCapabilityStatement("alzcare", version, medical.CapabilityResource())
	fhirGroup.GET("/metadata", func(c echo.Context) error {
		return c.JSON(http.StatusOK, capability)
	})

	// Medical records domain
	tx := db.NewTransactor(pool)
	timeline := medical.NewTimelineService(medical.NewTimelineRepoPG(pool), logger,
		medical.WithPublishers(publishers...),
		medical.WithTimelineMetrics(metrics),
	)
	medicalSvc := medical.NewService(
		medical.NewMedicalRecordRepoPG(pool),
		medical.NewRiskFactorRepoPG(pool),
		medical.NewPreventionActionRepoPG(pool),
		timeline, tx,
		medical.WithMetrics(metrics),
		medical.WithLogger(logger),
	)
	medical.NewHandler(medicalSvc).RegisterRoutes(apiV1, fhirGroup)

	// MMSE domain
	mmseSvc := mmse.NewService(mmse.NewRepoPG(pool),
		mmse.WithMetrics(metrics),
		mmse.WithLogger(logger),
	)
	mmse.NewHandler(mmseSvc).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newLogger writes JSON, or console output in development. An unknown level
// falls back to info.
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

func jwtConfig(cfg *config.Config) auth.JWTConfig {
	jc := auth.JWTConfig{
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		JWKSURL:  cfg.AuthJWKSURL,
		Skipper:  auth.AuthSkipper,
	}
	if cfg.AuthSigningKey != "" && !cfg.IsProduction() {
		jc.SigningKey = []byte(cfg.AuthSigningKey)
	}
	return jc
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}
	return rl
}

// phiAccessRecorder counts audited accesses per resource and outcome.
func phiAccessRecorder(m *telemetry.Metrics) middleware.AuditRecorder {
	return middleware.AuditRecorderFunc(func(entry middleware.AuditEntry) error {
		m.PHIAccess(entry.Resource, entry.Action, entry.StatusCode)
		return nil
	})
}

var knownRoles = map[string]bool{
	auth.RolePatient:   true,
	auth.RoleDoctor:    true,
	auth.RoleCaregiver: true,
	auth.RoleAdmin:     true,
}

func parseRoles(s string) ([]string, error) {
	var roles []string
	for _, r := range strings.Split(s, ",") {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if !knownRoles[r] {
			return nil, fmt.Errorf("unknown role %q", r)
		}
		roles = append(roles, r)
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("at least one role is required")
	}
	return roles, nil
}
