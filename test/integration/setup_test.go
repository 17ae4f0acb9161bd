//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/alzcare/alzcare/internal/domain/medical"
	"github.com/alzcare/alzcare/internal/domain/mmse"
	"github.com/alzcare/alzcare/internal/platform/db"
	"github.com/alzcare/alzcare/migrations"
)

type testDB struct {
	Pool    *pgxpool.Pool
	ConnStr string
}

var globalDB *testDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	connStr, cleanup, err := startPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres: %v\n", err)
		os.Exit(1)
	}
	pool, err := db.NewPool(ctx, db.PoolConfig{URL: connStr, MaxConns: 10, ApplicationName: "alzcare-integration"})
	if err != nil {
		cleanup()
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}

	globalDB = &testDB{Pool: pool, ConnStr: connStr}
	code := m.Run()
	pool.Close()
	cleanup()
	os.Exit(code)
}

// createTenant creates a migrated tenant schema and drops it when the test ends.
func createTenant(t *testing.T, ctx context.Context, prefix string) string {
	t.Helper()
	tenantID := fmt.Sprintf("%s_%s", prefix, strings.ReplaceAll(uuid.NewString()[:8], "-", ""))
	migrator := db.NewMigratorFS(globalDB.Pool, migrations.FS)
	n, err := db.CreateTenantSchema(ctx, globalDB.Pool, tenantID, migrator)
	if err != nil {
		t.Fatalf("create tenant schema %s: %v", tenantID, err)
	}
	if n == 0 {
		t.Fatalf("expected migrations to run for %s", tenantID)
	}
	t.Cleanup(func() {
		schema := db.SchemaName(tenantID)
		if _, err := globalDB.Pool.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
			t.Logf("warning: drop schema %s: %v", schema, err)
		}
	})
	return tenantID
}

// withTenantConn pins a connection to the tenant schema the way
// db.TenantMiddleware does for requests.
func withTenantConn(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error {
	conn, err := globalDB.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, public", db.SchemaName(tenantID))); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}
	defer conn.Exec(context.Background(), "RESET search_path")

	return fn(context.WithValue(ctx, db.DBConnKey, conn))
}

// recordingPublisher captures timeline events published after commit.
type recordingPublisher struct {
	events []*medical.TimelineEvent
}

func (p *recordingPublisher) PublishTimeline(_ context.Context, events ...*medical.TimelineEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func newMedicalService(pub medical.TimelinePublisher) *medical.Service {
	pool := globalDB.Pool
	timeline := medical.NewTimelineService(medical.NewTimelineRepoPG(pool), zerolog.Nop(),
		medical.WithPublishers(pub))
	return medical.NewService(
		medical.NewMedicalRecordRepoPG(pool),
		medical.NewRiskFactorRepoPG(pool),
		medical.NewPreventionActionRepoPG(pool),
		timeline, db.NewTransactor(pool),
	)
}

func newMMSEService() *mmse.Service {
	return mmse.NewService(mmse.NewRepoPG(globalDB.Pool))
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func newRecord(age int, fh medical.FamilyHistory) *medical.MedicalRecord {
	return &medical.MedicalRecord{
		PatientID:     uuid.New(),
		Age:           intPtr(age),
		Gender:        medical.GenderFemale,
		FamilyHistory: fh,
	}
}
