//go:build integration

package integration

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alzcare/alzcare/internal/domain/cognitive"
	"github.com/alzcare/alzcare/internal/platform/apperr"
	"github.com/alzcare/alzcare/internal/platform/db"
)

func TestCognitive_SessionsAndCascade(t *testing.T) {
	ctx := context.Background()
	gdb, err := db.OpenGorm(db.GormConfig{DSN: globalDB.ConnStr, MaxOpenConns: 5}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	if err := cognitive.AutoMigrate(gdb); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	sessions := cognitive.NewSessionRepoGorm(gdb)
	svc := cognitive.NewService(cognitive.NewActivityRepoGorm(gdb), sessions)

	tag := uuid.NewString()[:8]
	title, typ, diff, maxScore := "Recall "+tag+" "+strings.Repeat("x", 250), "memory", "hard", 12
	a, err := svc.CreateActivity(ctx, cognitive.ActivityInput{
		Title: &title, Type: &typ, Difficulty: &diff, MaxScore: &maxScore,
		Content: []byte(`{"words":["river","lamp"]}`),
	})
	if err != nil {
		t.Fatalf("create activity: %v", err)
	}

	found, err := svc.ListActivities(ctx, cognitive.ActivityFilter{Keyword: strings.ToUpper(tag)})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].ID != a.ID {
		t.Fatalf("expected search to find the activity, got %d", len(found))
	}

	patient := uuid.New()
	sess, err := svc.StartActivity(ctx, a.ID, cognitive.StartInput{PatientID: patient})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	score, spent := 11, 70
	if _, err := svc.CompleteSession(ctx, sess.ID, cognitive.FinishInput{Score: &score, TimeSpentSeconds: &spent}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := svc.AbandonSession(ctx, sess.ID, cognitive.FinishInput{}); !apperr.IsConflict(err) {
		t.Errorf("expected conflict on finished session, got %v", err)
	}

	history, err := svc.History(ctx, patient, "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Activity == nil || history[0].Activity.ID != a.ID {
		t.Fatalf("expected one session with its activity, got %+v", history)
	}
	st, err := svc.PatientStats(ctx, patient)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.CompletedSessions != 1 || st.TotalPoints != 12 || st.AverageScore == nil || *st.AverageScore != 11 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if _, err := svc.GlobalStats(ctx); err != nil {
		t.Errorf("global stats: %v", err)
	}

	if err := svc.DeleteActivity(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := sessions.GetByID(ctx, sess.ID); !apperr.IsNotFound(err) {
		t.Errorf("expected sessions to cascade, got %v", err)
	}
}
