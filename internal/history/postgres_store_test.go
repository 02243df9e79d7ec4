package history

import (
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/askoja/toil/pkg/api"
)

// newTestPostgresHistory connects to the PostgreSQL given in TOIL_PG_DSN
// and returns a history with a clean runs table. Tests are skipped when no
// database is available.
func newTestPostgresHistory(t *testing.T) *PostgresHistory {
	t.Helper()

	dsn := os.Getenv("TOIL_PG_DSN")
	if dsn == "" {
		t.Skip("TOIL_PG_DSN not set; skipping Postgres integration test")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	store, err := NewPostgresHistory(db)
	if err != nil {
		t.Fatalf("NewPostgresHistory failed: %v", err)
	}

	if _, err := db.Exec("DELETE FROM runs"); err != nil {
		t.Fatalf("failed to clean runs table: %v", err)
	}

	return store
}

func TestPostgresHistory_SaveGetUpdate(t *testing.T) {
	store := newTestPostgresHistory(t)

	started := time.Now()
	rec := &api.RunRecord{
		RunID:     "run-1",
		WorkerID:  "worker-1",
		Name:      "resize-images",
		Outcome:   api.OutcomeRunning,
		Progress:  10,
		StartedAt: started,
	}

	if err := store.SaveRun(rec); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := store.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Outcome != api.OutcomeRunning || got.Progress != 10 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Fatalf("StartedAt did not round-trip: want %v, got %v", started, got.StartedAt)
	}

	rec.Outcome = api.OutcomeCancelled
	rec.FinishedAt = time.Now()
	if err := store.UpdateRun(rec); err != nil {
		t.Fatalf("UpdateRun failed: %v", err)
	}

	got, err = store.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun after update failed: %v", err)
	}
	if got.Outcome != api.OutcomeCancelled {
		t.Fatalf("expected CANCELLED, got %q", got.Outcome)
	}
}

func TestPostgresHistory_NotFound(t *testing.T) {
	store := newTestPostgresHistory(t)

	if _, err := store.GetRun("missing"); !errors.Is(err, api.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if err := store.UpdateRun(&api.RunRecord{RunID: "missing"}); !errors.Is(err, api.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestPostgresHistory_ListRunsFilters(t *testing.T) {
	store := newTestPostgresHistory(t)

	records := []*api.RunRecord{
		{RunID: "run-a", WorkerID: "w1", Name: "resize-images", Outcome: api.OutcomeCompleted, StartedAt: time.Now()},
		{RunID: "run-b", WorkerID: "w2", Name: "export-report", Outcome: api.OutcomeFailed, StartedAt: time.Now()},
	}
	for _, rec := range records {
		if err := store.SaveRun(rec); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	byOutcome, err := store.ListRuns(api.RunFilter{Outcome: api.OutcomeFailed})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(byOutcome) != 1 || byOutcome[0].RunID != "run-b" {
		t.Fatalf("unexpected filtered records: %+v", byOutcome)
	}
}
