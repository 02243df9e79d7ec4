package history

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/askoja/toil/pkg/api"
)

func newTestSQLiteHistory(t *testing.T) *SQLiteHistory {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	store, err := NewSQLiteHistory(db)
	if err != nil {
		t.Fatalf("NewSQLiteHistory failed: %v", err)
	}

	return store
}

func TestSQLiteHistory_SaveGetUpdate(t *testing.T) {
	store := newTestSQLiteHistory(t)

	started := time.Now()
	rec := &api.RunRecord{
		RunID:     "run-1",
		WorkerID:  "worker-1",
		Name:      "resize-images",
		Outcome:   api.OutcomeRunning,
		Progress:  25,
		StartedAt: started,
	}

	if err := store.SaveRun(rec); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := store.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Outcome != api.OutcomeRunning || got.Progress != 25 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Fatalf("StartedAt did not round-trip: want %v, got %v", started, got.StartedAt)
	}

	rec.Outcome = api.OutcomeFailed
	rec.Progress = 60
	rec.FinishedAt = time.Now()
	rec.Error = "*errors.errorString: boom"
	if err := store.UpdateRun(rec); err != nil {
		t.Fatalf("UpdateRun failed: %v", err)
	}

	got, err = store.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun after update failed: %v", err)
	}
	if got.Outcome != api.OutcomeFailed || got.Progress != 60 {
		t.Fatalf("unexpected record after update: %+v", got)
	}
	if got.Error != "*errors.errorString: boom" {
		t.Fatalf("unexpected error text: %q", got.Error)
	}
}

func TestSQLiteHistory_ZeroFinishedAtRoundTrips(t *testing.T) {
	store := newTestSQLiteHistory(t)

	// An in-flight run has no finish time yet; the zero time must come
	// back as the zero time, not as some encoding artifact.
	rec := &api.RunRecord{
		RunID:     "run-live",
		WorkerID:  "worker-1",
		Name:      "resize-images",
		Outcome:   api.OutcomeRunning,
		StartedAt: time.Now(),
	}
	if err := store.SaveRun(rec); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := store.GetRun("run-live")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if !got.FinishedAt.IsZero() {
		t.Fatalf("FinishedAt did not round-trip as zero: got %v", got.FinishedAt)
	}
}

func TestSQLiteHistory_GetNotFound(t *testing.T) {
	store := newTestSQLiteHistory(t)

	if _, err := store.GetRun("missing"); !errors.Is(err, api.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestSQLiteHistory_UpdateNotFound(t *testing.T) {
	store := newTestSQLiteHistory(t)

	rec := &api.RunRecord{RunID: "missing", Outcome: api.OutcomeCompleted}
	if err := store.UpdateRun(rec); !errors.Is(err, api.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestSQLiteHistory_ListRunsFilters(t *testing.T) {
	store := newTestSQLiteHistory(t)

	records := []*api.RunRecord{
		{RunID: "run-a", WorkerID: "w1", Name: "resize-images", Outcome: api.OutcomeCompleted, StartedAt: time.Now()},
		{RunID: "run-b", WorkerID: "w1", Name: "resize-images", Outcome: api.OutcomeFailed, StartedAt: time.Now()},
		{RunID: "run-c", WorkerID: "w2", Name: "export-report", Outcome: api.OutcomeCompleted, StartedAt: time.Now()},
	}
	for _, rec := range records {
		if err := store.SaveRun(rec); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	all, err := store.ListRuns(api.RunFilter{})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}

	byBoth, err := store.ListRuns(api.RunFilter{Name: "resize-images", Outcome: api.OutcomeFailed})
	if err != nil {
		t.Fatalf("ListRuns with both filters failed: %v", err)
	}
	if len(byBoth) != 1 || byBoth[0].RunID != "run-b" {
		t.Fatalf("unexpected filtered records: %+v", byBoth)
	}
}
