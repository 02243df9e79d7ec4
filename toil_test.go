package toil_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/askoja/toil"
)

func TestNewMemoryHistoryRoundTrip(t *testing.T) {
	t.Parallel()

	store := toil.NewMemoryHistory()

	rec := &toil.RunRecord{
		RunID:     "run-1",
		WorkerID:  "worker-1",
		Name:      "export",
		Outcome:   toil.OutcomeRunning,
		StartedAt: time.Now(),
	}
	require.NoError(t, store.SaveRun(rec))

	got, err := store.GetRun("run-1")
	require.NoError(t, err)
	require.Equal(t, toil.OutcomeRunning, got.Outcome)

	_, err = store.GetRun("missing")
	require.ErrorIs(t, err, toil.ErrRunNotFound)
}

func TestNewSQLiteHistoryWrapper(t *testing.T) {
	t.Parallel()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := toil.NewSQLiteHistory(db)
	require.NoError(t, err)

	rec := &toil.RunRecord{
		RunID:     "run-1",
		WorkerID:  "worker-1",
		Name:      "export",
		Outcome:   toil.OutcomeCompleted,
		Progress:  100,
		StartedAt: time.Now(),
	}
	require.NoError(t, store.SaveRun(rec))

	got, err := store.GetRun("run-1")
	require.NoError(t, err)
	require.Equal(t, toil.OutcomeCompleted, got.Outcome)
}

func TestHistoryRecorderObservesWorkerRuns(t *testing.T) {
	t.Parallel()

	store := toil.NewMemoryHistory()
	recorder := toil.NewHistoryRecorder(store, zerolog.Nop())

	signals := toil.NewSignals()
	w := toil.NewWorker(signals, func(rc *toil.RunContext) (any, error) {
		rc.Progress(75)
		return "done", nil
	}, toil.WithName("export"), toil.WithObserver(recorder))

	require.NoError(t, w.Start(context.Background()))

	success, err := signals.Pump(context.Background())
	require.NoError(t, err)
	require.True(t, success)

	runs, err := store.ListRuns(toil.RunFilter{Name: "export"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, toil.OutcomeCompleted, runs[0].Outcome)
	require.Equal(t, 75, runs[0].Progress)
}

func TestCompositeObserverWrapper(t *testing.T) {
	t.Parallel()

	metrics := &toil.BasicMetrics{}
	obs := toil.NewCompositeObserver(nil, metrics)

	signals := toil.NewSignals()
	w := toil.NewWorker(signals, func(rc *toil.RunContext) (any, error) {
		return nil, nil
	}, toil.WithObserver(obs))

	require.NoError(t, w.Start(context.Background()))
	_, err := signals.Pump(context.Background())
	require.NoError(t, err)

	snap := metrics.Snapshot()
	require.Equal(t, int64(1), snap.RunsStarted)
	require.Equal(t, int64(1), snap.RunsCompleted)
}
