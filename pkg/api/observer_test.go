package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recordingObserver captures callback names in order.
type recordingObserver struct {
	calls []string
}

func (r *recordingObserver) OnRunStart(ctx context.Context, run RunInfo) {
	r.calls = append(r.calls, "start")
}

func (r *recordingObserver) OnProgress(ctx context.Context, run RunInfo, pct int) {
	r.calls = append(r.calls, "progress")
}

func (r *recordingObserver) OnRunCompleted(ctx context.Context, run RunInfo, d time.Duration) {
	r.calls = append(r.calls, "completed")
}

func (r *recordingObserver) OnRunFailed(ctx context.Context, run RunInfo, werr *WorkError, d time.Duration) {
	r.calls = append(r.calls, "failed")
}

func (r *recordingObserver) OnRunCancelled(ctx context.Context, run RunInfo, d time.Duration) {
	r.calls = append(r.calls, "cancelled")
}

func TestNewCompositeObserver_Empty(t *testing.T) {
	t.Parallel()

	obs := NewCompositeObserver()
	require.IsType(t, NoopObserver{}, obs)

	obs = NewCompositeObserver(nil, nil)
	require.IsType(t, NoopObserver{}, obs)
}

func TestNewCompositeObserver_Single(t *testing.T) {
	t.Parallel()

	rec := &recordingObserver{}
	obs := NewCompositeObserver(nil, rec, nil)

	// A single non-nil observer is returned unwrapped.
	require.Same(t, Observer(rec), obs)
}

func TestCompositeObserver_FanOut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a := &recordingObserver{}
	b := &recordingObserver{}
	obs := NewCompositeObserver(a, b)

	run := RunInfo{WorkerID: "w1", RunID: "r1", StartedAt: time.Now()}

	obs.OnRunStart(ctx, run)
	obs.OnProgress(ctx, run, 50)
	obs.OnRunFailed(ctx, run, &WorkError{Kind: "err", Message: "boom"}, time.Millisecond)

	want := []string{"start", "progress", "failed"}
	require.Equal(t, want, a.calls)
	require.Equal(t, want, b.calls)
}

func TestBasicMetrics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := &BasicMetrics{}
	run := RunInfo{WorkerID: "w1", RunID: "r1"}

	m.OnRunStart(ctx, run)
	m.OnRunStart(ctx, run)
	m.OnRunStart(ctx, run)
	m.OnRunStart(ctx, run)

	m.OnRunCompleted(ctx, run, 100*time.Millisecond)
	m.OnRunCompleted(ctx, run, 300*time.Millisecond)
	m.OnRunFailed(ctx, run, &WorkError{Kind: "err", Message: "boom"}, time.Millisecond)
	m.OnRunCancelled(ctx, run, time.Millisecond)

	snap := m.Snapshot()
	require.Equal(t, int64(4), snap.RunsStarted)
	require.Equal(t, int64(2), snap.RunsCompleted)
	require.Equal(t, int64(1), snap.RunsFailed)
	require.Equal(t, int64(1), snap.RunsCancelled)
	require.Equal(t, int64(0), snap.RunsInFlight)
	require.Equal(t, 200*time.Millisecond, snap.AvgRunDuration)
}

func TestWorkErrorError(t *testing.T) {
	t.Parallel()

	werr := &WorkError{Kind: "*errors.errorString", Message: "boom"}
	require.Equal(t, "*errors.errorString: boom", werr.Error())
}
