package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/askoja/toil/pkg/api"
)

func TestSignals_HandlersRunInDrainingGoroutine(t *testing.T) {
	t.Parallel()

	signals := NewSignals()

	var got []string
	signals.OnStarted(func() { got = append(got, "started") })
	signals.OnProgress(func(pct int) { got = append(got, "progress") })
	signals.OnResult(func(v any) { got = append(got, "result") })
	signals.OnFinished(func(success bool) { got = append(got, "finished") })

	w := New(signals, func(rc *RunContext) (any, error) {
		rc.Progress(50)
		return "ok", nil
	})

	done := make(chan error, 1)
	go func() { done <- w.Start(context.Background()) }()
	require.NoError(t, <-done)

	// Nothing is handled until the owner drains; then everything is
	// handled in emission order, in this goroutine.
	require.Empty(t, got)
	require.Equal(t, 4, signals.Drain())
	require.Equal(t, []string{"started", "progress", "result", "finished"}, got)
}

func TestSignals_PumpReturnsFinishedFlag(t *testing.T) {
	t.Parallel()

	signals := NewSignals()
	w := New(signals, func(rc *RunContext) (any, error) {
		return nil, nil
	})

	go func() { _ = w.Start(context.Background()) }()

	success, err := signals.Pump(context.Background())
	require.NoError(t, err)
	require.True(t, success)
}

func TestSignals_PumpHonorsContext(t *testing.T) {
	t.Parallel()

	signals := NewSignals()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := signals.Pump(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSignals_DrainOnEmptyQueueDoesNotBlock(t *testing.T) {
	t.Parallel()

	signals := NewSignals()
	require.Equal(t, 0, signals.Drain())
}

func TestSignals_MultipleHandlersPerEvent(t *testing.T) {
	t.Parallel()

	signals := NewSignals()

	var a, b bool
	signals.OnFinished(func(success bool) { a = success })
	signals.OnFinished(func(success bool) { b = success })

	w := New(signals, func(rc *RunContext) (any, error) { return nil, nil })

	done := make(chan error, 1)
	go func() { done <- w.Start(context.Background()) }()
	require.NoError(t, <-done)

	signals.Drain()
	require.True(t, a)
	require.True(t, b)
}

func TestSignals_ErrorPayload(t *testing.T) {
	t.Parallel()

	signals := NewSignals()

	var seen *api.WorkError
	signals.OnError(func(werr *api.WorkError) { seen = werr })

	w := New(signals, func(rc *RunContext) (any, error) {
		panic("kaboom")
	})

	done := make(chan error, 1)
	go func() { done <- w.Start(context.Background()) }()
	require.NoError(t, <-done)

	signals.Drain()
	require.NotNil(t, seen)
	require.Equal(t, "panic", seen.Kind)
	require.Equal(t, "kaboom", seen.Message)
}

func TestSignals_RawChannelBypassesHandlers(t *testing.T) {
	t.Parallel()

	signals := NewSignals()

	called := false
	signals.OnFinished(func(success bool) { called = true })

	w := New(signals, func(rc *RunContext) (any, error) { return nil, nil })

	done := make(chan error, 1)
	go func() { done <- w.Start(context.Background()) }()
	require.NoError(t, <-done)

	events := collectEvents(t, signals)
	require.Equal(t, api.EventFinished, events[len(events)-1].Type)
	require.False(t, called, "raw channel consumption must not invoke handlers")
}
