package request

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juicer-platform/cortex/internal/clock"
	"github.com/juicer-platform/cortex/model"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_CancelBeforeStart(t *testing.T) {
	registry := NewRegistry(DefaultConfig())
	registry.Cancel("r1")
	assert.True(t, registry.Canceled("r1"))
	assert.False(t, registry.Canceled("r2"))
	registry.Cancel("r1")
	assert.True(t, registry.Canceled("r1"))
}

func TestRegistry_CancelPreservesCounters(t *testing.T) {
	registry := NewRegistry(DefaultConfig())
	registry.Begin("r1", 6)
	registry.Complete("r1")
	registry.Complete("r1")
	registry.Get("r1").SetData("partial")

	registry.Cancel("r1")

	state := registry.Get("r1")
	snapshot := state.Progress.Snapshot()
	assert.True(t, state.Canceled())
	assert.Equal(t, 6, snapshot.Total)
	assert.Equal(t, 2, snapshot.Completed)
	assert.Equal(t, "partial", state.Data())
}

func TestRegistry_CanceledParent(t *testing.T) {
	registry := NewRegistry(DefaultConfig())
	registry.Ensure("parent")
	registry.Link("child", "parent", "summary")
	assert.False(t, registry.Canceled("child"))
	registry.Cancel("parent")
	assert.True(t, registry.Canceled("child"))
	assert.False(t, registry.Get("child").Canceled())
}

func TestRegistry_Dispatch(t *testing.T) {
	registry := NewRegistry(DefaultConfig())
	ctx := context.Background()
	assert.ErrorIs(t, registry.Dispatch(ctx, "missing"), ErrNotFound)

	registry.Ensure("r0")
	assert.ErrorIs(t, registry.Dispatch(ctx, "r0"), ErrNotDeferred)

	var calls int32
	args := &model.Args{Text: "hello", Async: true}
	registry.Defer("r1", args, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	})
	state := registry.Get("r1")
	assert.True(t, state.Deferred())
	assert.Equal(t, args, state.Args())

	assert.EqualError(t, registry.Dispatch(ctx, "r1"), "boom")
	assert.ErrorIs(t, registry.Dispatch(ctx, "r1"), ErrNotDeferred)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.True(t, state.Done())
	assert.False(t, state.Deferred())
}

func TestRegistry_Sweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock.NowFunc = func() time.Time { return now }
	defer func() { clock.NowFunc = time.Now }()

	registry := NewRegistry(Config{GracePeriod: time.Minute, MaxAge: time.Hour})
	registry.Finish("done", "result")
	registry.Ensure("pending")

	assert.Equal(t, 0, registry.Sweep(now.Add(30*time.Second)))
	assert.Equal(t, 1, registry.Sweep(now.Add(2*time.Minute)))
	assert.Nil(t, registry.Get("done"))
	assert.NotNil(t, registry.Get("pending"))
	assert.Equal(t, 1, registry.Sweep(now.Add(2*time.Hour)))
	assert.Equal(t, 0, registry.Len())
}

func TestRegistry_SweepKeepsInFlight(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock.NowFunc = func() time.Time { return now }
	defer func() { clock.NowFunc = time.Now }()

	registry := NewRegistry(Config{GracePeriod: time.Minute, MaxAge: time.Millisecond})
	registry.Begin("running", 2)
	registry.Complete("running")
	release := make(chan struct{})
	registry.Defer("dispatched", &model.Args{Async: true}, func(ctx context.Context) error {
		<-release
		return nil
	})
	dispatched := make(chan error, 1)
	go func() { dispatched <- registry.Dispatch(context.Background(), "dispatched") }()
	assert.Eventually(t, func() bool { return !registry.Get("dispatched").Deferred() }, time.Second, time.Millisecond)
	registry.Ensure("idle")

	later := now.Add(time.Hour)
	assert.Equal(t, 1, registry.Sweep(later))
	assert.Nil(t, registry.Get("idle"))
	assert.True(t, registry.Get("running").InFlight())
	assert.True(t, registry.Get("dispatched").InFlight())
	assert.Equal(t, 1, registry.Get("running").Progress.Snapshot().Completed)

	clock.NowFunc = func() time.Time { return later }
	registry.Complete("running")
	registry.Finish("running", "result")
	close(release)
	assert.NoError(t, <-dispatched)
	assert.False(t, registry.Get("running").InFlight())
	assert.Equal(t, 2, registry.Get("running").Progress.Snapshot().Completed)

	assert.Equal(t, 0, registry.Sweep(later.Add(30*time.Second)))
	assert.Equal(t, 2, registry.Sweep(later.Add(2*time.Minute)))
	assert.Equal(t, 0, registry.Len())
}
