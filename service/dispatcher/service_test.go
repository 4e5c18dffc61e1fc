package dispatcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juicer-platform/cortex/model"
	"github.com/juicer-platform/cortex/runtime/request"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	_, err := New()
	assert.EqualError(t, err, "registry is required")
	_, err = New(WithRegistry(request.NewRegistry(request.DefaultConfig())), WithWorkers(0))
	assert.Error(t, err)
}

func TestService_Submit(t *testing.T) {
	registry := request.NewRegistry(request.DefaultConfig())
	var runs int32
	done := make(chan struct{}, 2)
	registry.Defer("r1", &model.Args{Async: true}, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		done <- struct{}{}
		return nil
	})
	registry.Defer("r2", &model.Args{Async: true}, func(ctx context.Context) error {
		done <- struct{}{}
		return errors.New("backend down")
	})

	srv, err := New(WithRegistry(registry), WithWorkers(2))
	if !assert.NoError(t, err) {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.NoError(t, srv.Start(ctx))
	assert.Error(t, srv.Start(ctx))

	assert.NoError(t, srv.Submit(ctx, "r1"))
	assert.NoError(t, srv.Submit(ctx, "r1"))
	assert.NoError(t, srv.Submit(ctx, "r2"))
	assert.NoError(t, srv.Submit(ctx, "missing"))
	assert.Error(t, srv.Submit(ctx, ""))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("deferred entry did not run")
		}
	}
	srv.Shutdown()

	assert.EqualValues(t, 1, atomic.LoadInt32(&runs))
	assert.True(t, registry.Get("r1").Done())
	assert.True(t, registry.Get("r2").Done())
	assert.Nil(t, registry.Get("missing"))
}
