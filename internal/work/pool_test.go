package work

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	pool := NewPool(4, zerolog.Nop())
	defer pool.Close()

	var counter int64
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		err := pool.Submit(context.Background(), func() {
			defer wg.Done()
			atomic.AddInt64(&counter, 1)
		})
		require.NoError(t, err)
	}
	wg.Wait()

	assert.Equal(t, int64(50), atomic.LoadInt64(&counter))
}

func TestPool_SubmitAfterCloseFails(t *testing.T) {
	pool := NewPool(1, zerolog.Nop())
	pool.Close()

	err := pool.Submit(context.Background(), func() {})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPool_CloseIsIdempotent(t *testing.T) {
	pool := NewPool(2, zerolog.Nop())
	pool.Close()
	pool.Close()
}

func TestPool_CloseWaitsForInFlightTasks(t *testing.T) {
	pool := NewPool(1, zerolog.Nop())

	started := make(chan struct{})
	var finished atomic.Bool

	require.NoError(t, pool.Submit(context.Background(), func() {
		close(started)
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
	}))

	<-started
	pool.Close()
	assert.True(t, finished.Load(), "Close must wait for running tasks")
}

func TestPool_SubmitHonorsCancellation(t *testing.T) {
	pool := NewPool(1, zerolog.Nop())
	defer pool.Close()

	// Occupy the single worker so the next submit has to block.
	release := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func() { <-release }))
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := pool.Submit(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPool_MinimumOneWorker(t *testing.T) {
	pool := NewPool(0, zerolog.Nop())
	defer pool.Close()

	done := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}
}
