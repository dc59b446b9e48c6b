package dynarec

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWriteQueue_SingleEntry(t *testing.T) {
	var q writeQueue

	release, err := q.enter(context.Background())
	assert.NoError(t, err)
	release()

	// Releasing twice is harmless.
	release()
}

func TestWriteQueue_SerializesConcurrentEntries(t *testing.T) {
	var q writeQueue
	const n = 50

	var mu sync.Mutex
	active := 0
	maxActive := 0

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := q.enter(context.Background())
			assert.NoError(t, err)
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
}

func TestWriteQueue_WaitsForPredecessor(t *testing.T) {
	var q writeQueue

	release1, err := q.enter(context.Background())
	assert.NoError(t, err)

	entered := make(chan struct{})
	go func() {
		release2, err := q.enter(context.Background())
		assert.NoError(t, err)
		close(entered)
		release2()
	}()

	select {
	case <-entered:
		t.Fatal("second mutation entered before the first released")
	case <-time.After(20 * time.Millisecond):
	}

	release1()
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("second mutation never entered after release")
	}
}

func TestWriteQueue_CancelledWaiterDoesNotBlockSuccessors(t *testing.T) {
	var q writeQueue

	release1, err := q.enter(context.Background())
	assert.NoError(t, err)

	// A waiter gives up while queued.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = q.enter(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// A later mutation still proceeds once the head releases.
	entered := make(chan struct{})
	go func() {
		release3, err := q.enter(context.Background())
		assert.NoError(t, err)
		close(entered)
		release3()
	}()

	release1()
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("successor blocked behind an abandoned slot")
	}
}
