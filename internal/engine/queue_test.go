package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedJob(name string) job {
	return job{
		name:  name,
		ctx:   context.Background(),
		run:   func(context.Context) {},
		abort: func(error) {},
	}
}

func TestJobQueue_EnqueueDequeue(t *testing.T) {
	q := newJobQueue()

	require.True(t, q.Enqueue(namedJob("fetch")), "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, "fetch", got.name)
}

func TestJobQueue_FIFO(t *testing.T) {
	q := newJobQueue()
	for _, name := range []string{"A", "B", "C"} {
		q.Enqueue(namedJob(name))
	}

	for _, want := range []string{"A", "B", "C"} {
		j, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, j.name)
	}
}

func TestJobQueue_TryDequeue_Empty(t *testing.T) {
	q := newJobQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestJobQueue_WaitSignalsOnEnqueue(t *testing.T) {
	q := newJobQueue()

	q.Enqueue(namedJob("one"))
	q.Enqueue(namedJob("two"))

	select {
	case <-q.Wait():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("wait did not signal")
	}

	// signals coalesce into one
	select {
	case <-q.Wait():
		t.Fatal("expected a single coalesced signal")
	default:
	}
	assert.Equal(t, 2, q.Len())
}

func TestJobQueue_Close(t *testing.T) {
	q := newJobQueue()
	q.Close()
	q.Close()

	assert.True(t, q.Closed())
	assert.False(t, q.Enqueue(namedJob("late")), "enqueue after close should return false")

	select {
	case _, open := <-q.Wait():
		assert.False(t, open, "signal channel should be closed")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("wait did not unblock after close")
	}
}

func TestJobQueue_Drain(t *testing.T) {
	q := newJobQueue()
	q.Enqueue(namedJob("a"))
	q.Enqueue(namedJob("b"))

	jobs := q.Drain()
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].name)
	assert.Equal(t, 0, q.Len())
}

func TestJobQueue_ThreadSafe(t *testing.T) {
	q := newJobQueue()

	const producers = 10
	const jobsPerProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < jobsPerProducer; i++ {
				q.Enqueue(namedJob("job"))
			}
		}()
	}

	received := 0
	deadline := time.After(5 * time.Second)
	for received < producers*jobsPerProducer {
		if _, ok := q.TryDequeue(); ok {
			received++
			continue
		}
		select {
		case <-q.Wait():
		case <-deadline:
			t.Fatalf("consumer timeout: received %d jobs", received)
		}
	}
	wg.Wait()

	assert.Equal(t, producers*jobsPerProducer, received)
	assert.Equal(t, 0, q.Len())
}
