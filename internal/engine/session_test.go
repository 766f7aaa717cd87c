package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolpmikel/FinanceApp/internal/model"
	"github.com/kolpmikel/FinanceApp/internal/testutil"
)

func startSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s := NewSession(append([]Option{WithLogger(quietLogger())}, opts...)...)
	go func() { _ = s.Run(context.Background()) }()
	t.Cleanup(func() {
		s.Stop()
		<-s.Done()
	})
	return s
}

func TestSession_JobsNeverOverlap(t *testing.T) {
	s := startSession(t)

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.do(context.Background(), "probe", func(context.Context) error {
				n := active.Add(1)
				if n > maxActive.Load() {
					maxActive.Store(n)
				}
				time.Sleep(100 * time.Microsecond)
				active.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
}

func TestSession_ReturnsJobError(t *testing.T) {
	s := startSession(t)
	boom := errors.New("boom")

	err := s.do(context.Background(), "fail", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestSession_AttachesRequestID(t *testing.T) {
	s := startSession(t, WithRequestIDs(testutil.NewFixedRequestIDGenerator("req-7")))

	var got string
	err := s.do(context.Background(), "probe", func(ctx context.Context) error {
		got, _ = model.RequestIDFrom(ctx)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "req-7", got)
}

func TestSession_StoppedRejectsJobs(t *testing.T) {
	s := NewSession(WithLogger(quietLogger()))
	s.Stop()

	ran := false
	err := s.do(context.Background(), "late", func(context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, CodeSessionClosed, CodeOf(err))

	assert.NoError(t, s.Run(context.Background()))
	<-s.Done()
	assert.False(t, ran)
}

func TestSession_StopsOnContextCancel(t *testing.T) {
	s := NewSession(WithLogger(quietLogger()))
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("session did not stop")
	}
	<-s.Done()

	err := s.do(context.Background(), "late", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSession_SkipsCancelledJob(t *testing.T) {
	s := NewSession(WithLogger(quietLogger()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran bool
	var aborted error
	s.queue.Enqueue(job{
		name:  "cancelled",
		ctx:   ctx,
		run:   func(context.Context) { ran = true },
		abort: func(err error) { aborted = err },
	})
	s.Stop()

	require.NoError(t, s.Run(context.Background()))
	assert.False(t, ran)
	assert.ErrorIs(t, aborted, context.Canceled)
}

func TestSession_QueuedJobsRunAfterStop(t *testing.T) {
	s := NewSession(WithLogger(quietLogger()))

	var order []string
	for _, name := range []string{"first", "second"} {
		name := name
		s.queue.Enqueue(job{
			name:  name,
			ctx:   context.Background(),
			run:   func(context.Context) { order = append(order, name) },
			abort: func(error) {},
		})
	}
	s.Stop()

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []string{"first", "second"}, order)
}
