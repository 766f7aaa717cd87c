package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/kolpmikel/FinanceApp/internal/model"
)

// Session is the single-writer job loop shared by the sync engines.
//
// Thread-safety model:
//   - engine methods: safe from any goroutine, they submit jobs
//   - Run(): must be called from exactly one goroutine
//   - Stop(): safe from any goroutine
type Session struct {
	queue      *jobQueue
	clock      SeqClock
	now        func() time.Time
	logger     *slog.Logger
	requestIDs RequestIDGenerator
	done       chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithClock sets the clock that orders fetch requests.
func WithClock(clock SeqClock) Option {
	return func(s *Session) { s.clock = clock }
}

// WithNow sets the wall clock used to stamp queued operations.
func WithNow(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithRequestIDs sets the correlation id generator. Default: UUIDv7Generator.
func WithRequestIDs(gen RequestIDGenerator) Option {
	return func(s *Session) { s.requestIDs = gen }
}

// NewSession creates a session. Call Run to start processing jobs.
func NewSession(opts ...Option) *Session {
	s := &Session{
		queue:      newJobQueue(),
		clock:      NewClock(),
		now:        time.Now,
		logger:     slog.Default(),
		requestIDs: UUIDv7Generator{},
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes jobs until ctx is cancelled or Stop is called.
// Jobs still queued when Run returns fail with ErrSessionClosed.
//
// Must be called from exactly ONE goroutine.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info("sync session starting")
	defer func() {
		for _, j := range s.queue.Drain() {
			j.abort(ErrSessionClosed)
		}
		close(s.done)
	}()

	for {
		if j, ok := s.queue.TryDequeue(); ok {
			s.process(j)
			continue
		}

		select {
		case <-ctx.Done():
			s.logger.Info("sync session stopping: context cancelled")
			s.queue.Close()
			return ctx.Err()

		case <-s.queue.Wait():
			// the signal channel is closed by Close; an empty closed queue ends the loop
			if s.queue.Len() == 0 && s.queue.Closed() {
				s.logger.Info("sync session stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the session. Queued jobs still run; new submissions fail
// with ErrSessionClosed.
func (s *Session) Stop() {
	s.queue.Close()
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) process(j job) {
	if err := j.ctx.Err(); err != nil {
		j.abort(err)
		return
	}
	requestID := s.requestIDs.Generate()
	s.logger.Debug("job start", "job", j.name, "request_id", requestID)
	start := time.Now()
	j.run(model.WithRequestID(j.ctx, requestID))
	s.logger.Debug("job done", "job", j.name, "request_id", requestID, "duration", time.Since(start))
}

// do submits fn as a job and waits for it to finish.
func (s *Session) do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	reply := make(chan error, 1)
	ok := s.queue.Enqueue(job{
		name:  name,
		ctx:   ctx,
		run:   func(ctx context.Context) { reply <- fn(ctx) },
		abort: func(err error) { reply <- err },
	})
	if !ok {
		return ErrSessionClosed
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		select {
		case err := <-reply:
			return err
		default:
			return ErrSessionClosed
		}
	}
}
