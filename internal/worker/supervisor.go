// Package worker runs background jobs under supervision: every job is
// tracked, panics are recovered, and failures are logged and counted.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"a2a-support-desk/internal/metrics"
)

var ErrSupervisorClosed = errors.New("supervisor is closed")

// Func is a unit of background work.
type Func func(ctx context.Context) error

// Job is a handle on a submitted unit of work.
type Job struct {
	name string
	done chan struct{}
	err  error
}

// Name returns the job name.
func (j *Job) Name() string { return j.name }

// Done is closed when the job has finished.
func (j *Job) Done() <-chan struct{} { return j.done }

// Err returns the job result. It is only meaningful after Done is closed.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Wait blocks until the job finishes or ctx is done.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats is a snapshot of supervisor counters.
type Stats struct {
	Submitted int64 `json:"submitted"`
	Running   int64 `json:"running"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Panicked  int64 `json:"panicked"`
}

// Supervisor owns the lifetime of background jobs.
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool

	submitted atomic.Int64
	running   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	panicked  atomic.Int64

	logger  *zap.Logger
	metrics *metrics.Collector
}

// New creates a supervisor. Jobs receive a context derived from parent
// that is cancelled on Shutdown.
func New(parent context.Context, logger *zap.Logger, m *metrics.Collector) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Supervisor{
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.With(zap.String("component", "supervisor")),
		metrics: m,
	}
}

// Go starts fn in its own goroutine. Values from ctx (such as the request
// id) are kept, but its cancellation is not: jobs outlive the request that
// spawned them and stop only when the supervisor shuts down.
func (s *Supervisor) Go(ctx context.Context, name string, fn Func) *Job {
	job := &Job{name: name, done: make(chan struct{})}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		job.err = ErrSupervisorClosed
		close(job.done)
		return job
	}
	s.submitted.Add(1)
	s.wg.Add(1)
	s.mu.RUnlock()

	jobCtx, cancel := mergeValues(s.ctx, ctx)
	go func() {
		defer s.wg.Done()
		defer cancel()
		defer close(job.done)

		s.running.Add(1)
		job.err = s.run(jobCtx, name, fn)
		s.running.Add(-1)
	}()

	return job
}

func (s *Supervisor) run(ctx context.Context, name string, fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.panicked.Add(1)
			s.failed.Add(1)
			err = fmt.Errorf("job %s panicked: %v", name, r)
			s.logger.Error("job panicked",
				zap.String("job", name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			s.metrics.RecordJob(name, "panic")
		}
	}()

	err = fn(ctx)
	if err != nil {
		s.failed.Add(1)
		s.logger.Warn("job failed", zap.String("job", name), zap.Error(err))
		s.metrics.RecordJob(name, "error")
		return err
	}

	s.completed.Add(1)
	s.metrics.RecordJob(name, "ok")
	return nil
}

// Stats returns current counters.
func (s *Supervisor) Stats() Stats {
	return Stats{
		Submitted: s.submitted.Load(),
		Running:   s.running.Load(),
		Completed: s.completed.Load(),
		Failed:    s.failed.Load(),
		Panicked:  s.panicked.Load(),
	}
}

// Wait blocks until every submitted job has finished.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

// Shutdown stops accepting jobs, cancels running ones and waits for them
// until ctx expires.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for jobs: %w", ctx.Err())
	}
}

// valuesContext takes its values from one context and its deadline and
// cancellation from another.
type valuesContext struct {
	context.Context
	values context.Context
}

func (c valuesContext) Value(key any) any {
	if v := c.values.Value(key); v != nil {
		return v
	}
	return c.Context.Value(key)
}

func mergeValues(lifetime, values context.Context) (context.Context, context.CancelFunc) {
	if values == nil {
		return context.WithCancel(lifetime)
	}
	return context.WithCancel(valuesContext{Context: lifetime, values: values})
}
