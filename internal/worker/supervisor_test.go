package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"a2a-support-desk/internal/metrics"
)

type ctxKey struct{}

func TestJobSuccess(t *testing.T) {
	s := New(context.Background(), zaptest.NewLogger(t), nil)

	job := s.Go(context.Background(), "ok", func(ctx context.Context) error { return nil })
	require.NoError(t, job.Wait(context.Background()))

	s.Wait()
	stats := s.Stats()
	assert.Equal(t, int64(1), stats.Submitted)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(0), stats.Running)
}

func TestJobError(t *testing.T) {
	m := metrics.NewCollector("test", nil)
	s := New(context.Background(), zaptest.NewLogger(t), m)

	boom := errors.New("boom")
	job := s.Go(context.Background(), "failing", func(ctx context.Context) error { return boom })

	assert.ErrorIs(t, job.Wait(context.Background()), boom)
	assert.ErrorIs(t, job.Err(), boom)
	assert.Equal(t, int64(1), s.Stats().Failed)

	expected := `
# HELP test_jobs_total Total number of supervised background jobs by outcome
# TYPE test_jobs_total counter
test_jobs_total{job="failing",outcome="error"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "test_jobs_total"))
}

func TestJobPanicIsRecovered(t *testing.T) {
	s := New(context.Background(), zaptest.NewLogger(t), nil)

	job := s.Go(context.Background(), "panicky", func(ctx context.Context) error {
		panic("handler exploded")
	})

	err := job.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler exploded")
	assert.Equal(t, int64(1), s.Stats().Panicked)
}

func TestJobKeepsValuesButNotCancellation(t *testing.T) {
	s := New(context.Background(), zaptest.NewLogger(t), nil)

	reqCtx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "req-1"))
	cancel()

	var got any
	var ctxErr error
	job := s.Go(reqCtx, "values", func(ctx context.Context) error {
		got = ctx.Value(ctxKey{})
		ctxErr = ctx.Err()
		return nil
	})
	require.NoError(t, job.Wait(context.Background()))

	assert.Equal(t, "req-1", got)
	assert.NoError(t, ctxErr)
}

func TestShutdownCancelsJobs(t *testing.T) {
	s := New(context.Background(), zaptest.NewLogger(t), nil)

	started := make(chan struct{})
	job := s.Go(context.Background(), "long", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.ErrorIs(t, job.Err(), context.Canceled)

	late := s.Go(context.Background(), "late", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, late.Wait(context.Background()), ErrSupervisorClosed)
}

func TestJobWaitHonoursContext(t *testing.T) {
	s := New(context.Background(), zaptest.NewLogger(t), nil)
	release := make(chan struct{})
	job := s.Go(context.Background(), "blocked", func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, job.Wait(ctx), context.DeadlineExceeded)
	assert.NoError(t, job.Err())

	close(release)
	s.Wait()
}
