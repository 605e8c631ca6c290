package sched_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/vrs-ingest/internal/model"
	"github.com/nhle/vrs-ingest/internal/sched"
)

// blockingIngestor blocks inside Run until released, to probe the
// run-level mutual-exclusion guard.
type blockingIngestor struct {
	started chan struct{}
	release chan struct{}
	result  []model.Feedback
	err     error

	mu   sync.Mutex
	runs int
}

func newBlockingIngestor() *blockingIngestor {
	return &blockingIngestor{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (b *blockingIngestor) Run(ctx context.Context, includeSeen bool) ([]model.Feedback, error) {
	b.mu.Lock()
	b.runs++
	b.mu.Unlock()

	select {
	case b.started <- struct{}{}:
	default:
	}
	<-b.release
	return b.result, b.err
}

func (b *blockingIngestor) runCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.runs
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTriggerNowReturnsInsertCount(t *testing.T) {
	ing := newBlockingIngestor()
	ing.result = []model.Feedback{{ReportID: "a"}, {ReportID: "b"}}
	close(ing.release)

	r := sched.New(ing, time.Hour, false, testLogger())
	n, err := r.TriggerNow(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	status := r.GetStatus()
	assert.False(t, status.Active)
	assert.Equal(t, 2, status.LastInsertCount)
	require.NotNil(t, status.LastStarted)
	require.NotNil(t, status.LastFinished)
	assert.False(t, status.LastFinished.Before(*status.LastStarted))
}

func TestConcurrentTriggerRejected(t *testing.T) {
	ing := newBlockingIngestor()
	r := sched.New(ing, time.Hour, false, testLogger())

	done := make(chan error, 1)
	go func() {
		_, err := r.TriggerNow(context.Background(), false)
		done <- err
	}()

	// Wait for the first run to be in flight.
	select {
	case <-ing.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first run never started")
	}

	assert.True(t, r.GetStatus().Active)

	_, err := r.TriggerNow(context.Background(), false)
	assert.ErrorIs(t, err, sched.ErrRunActive)

	close(ing.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, ing.runCount())
}

func TestRunErrorRecordedInStatus(t *testing.T) {
	ing := newBlockingIngestor()
	ing.err = assert.AnError
	close(ing.release)

	r := sched.New(ing, time.Hour, false, testLogger())
	_, err := r.TriggerNow(context.Background(), false)
	require.Error(t, err)

	status := r.GetStatus()
	assert.False(t, status.Active)
	assert.Contains(t, status.LastError, assert.AnError.Error())
}

func TestScheduledLoopRuns(t *testing.T) {
	ing := newBlockingIngestor()
	close(ing.release)

	r := sched.New(ing, 20*time.Millisecond, false, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r.Start(ctx)
	defer r.Stop()

	require.Eventually(t, func() bool {
		return ing.runCount() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	status := r.GetStatus()
	require.NotNil(t, status.NextRun)
}

func TestRestartAfterStopSchedulesAgain(t *testing.T) {
	ing := newBlockingIngestor()
	close(ing.release)

	r := sched.New(ing, 20*time.Millisecond, false, testLogger())
	ctx := context.Background()

	r.Start(ctx)
	require.Eventually(t, func() bool {
		return ing.runCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	r.Stop()

	stopped := ing.runCount()
	r.Start(ctx)
	defer r.Stop()

	require.Eventually(t, func() bool {
		return ing.runCount() > stopped
	}, 2*time.Second, 10*time.Millisecond)
	require.NotNil(t, r.GetStatus().NextRun)
}

func TestStopClearsNextRun(t *testing.T) {
	ing := newBlockingIngestor()
	close(ing.release)

	r := sched.New(ing, time.Hour, false, testLogger())
	r.Start(context.Background())
	require.NotNil(t, r.GetStatus().NextRun)

	r.Stop()
	assert.Nil(t, r.GetStatus().NextRun)
}
