package sched

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nhle/vrs-ingest/internal/model"
)

// ErrRunActive is returned when a trigger arrives while a scan is already
// in progress. The caller may retry once the active run finishes.
var ErrRunActive = errors.New("an ingestion run is already active")

// Ingestor is the single-run operation the runner serializes.
type Ingestor interface {
	Run(ctx context.Context, includeSeen bool) ([]model.Feedback, error)
}

// Status is the process-owned record of scheduler state, updated only by
// the run routine under the runner's lock and exposed read-only.
type Status struct {
	Active          bool       `json:"active"`
	LastStarted     *time.Time `json:"last_started"`
	LastFinished    *time.Time `json:"last_finished"`
	LastInsertCount int        `json:"last_insert_count"`
	LastError       string     `json:"last_error,omitempty"`
	NextRun         *time.Time `json:"next_run,omitempty"`
}

// Runner serializes ingestion runs: the periodic timer and the manual
// trigger share one mutual-exclusion guard, so at most one session is
// ever open against the mailbox. Two concurrent sessions could
// double-process a message before either flags it seen.
type Runner struct {
	ingestor    Ingestor
	interval    time.Duration
	includeSeen bool
	logger      *slog.Logger

	mu      sync.Mutex
	active  bool
	status  Status
	stopCh  chan struct{}
	started bool
}

// New creates a Runner around the given ingestor. interval is the
// scheduled scan period; includeSeen is the flag passed to scheduled
// runs. logger may be nil.
func New(ingestor Ingestor, interval time.Duration, includeSeen bool, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		ingestor:    ingestor,
		interval:    interval,
		includeSeen: includeSeen,
		logger:      logger,
	}
}

// Start launches the periodic scan loop. It is a no-op if already
// started; after Stop, Start may be called again.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.stopCh = make(chan struct{})
	stopCh := r.stopCh
	next := time.Now().Add(r.interval)
	r.status.NextRun = &next
	r.mu.Unlock()

	go r.loop(ctx, stopCh)
}

// Stop halts the periodic loop. An in-flight run is not interrupted.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return
	}
	close(r.stopCh)
	r.started = false
	r.status.NextRun = nil
}

// TriggerNow runs a scan immediately and synchronously, returning the
// number of feedback rows inserted. If a run is already active it
// returns ErrRunActive instead of waiting.
func (r *Runner) TriggerNow(ctx context.Context, includeSeen bool) (int, error) {
	return r.runOnce(ctx, includeSeen)
}

// GetStatus returns a snapshot of the scheduler state.
func (r *Runner) GetStatus() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Runner) loop(ctx context.Context, stopCh <-chan struct{}) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.runOnce(ctx, r.includeSeen); err != nil && !errors.Is(err, ErrRunActive) {
				r.logger.Error("Scheduled ingestion run failed", "error", err)
			}
		}
	}
}

// runOnce executes a single serialized run and records its outcome in
// the status record.
func (r *Runner) runOnce(ctx context.Context, includeSeen bool) (int, error) {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return 0, ErrRunActive
	}
	r.active = true
	started := time.Now()
	r.status.Active = true
	r.status.LastStarted = &started
	r.mu.Unlock()

	inserted, err := r.ingestor.Run(ctx, includeSeen)

	r.mu.Lock()
	finished := time.Now()
	r.active = false
	r.status.Active = false
	r.status.LastFinished = &finished
	r.status.LastInsertCount = len(inserted)
	if err != nil {
		r.status.LastError = err.Error()
	} else {
		r.status.LastError = ""
	}
	if r.started {
		next := finished.Add(r.interval)
		r.status.NextRun = &next
	}
	r.mu.Unlock()

	if err != nil {
		return len(inserted), err
	}
	if len(inserted) > 0 {
		r.logger.Info("Ingestion run complete", "inserted", len(inserted))
	}
	return len(inserted), nil
}
