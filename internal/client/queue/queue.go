// Package queue implements the bounded-concurrency transfer queue shared by
// the upload and download pipelines: FIFO task start, unordered completion,
// per-task retry by re-submission, pause/resume and a one-way abort.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dmitrijs2005/pixelvault/internal/client/models"
	"github.com/dmitrijs2005/pixelvault/internal/common"
	"github.com/dmitrijs2005/pixelvault/internal/logging"
)

// Status is the queue lifecycle state. Aborted is terminal: an aborted queue
// never resumes, callers create a new one.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
)

// Task is one transfer unit. Run executes the work under the queue's
// cancellable context; OnComplete receives the terminal outcome exactly once
// (success value, or the final error after retries are exhausted).
type Task struct {
	Kind       models.TaskKind
	Run        func(ctx context.Context) (*models.MediaRecord, error)
	OnComplete func(rec *models.MediaRecord, err error)

	retries int
}

// Config tunes one queue instance. Zero values fall back to defaults.
type Config struct {
	// Concurrency bounds how many tasks run simultaneously. Default 3.
	Concurrency int

	// MaxRetries is how many times a retryable failure is re-submitted
	// before the terminal error is delivered. Default 3.
	MaxRetries int

	// MinTaskDuration floors each execution so bursts of trivial
	// (already-synced) tasks do not flood progress consumers. Default 1s.
	MinTaskDuration time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.MinTaskDuration == 0 {
		c.MinTaskDuration = time.Second
	}
	return c
}

type Queue struct {
	cfg Config
	log logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	sem    *semaphore.Weighted

	mu       sync.Mutex
	status   Status
	pending  []*Task
	inFlight int
	waitCh   chan struct{}
}

// New builds a queue whose tasks run under a context derived from ctx.
// Aborting the queue (or cancelling ctx) signals every in-flight task.
func New(ctx context.Context, cfg Config, log logging.Logger) *Queue {
	cfg = cfg.withDefaults()
	qctx, cancel := context.WithCancel(ctx)
	return &Queue{
		cfg:    cfg,
		log:    log,
		ctx:    qctx,
		cancel: cancel,
		sem:    semaphore.NewWeighted(int64(cfg.Concurrency)),
		status: StatusIdle,
		waitCh: make(chan struct{}),
	}
}

// Status returns the current lifecycle state.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.status
}

// PendingCount returns queued plus in-flight tasks.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) + q.inFlight
}

// HasFinished reports that no tasks are pending or in flight.
func (q *Queue) HasFinished() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) == 0 && q.inFlight == 0
}

// AddTask appends t to the pending set and starts processing if the queue is
// idle or had completed. Does not block.
func (q *Queue) AddTask(t *Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.status == StatusAborted {
		return
	}
	q.pending = append(q.pending, t)
	if q.status == StatusIdle || q.status == StatusCompleted {
		q.setStatus(StatusRunning)
	}
	q.dispatchLocked()
}

// Resume continues processing after a pause.
func (q *Queue) Resume() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.status == StatusAborted {
		return
	}
	q.setStatus(StatusRunning)
	q.dispatchLocked()
	q.maybeCompleteLocked()
}

// Pause stops starting new tasks; in-flight tasks run to completion.
func (q *Queue) Pause() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.status == StatusRunning {
		q.setStatus(StatusPaused)
	}
}

// Abort discards pending tasks and cancels in-flight ones cooperatively.
// One-way: the queue cannot be resumed afterwards.
func (q *Queue) Abort() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.status == StatusAborted {
		return
	}
	q.setStatus(StatusAborted)
	q.pending = nil
	q.cancel()
	q.maybeCompleteLocked()
}

// Wait blocks until the queue has finished (completed or fully aborted) or
// ctx is cancelled.
func (q *Queue) Wait(ctx context.Context) error {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 && q.inFlight == 0 &&
			(q.status == StatusIdle || q.status == StatusCompleted || q.status == StatusAborted) {
			q.mu.Unlock()
			return nil
		}
		ch := q.waitCh
		q.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (q *Queue) setStatus(s Status) {
	if q.status == s {
		return
	}
	if q.log != nil {
		q.log.Info(q.ctx, "queue status change", "from", q.status, "to", s)
	}
	q.status = s
}

// dispatchLocked starts pending tasks FIFO while permits are available.
// Callers hold q.mu.
func (q *Queue) dispatchLocked() {
	for q.status == StatusRunning && len(q.pending) > 0 && q.sem.TryAcquire(1) {
		t := q.pending[0]
		q.pending = q.pending[1:]
		q.inFlight++
		go q.execute(t)
	}
}

// maybeCompleteLocked moves the queue to Completed and wakes waiters once
// nothing is pending or in flight. Callers hold q.mu.
func (q *Queue) maybeCompleteLocked() {
	if len(q.pending) > 0 || q.inFlight > 0 {
		return
	}
	if q.status == StatusRunning {
		q.setStatus(StatusCompleted)
	}
	if q.status == StatusCompleted || q.status == StatusAborted || q.status == StatusIdle {
		close(q.waitCh)
		q.waitCh = make(chan struct{})
	}
}

func (q *Queue) execute(t *Task) {
	start := time.Now()
	rec, err := t.Run(q.ctx)

	// floor the execution time so progress consumers are not overwhelmed
	// by a flood of near-instant completions
	if elapsed := time.Since(start); elapsed < q.cfg.MinTaskDuration {
		timer := time.NewTimer(q.cfg.MinTaskDuration - elapsed)
		select {
		case <-timer.C:
		case <-q.ctx.Done():
			timer.Stop()
		}
	}

	q.sem.Release(1)

	q.mu.Lock()
	q.inFlight--

	terminal := false
	switch {
	case err == nil:
		terminal = true
	case errors.Is(err, common.ErrAborted), errors.Is(err, context.Canceled), q.status == StatusAborted:
		// an aborted task ends silently, without consuming a retry attempt
	case common.IsRetryable(err) && t.retries < q.cfg.MaxRetries:
		t.retries++
		if q.log != nil {
			q.log.Warn(q.ctx, "task failed, retrying", "kind", t.Kind, "attempt", t.retries, "error", err)
		}
		q.pending = append(q.pending, t)
	default:
		terminal = true
	}

	q.dispatchLocked()
	q.maybeCompleteLocked()
	q.mu.Unlock()

	if terminal && t.OnComplete != nil {
		t.OnComplete(rec, err)
	}
}
