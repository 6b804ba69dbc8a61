package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/assetaudit/internal/audit"
)

// Recorder is the write side of the task state machine the producers feed.
// Implemented by tasks.Service.
type Recorder interface {
	RecordBulkScanResult(ctx context.Context, taskID string, result audit.ScanResult, missing []audit.MissingAsset) (audit.AuditTask, error)
	RecordScanEvent(ctx context.Context, taskID string, scanned audit.ScannedAsset) (audit.AuditTask, error)
}

// ErrScanRunning is returned when a bulk scan is already running for a task.
var ErrScanRunning = errors.New("bulk scan already running for task")

// BulkRunner starts bulk scans and owns their lifetime. At most one run per
// task is active; Close cancels every active run.
//
// Thread-safety: all methods are safe for concurrent use.
type BulkRunner struct {
	provider Provider
	recorder Recorder
	logger   *slog.Logger

	mu     sync.Mutex
	active map[string]*BulkRun
	wg     sync.WaitGroup
}

// NewBulkRunner creates a runner. A nil logger means slog.Default().
func NewBulkRunner(p Provider, r Recorder, logger *slog.Logger) *BulkRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &BulkRunner{
		provider: p,
		recorder: r,
		logger:   logger,
		active:   make(map[string]*BulkRun),
	}
}

// BulkRun is the handle of one running bulk scan.
type BulkRun struct {
	TaskID string

	cancel   context.CancelFunc
	done     chan struct{}
	progress chan int

	task audit.AuditTask
	err  error
}

// Progress delivers percentages as the scan advances. Intermediate values
// may be dropped for slow readers; the channel is closed when the run ends.
func (r *BulkRun) Progress() <-chan int {
	return r.progress
}

// Cancel stops the run. Safe to call more than once and after completion.
func (r *BulkRun) Cancel() {
	r.cancel()
}

// Done is closed when the run has ended and its timer is released.
func (r *BulkRun) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run ends and returns the updated task.
func (r *BulkRun) Wait() (audit.AuditTask, error) {
	<-r.done
	return r.task, r.err
}

// Start begins a bulk scan for taskID over the expected codes. The scan's
// result is recorded on the task when the provider finishes.
func (b *BulkRunner) Start(ctx context.Context, taskID string, expected []string) (*BulkRun, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.active[taskID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrScanRunning, taskID)
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &BulkRun{
		TaskID:   taskID,
		cancel:   cancel,
		done:     make(chan struct{}),
		progress: make(chan int, 1),
	}
	b.active[taskID] = run
	b.wg.Add(1)

	go b.execute(runCtx, run, expected)
	return run, nil
}

func (b *BulkRunner) execute(ctx context.Context, run *BulkRun, expected []string) {
	defer b.wg.Done()
	defer func() {
		run.cancel()
		close(run.progress)
		b.mu.Lock()
		delete(b.active, run.TaskID)
		b.mu.Unlock()
		close(run.done)
	}()

	b.logger.Info("bulk scan started", "task_id", run.TaskID)
	result, missing, err := b.provider.RunBulkScan(ctx, expected, func(pct int) {
		// Keep only the latest value for slow readers.
		select {
		case run.progress <- pct:
		default:
			select {
			case <-run.progress:
			default:
			}
			select {
			case run.progress <- pct:
			default:
			}
		}
	})
	if err != nil {
		run.err = fmt.Errorf("bulk scan %s: %w", run.TaskID, err)
		b.logger.Warn("bulk scan stopped", "task_id", run.TaskID, "error", err)
		return
	}

	task, err := b.recorder.RecordBulkScanResult(ctx, run.TaskID, result, missing)
	if err != nil {
		run.err = fmt.Errorf("bulk scan %s: %w", run.TaskID, err)
		b.logger.Warn("bulk scan result not recorded", "task_id", run.TaskID, "error", err)
		return
	}
	run.task = task
	b.logger.Info("bulk scan completed", "task_id", run.TaskID, "missing", len(missing), "status", task.Status)
}

// Running reports whether a bulk scan is active for taskID.
func (b *BulkRunner) Running(taskID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.active[taskID]
	return ok
}

// Cancel stops the active run for taskID, if any.
func (b *BulkRunner) Cancel(taskID string) {
	b.mu.Lock()
	run, ok := b.active[taskID]
	b.mu.Unlock()
	if ok {
		run.Cancel()
	}
}

// Close cancels all active runs and waits for their timers to be released.
func (b *BulkRunner) Close() {
	b.mu.Lock()
	for _, run := range b.active {
		run.Cancel()
	}
	b.mu.Unlock()
	b.wg.Wait()
}
