package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultDebounceDelay is the quiet period used when none is configured
const DefaultDebounceDelay = 500 * time.Millisecond

// TaskFunc is the work a debounced task runs. ctx is cancelled when the
// task is cancelled through Cancel, CancelAll or Stop.
type TaskFunc func(ctx context.Context)

type debouncedTask struct {
	key    string
	timer  *time.Timer
	ctx    context.Context
	cancel context.CancelFunc
}

// Debouncer runs keyed tasks after a quiet period. Scheduling a key again
// before its timer fires replaces the pending task, so a burst collapses
// into one run of the last scheduled function. Tasks that already started
// keep running until they finish or are cancelled.
type Debouncer struct {
	delay  time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]*debouncedTask
	running map[*debouncedTask]struct{}
	stopped bool
	wg      sync.WaitGroup
}

// NewDebouncer creates a debouncer. A non-positive delay uses DefaultDebounceDelay.
func NewDebouncer(delay time.Duration, logger *zap.Logger) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Debouncer{
		delay:   delay,
		logger:  logger,
		pending: make(map[string]*debouncedTask),
		running: make(map[*debouncedTask]struct{}),
	}
}

// Delay returns the quiet period
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Schedule (re)arms key to run fn once the quiet period elapses
func (d *Debouncer) Schedule(key string, fn TaskFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return ErrSchedulerNotRunning
	}

	if prev, ok := d.pending[key]; ok {
		d.dropPendingLocked(prev)
	}

	ctx, cancel := context.WithCancel(context.Background())
	task := &debouncedTask{key: key, ctx: ctx, cancel: cancel}
	d.pending[key] = task
	d.wg.Add(1)
	task.timer = time.AfterFunc(d.delay, func() { d.fire(task, fn) })
	return nil
}

// Cancel drops the pending task for key and cancels any running task
// started for key
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if task, ok := d.pending[key]; ok {
		d.dropPendingLocked(task)
	}
	for task := range d.running {
		if task.key == key {
			task.cancel()
		}
	}
}

// CancelAll drops every pending task and cancels every running one
func (d *Debouncer) CancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelAllLocked()
}

// Pending returns the number of tasks waiting for their quiet period
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Wait blocks until every scheduled task has run or been dropped
func (d *Debouncer) Wait() {
	d.wg.Wait()
}

// Stop cancels all work, rejects further scheduling and waits for running
// tasks to return
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.cancelAllLocked()
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Debug("debouncer stopped")
}

func (d *Debouncer) cancelAllLocked() {
	for _, task := range d.pending {
		d.dropPendingLocked(task)
	}
	for task := range d.running {
		task.cancel()
	}
}

// dropPendingLocked must be called with d.mu held
func (d *Debouncer) dropPendingLocked(task *debouncedTask) {
	delete(d.pending, task.key)
	task.cancel()
	if task.timer.Stop() {
		d.wg.Done()
	}
	// Otherwise fire is already on its way and sees the cancelled context.
}

func (d *Debouncer) fire(task *debouncedTask, fn TaskFunc) {
	defer d.wg.Done()

	d.mu.Lock()
	if d.pending[task.key] == task {
		delete(d.pending, task.key)
	}
	if task.ctx.Err() != nil {
		d.mu.Unlock()
		return
	}
	d.running[task] = struct{}{}
	d.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("debounced task panicked",
				zap.String("key", task.key),
				zap.Any("panic", r),
			)
		}
		d.mu.Lock()
		delete(d.running, task)
		d.mu.Unlock()
		task.cancel()
	}()

	fn(task.ctx)
}
