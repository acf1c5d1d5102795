package api

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"portscanner/scanner"
)

const (
	queuePollTimeout = 5 * time.Second
	queueErrorDelay  = time.Second
)

// ScanFunc executes one engine session.
type ScanFunc func(ctx context.Context, req scanner.ScanRequest, opts ...scanner.Option) (*scanner.Report, error)

// RunSession is the production ScanFunc.
func RunSession(ctx context.Context, req scanner.ScanRequest, opts ...scanner.Option) (*scanner.Report, error) {
	return scanner.NewSession(req, opts...).Execute(ctx)
}

// EngineDefaults apply to tasks that leave the corresponding field unset.
type EngineDefaults struct {
	Concurrency  int
	ProbeTimeout time.Duration
	Deadline     time.Duration
	ProbeRate    float64
	// MaxInflight caps probe units across all running sessions.
	MaxInflight int
}

// Runner turns queued tasks into engine sessions.
type Runner struct {
	scan     ScanFunc
	defaults EngineDefaults
	inflight *semaphore.Weighted
	budget   int64
	logger   *slog.Logger

	synOnce sync.Once
	synErr  error
	synInit func() error
}

// NewRunner builds a runner; a nil scan uses RunSession.
func NewRunner(scan ScanFunc, defaults EngineDefaults, logger *slog.Logger) *Runner {
	if scan == nil {
		scan = RunSession
	}
	if defaults.Concurrency < 1 {
		defaults.Concurrency = scanner.DefaultConcurrency
	}
	if defaults.ProbeTimeout <= 0 {
		defaults.ProbeTimeout = scanner.DefaultProbeTimeout
	}
	budget := int64(max(defaults.MaxInflight, defaults.Concurrency))
	return &Runner{
		scan:     scan,
		defaults: defaults,
		inflight: semaphore.NewWeighted(budget),
		budget:   budget,
		logger:   logger,
		synInit:  scanner.InitSynScan,
	}
}

// Run executes task and leaves it in a terminal state.
func (r *Runner) Run(ctx context.Context, task *ScanTask) {
	logger := r.logger.With("task_id", task.ID)

	req, err := scanner.NewRequest(task.Address, int(task.PortStart), int(task.PortEnd))
	if err == nil && task.SrcAddress != "" {
		req = req.WithSource(task.SrcAddress)
		err = req.Validate()
	}
	if err != nil {
		finishTask(task, nil, err)
		return
	}

	mode, err := scanner.ParseMode(task.Mode)
	if err != nil {
		finishTask(task, nil, err)
		return
	}
	if mode == scanner.ModeSYN {
		r.synOnce.Do(func() { r.synErr = r.synInit() })
		if r.synErr != nil {
			finishTask(task, nil, r.synErr)
			return
		}
	}

	units := int64(r.defaults.Concurrency)
	if task.Concurrency > 0 {
		units = int64(task.Concurrency)
	}
	units = min(units, int64(req.Count()), r.budget)
	if err := r.inflight.Acquire(ctx, units); err != nil {
		finishTask(task, nil, err)
		return
	}
	defer r.inflight.Release(units)

	opts := []scanner.Option{
		scanner.WithMode(mode),
		scanner.WithConcurrency(int(units)),
		scanner.WithProbeTimeout(r.defaults.ProbeTimeout),
		scanner.WithDeadline(r.defaults.Deadline),
		scanner.WithRate(r.defaults.ProbeRate),
		scanner.WithLogger(logger),
	}
	if task.TimeoutMS > 0 {
		opts = append(opts, scanner.WithProbeTimeout(time.Duration(task.TimeoutMS)*time.Millisecond))
	}
	if task.DeadlineMS > 0 {
		opts = append(opts, scanner.WithDeadline(time.Duration(task.DeadlineMS)*time.Millisecond))
	}

	report, err := r.scan(ctx, req, opts...)
	finishTask(task, report, err)
}

// finishTask records the outcome of a session on task. A report that
// comes back with an error still contributes its results.
func finishTask(task *ScanTask, report *scanner.Report, err error) {
	now := time.Now().UTC()
	task.CompletedAt = &now
	task.Results = nil
	task.Incomplete = false
	task.Unresolved = nil
	task.Error = ""
	task.ErrorKind = ""

	if report != nil {
		task.Results = report.Results()
		task.Incomplete = report.Incomplete()
		task.Unresolved = report.Unresolved()
		task.ElapsedMS = report.Elapsed().Milliseconds()
	}

	var partial *scanner.PartialError
	switch {
	case err == nil && task.Incomplete:
		task.Status = StatusPartial
	case err == nil:
		task.Status = StatusCompleted
	case errors.As(err, &partial) && report != nil:
		task.Status = StatusPartial
		task.Error = err.Error()
		task.ErrorKind = errorKind(err)
	default:
		task.Status = StatusFailed
		task.Error = err.Error()
		task.ErrorKind = errorKind(err)
	}
}

// StartWorkers launches background goroutines that process scan tasks.
// The returned channel is closed once every worker has exited after ctx
// is done.
func StartWorkers(ctx context.Context, store TaskStore, runner *Runner, numWorkers int, logger *slog.Logger) <-chan struct{} {
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			workerLoop(ctx, store, runner, logger.With("worker", id))
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

func workerLoop(ctx context.Context, store TaskStore, runner *Runner, logger *slog.Logger) {
	for ctx.Err() == nil {
		taskID, err := store.PopFromQueue(ctx, queuePollTimeout)
		if errors.Is(err, ErrQueueEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("worker failed to pop task", "error", err)
			sleep(ctx, queueErrorDelay)
			continue
		}
		processTask(ctx, store, runner, taskID, logger)
	}
}

func processTask(ctx context.Context, store TaskStore, runner *Runner, taskID string, logger *slog.Logger) {
	task, err := store.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			logger.Warn("worker task disappeared", "task_id", taskID)
			return
		}
		logger.Error("worker failed to load task", "task_id", taskID, "error", err)
		return
	}
	if task.Terminal() {
		logger.Warn("worker skipped finished task", "task_id", taskID, "status", task.Status)
		return
	}

	now := time.Now().UTC()
	task.Status = StatusRunning
	task.StartedAt = &now
	if err := store.UpdateTask(ctx, task); err != nil {
		logger.Error("worker failed to mark task running", "task_id", taskID, "error", err)
		return
	}

	runner.Run(ctx, task)

	// The outcome is persisted even when shutdown canceled the scan.
	if err := store.UpdateTask(context.WithoutCancel(ctx), task); err != nil {
		logger.Error("worker failed to update task", "task_id", task.ID, "error", err)
		return
	}

	level := slog.LevelInfo
	if task.Status == StatusFailed {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "task finished",
		"task_id", task.ID,
		"status", task.Status,
		"error_kind", task.ErrorKind,
		"elapsed_ms", task.ElapsedMS,
	)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
