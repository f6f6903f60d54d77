package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNotExecuted marks results of tasks that were never dispatched because
// the context ended first
var ErrNotExecuted = errors.New("task not executed")

// Task represents a unit of work to be executed by the worker pool
type Task struct {
	// Key identifies the task; it must be unique within a pool
	Key string

	// Execute is the function to run for this task
	// Returns the result data and any error encountered
	Execute func(ctx context.Context) (any, error)
}

// Result represents the outcome of executing a task
type Result struct {
	// Key is the key of the task this result belongs to
	Key string

	// Data contains the successful result data (nil if error occurred)
	Data any

	// Error contains any error that occurred during execution (nil if successful)
	Error error

	// Duration is how long the task took to execute
	Duration time.Duration
}

// Pool manages a pool of workers that execute tasks concurrently
// It provides bounded concurrency, cancellation and progress reporting
type Pool struct {
	// workers is the number of concurrent workers
	workers int

	// tasks is the queue of tasks to execute
	tasks []Task

	// keys rejects duplicate submissions
	keys map[string]struct{}

	// mu protects the tasks slice
	mu sync.Mutex

	// logger for structured logging
	logger *slog.Logger

	// running indicates if the pool is currently executing
	running atomic.Bool
}

// NewPool creates a new worker pool with the specified number of workers
// workers must be > 0, otherwise it defaults to 1
func NewPool(workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Pool{
		workers: workers,
		tasks:   make([]Task, 0),
		keys:    make(map[string]struct{}),
		logger:  logger,
	}
}

// Submit adds a task to the pool's queue
// Returns an error if the pool is already running or the task is invalid
func (p *Pool) Submit(task Task) error {
	if p.running.Load() {
		return fmt.Errorf("pool is running, cannot submit new tasks")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if task.Key == "" {
		return fmt.Errorf("task must have a key")
	}

	if task.Execute == nil {
		return fmt.Errorf("task must have an execute function")
	}

	if _, dup := p.keys[task.Key]; dup {
		return fmt.Errorf("task %q already submitted", task.Key)
	}

	p.keys[task.Key] = struct{}{}
	p.tasks = append(p.tasks, task)
	p.logger.Debug("task submitted", "key", task.Key, "total_tasks", len(p.tasks))

	return nil
}

// Execute runs all submitted tasks using the worker pool pattern
// Returns one result per task, in submission order
func (p *Pool) Execute(ctx context.Context) []Result {
	return p.ExecuteWithProgress(ctx, nil)
}

// ExecuteWithProgress runs all tasks with progress reporting
// The progressFn callback is called after each task completes with (completed, total) counts.
// It runs on worker goroutines and must be safe for concurrent use.
//
// Each task's result is written to its own slot of the returned slice by the
// worker that ran it, so collection needs no lock and no slot is written twice.
// When ctx ends, dispatch stops; tasks never dispatched get an ErrNotExecuted
// result while completed results are kept.
func (p *Pool) ExecuteWithProgress(ctx context.Context, progressFn func(completed, total int)) []Result {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Error("pool is already running")
		return []Result{}
	}
	defer p.running.Store(false)

	p.mu.Lock()
	taskCount := len(p.tasks)
	if taskCount == 0 {
		p.mu.Unlock()
		p.logger.Debug("no tasks to execute")
		return []Result{}
	}

	// Create a copy of tasks to avoid holding the lock during execution
	tasksCopy := make([]Task, len(p.tasks))
	copy(tasksCopy, p.tasks)
	p.mu.Unlock()

	p.logger.Debug("starting task execution",
		"workers", p.workers,
		"tasks", taskCount)

	startTime := time.Now()

	// Unbuffered: a task is handed out only when a worker is free to run it
	taskChan := make(chan taskWithIndex)
	results := make([]Result, taskCount)

	// Completed counter for progress reporting
	var completed atomic.Int32

	// Start worker goroutines
	var wg sync.WaitGroup
	workerCount := min(p.workers, taskCount)

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go p.worker(ctx, i, taskChan, results, &wg, &completed, taskCount, progressFn)
	}

dispatch:
	for i, task := range tasksCopy {
		select {
		case taskChan <- taskWithIndex{task: task, index: i}:
		case <-ctx.Done():
			p.logger.Warn("context cancelled while dispatching tasks",
				"dispatched", i,
				"remaining", taskCount-i)
			break dispatch
		}
	}
	close(taskChan)
	wg.Wait()

	// Slots nobody wrote belong to tasks that were never dispatched
	for i := range results {
		if results[i].Key == "" {
			cause := ctx.Err()
			if cause == nil {
				cause = context.Canceled
			}
			results[i] = Result{
				Key:   tasksCopy[i].Key,
				Error: fmt.Errorf("%w: %w", ErrNotExecuted, cause),
			}
		}
	}

	summary := Summarize(results)
	p.logger.Debug("task execution completed",
		"total", summary.Total,
		"successful", summary.Successful,
		"failed", summary.Failed,
		"duration", time.Since(startTime))

	return results
}

// worker runs tasks until the task channel is closed
func (p *Pool) worker(
	ctx context.Context,
	workerID int,
	taskChan <-chan taskWithIndex,
	results []Result,
	wg *sync.WaitGroup,
	completed *atomic.Int32,
	total int,
	progressFn func(completed, total int),
) {
	defer wg.Done()

	p.logger.Debug("worker started", "worker_id", workerID)

	for taskItem := range taskChan {
		result := p.executeTask(ctx, taskItem.task)
		results[taskItem.index] = result

		completedCount := completed.Add(1)
		p.logger.Debug("task completed",
			"worker_id", workerID,
			"key", taskItem.task.Key,
			"success", result.Error == nil,
			"duration", result.Duration,
			"progress", fmt.Sprintf("%d/%d", completedCount, total))

		if progressFn != nil {
			progressFn(int(completedCount), total)
		}
	}

	p.logger.Debug("worker finished (no more tasks)", "worker_id", workerID)
}

// executeTask executes a single task and returns the result
func (p *Pool) executeTask(ctx context.Context, task Task) (result Result) {
	startTime := time.Now()

	// Check context before execution
	if err := ctx.Err(); err != nil {
		return Result{
			Key:   task.Key,
			Error: fmt.Errorf("%w: %w", ErrNotExecuted, err),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			result = Result{
				Key:      task.Key,
				Error:    fmt.Errorf("task panicked: %v", r),
				Duration: time.Since(startTime),
			}
			p.logger.Error("task panicked", "key", task.Key, "panic", r)
		}
	}()

	data, err := task.Execute(ctx)
	duration := time.Since(startTime)

	if err != nil {
		p.logger.Debug("task failed",
			"key", task.Key,
			"error", err,
			"duration", duration)
	}

	return Result{
		Key:      task.Key,
		Data:     data,
		Error:    err,
		Duration: duration,
	}
}

// IsRunning returns true if the pool is currently executing tasks
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}

// TaskCount returns the number of tasks currently queued
func (p *Pool) TaskCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// WorkerCount returns the number of workers in the pool
func (p *Pool) WorkerCount() int {
	return p.workers
}

// taskWithIndex pairs a task with its original index for result ordering
type taskWithIndex struct {
	task  Task
	index int
}
