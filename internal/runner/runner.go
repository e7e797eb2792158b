package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner manages and executes scheduled background tasks
type Runner struct {
	cron     *cron.Cron
	registry *TaskRegistry
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewRunner creates a new task runner. Schedules use six fields, seconds
// first.
func NewRunner(registry *TaskRegistry, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cron:     cron.New(cron.WithSeconds()),
		registry: registry,
		logger:   logger,
	}
}

// Start schedules every registered task and returns once the scheduler is
// running. Tasks stop when ctx ends or Stop is called.
func (r *Runner) Start(ctx context.Context) error {
	for name, task := range r.registry.All() {
		r.logger.Info("registering task", zap.String("task", name), zap.String("schedule", task.Schedule()))

		if _, err := r.cron.AddFunc(task.Schedule(), func() {
			r.executeTask(ctx, task)
		}); err != nil {
			return fmt.Errorf("failed to schedule task %s: %w", name, err)
		}
	}

	r.cron.Start()
	r.logger.Info("task runner started", zap.Int("tasks", len(r.registry.All())))
	return nil
}

// executeTask runs a single task with timeout and error handling
func (r *Runner) executeTask(ctx context.Context, task Task) {
	r.wg.Add(1)
	defer r.wg.Done()

	if ctx.Err() != nil {
		return
	}
	taskCtx, cancel := context.WithTimeout(ctx, task.Timeout())
	defer cancel()

	start := time.Now()
	err := task.Run(taskCtx)
	duration := time.Since(start)

	if err != nil {
		r.logger.Warn("task failed", zap.String("task", task.Name()), zap.Duration("duration", duration), zap.Error(err))
		return
	}
	r.logger.Debug("task completed", zap.String("task", task.Name()), zap.Duration("duration", duration))
}

// RunNow executes the named task once, outside its schedule.
func (r *Runner) RunNow(ctx context.Context, name string) error {
	task, ok := r.registry.Get(name)
	if !ok {
		return fmt.Errorf("unknown task %q", name)
	}
	taskCtx, cancel := context.WithTimeout(ctx, task.Timeout())
	defer cancel()
	return task.Run(taskCtx)
}

// Stop gracefully shuts down the runner, waiting for running tasks.
func (r *Runner) Stop() {
	stopped := r.cron.Stop()
	r.wg.Wait()
	<-stopped.Done()
	r.logger.Info("task runner stopped")
}
