package runner

import (
	"context"
	"fmt"
	"time"
)

// Task is a unit of scheduled maintenance.
type Task interface {
	Name() string
	// Schedule is a six-field cron expression or a descriptor like "@every 1h".
	Schedule() string
	Run(ctx context.Context) error
	Timeout() time.Duration
}

// TaskRegistry holds the tasks a Runner schedules, keyed by name.
type TaskRegistry struct {
	tasks map[string]Task
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{tasks: make(map[string]Task)}
}

// Register adds task. Names must be unique.
func (r *TaskRegistry) Register(task Task) error {
	if _, dup := r.tasks[task.Name()]; dup {
		return fmt.Errorf("task %s already registered", task.Name())
	}
	r.tasks[task.Name()] = task
	return nil
}

func (r *TaskRegistry) Get(name string) (Task, bool) {
	task, exists := r.tasks[name]
	return task, exists
}

func (r *TaskRegistry) All() map[string]Task {
	return r.tasks
}
