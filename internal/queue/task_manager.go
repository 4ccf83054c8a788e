package queue

import (
	"context"
	"fmt"
	"sync"
)

// TaskManager is a simple task manager for delayed function execution.
type TaskManager struct {
	sync.Mutex
	Tasks []func() error
}

// NewTaskManager returns a pointer to a new [TaskManager].
func NewTaskManager() *TaskManager {
	return &TaskManager{
		Tasks: []func() error{},
	}
}

// Add adds a new taskedFunc to the [TaskManager].
// Functions with parameters can be added by invoking a parameterized function
// that immediately returns a func() error, capturing any parameters in the
// closure.
func (t *TaskManager) Add(taskedFunc func() error) {
	t.Lock()
	defer t.Unlock()

	t.Tasks = append(t.Tasks, taskedFunc)
}

// Launch sequentially launches the functions stored in a [TaskManager] and
// returns how many of them failed. A failing task does not stop the others,
// an error is only returned in case of a mid-flight context cancellation.
func (t *TaskManager) Launch(ctx context.Context) (int, error) {
	t.Lock()
	defer t.Unlock()

	failed := 0

	for _, task := range t.Tasks {
		if ctx.Err() != nil {
			break
		}

		if err := task(); err != nil {
			failed++
		}
	}

	if ctx.Err() != nil {
		return failed, fmt.Errorf("(queue-tasker) %w", ctx.Err())
	}

	return failed, nil
}
