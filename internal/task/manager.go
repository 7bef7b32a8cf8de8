package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"travel_recommend/internal/logger"
)

// Status represents the status of an asynchronous task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Task represents an asynchronous task, e.g. a catalog or profile reload.
type Task struct {
	ID         string      `json:"id"`
	Kind       string      `json:"kind"`
	Status     Status      `json:"status"`
	Result     interface{} `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

// Func is the work executed by Submit.
type Func func(ctx context.Context) (interface{}, error)

// Manager manages asynchronous tasks using an in-memory store.
type Manager struct {
	tasks map[string]*Task
	mu    sync.RWMutex
}

// NewManager creates a new task manager.
func NewManager() *Manager {
	return &Manager{
		tasks: make(map[string]*Task),
	}
}

// NewTask creates a new task, stores it, and returns a copy.
func (m *Manager) NewTask(kind string) Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	task := &Task{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	m.tasks[task.ID] = task
	return *task
}

// Submit creates a task and runs fn in the background. The returned copy
// is in pending state; poll GetTask for the outcome. A panic in fn fails the task.
func (m *Manager) Submit(ctx context.Context, kind string, fn Func) Task {
	task := m.NewTask(kind)
	go func() {
		var (
			result interface{}
			err    error
		)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
			if err != nil {
				logger.Error("Task %s (%s) failed: %v", task.ID, kind, err)
				_ = m.SetError(task.ID, err)
				return
			}
			_ = m.SetResult(task.ID, result)
		}()
		_ = m.UpdateStatus(task.ID, StatusProcessing)
		result, err = fn(ctx)
	}()
	return task
}

// GetTask retrieves a copy of a task by its ID.
func (m *Manager) GetTask(id string) (Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	task, exists := m.tasks[id]
	if !exists {
		return Task{}, fmt.Errorf("task with ID '%s' not found", id)
	}
	return *task, nil
}

func (m *Manager) update(id string, fn func(t *Task)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, exists := m.tasks[id]
	if !exists {
		return fmt.Errorf("task with ID '%s' not found", id)
	}
	fn(task)
	return nil
}

// UpdateStatus updates the status of a task.
func (m *Manager) UpdateStatus(id string, status Status) error {
	return m.update(id, func(t *Task) { t.Status = status })
}

// SetResult sets the successful result of a task and marks it as completed.
func (m *Manager) SetResult(id string, result interface{}) error {
	return m.update(id, func(t *Task) {
		now := time.Now()
		t.Result = result
		t.Status = StatusCompleted
		t.Error = ""
		t.FinishedAt = &now
	})
}

// SetError sets the error message for a failed task and marks it as failed.
func (m *Manager) SetError(id string, err error) error {
	return m.update(id, func(t *Task) {
		now := time.Now()
		t.Error = err.Error()
		t.Status = StatusFailed
		t.FinishedAt = &now
	})
}

// Prune drops finished tasks older than maxAge and returns how many were removed.
// Pending and processing tasks are kept.
func (m *Manager) Prune(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, t := range m.tasks {
		if t.FinishedAt != nil && t.FinishedAt.Before(cutoff) {
			delete(m.tasks, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored tasks.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tasks)
}
