package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cosmos-link/webgen/internal/logging"
)

// ErrShutdown is returned when submitting to a stopped manager
var ErrShutdown = errors.New("task manager is shut down")

// StatusCallback is a function that is called when a task status changes
type StatusCallback func(task Task)

// Job is the work run for a task by the worker pool
type Job func(ctx context.Context) error

type queued struct {
	id  string
	job Job
}

// Manager manages tasks
type Manager struct {
	tasks           map[string]*Task
	mu              sync.RWMutex
	statusCallbacks map[string][]StatusCallback
	callbackMu      sync.RWMutex
	timeout         time.Duration
	taskQueue       chan queued
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
}

// NewManager creates a new task manager with a fixed worker pool
func NewManager(maxConcurrentTasks int, timeout time.Duration) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		tasks:           make(map[string]*Task),
		statusCallbacks: make(map[string][]StatusCallback),
		timeout:         timeout,
		taskQueue:       make(chan queued, 100),
		ctx:             ctx,
		cancel:          cancel,
	}

	// Start worker pool
	for i := 0; i < maxConcurrentTasks; i++ {
		m.wg.Add(1)
		go m.worker()
	}

	return m
}

// CreateTask registers a new pending task from a template and returns a copy
func (m *Manager) CreateTask(t Task) Task {
	now := time.Now()
	t.ID = uuid.New().String()
	t.Status = StatusPending
	t.Message = "Task created"
	t.CreatedAt = now
	t.UpdatedAt = now

	m.mu.Lock()
	stored := t
	m.tasks[t.ID] = &stored
	m.mu.Unlock()

	logging.Debug("task created", zap.String("task_id", t.ID), zap.String("kind", string(t.Kind)))
	return t
}

// GetTask retrieves a copy of a task by ID
func (m *Manager) GetTask(id string) (Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	task, ok := m.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("task not found: %s", id)
	}

	return *task, nil
}

// UpdateTask updates a task's status
func (m *Manager) UpdateTask(id string, status Status, message string) error {
	return m.mutate(id, func(t *Task) {
		t.UpdateStatus(status, message)
	})
}

// SetTaskError sets a task's error
func (m *Manager) SetTaskError(id string, err error) error {
	return m.mutate(id, func(t *Task) {
		t.SetError(err)
	})
}

// SetTaskChanged records the files a generation task created or updated
func (m *Manager) SetTaskChanged(id string, names []string) error {
	return m.mutate(id, func(t *Task) {
		t.Changed = names
		t.UpdatedAt = time.Now()
	})
}

// SetTaskRepoURL sets the repository URL for a task
func (m *Manager) SetTaskRepoURL(id string, repoURL string) error {
	return m.mutate(id, func(t *Task) {
		t.RepoURL = repoURL
		t.UpdatedAt = time.Now()
	})
}

// SetTaskPath sets the local export directory for a task
func (m *Manager) SetTaskPath(id string, path string) error {
	return m.mutate(id, func(t *Task) {
		t.Path = path
		t.UpdatedAt = time.Now()
	})
}

func (m *Manager) mutate(id string, fn func(t *Task)) error {
	m.mu.Lock()
	task, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("task not found: %s", id)
	}

	fn(task)
	snapshot := *task
	m.mu.Unlock()

	// Notify callbacks
	m.notifyCallbacks(snapshot)

	return nil
}

// SubscribeToTask subscribes to task status updates
func (m *Manager) SubscribeToTask(taskID string, callback StatusCallback) error {
	m.callbackMu.Lock()
	defer m.callbackMu.Unlock()

	// Check if task exists
	m.mu.RLock()
	_, ok := m.tasks[taskID]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("task not found: %s", taskID)
	}

	m.statusCallbacks[taskID] = append(m.statusCallbacks[taskID], callback)
	return nil
}

// notifyCallbacks notifies all callbacks for a task in registration order
func (m *Manager) notifyCallbacks(task Task) {
	m.callbackMu.RLock()
	callbacks := append([]StatusCallback(nil), m.statusCallbacks[task.ID]...)
	m.callbackMu.RUnlock()

	for _, callback := range callbacks {
		callback(task)
	}

	// Clean up callbacks if task is terminal
	if task.IsTerminal() {
		m.callbackMu.Lock()
		delete(m.statusCallbacks, task.ID)
		m.callbackMu.Unlock()
	}
}

// Submit queues a job for a task on the worker pool
func (m *Manager) Submit(taskID string, job Job) error {
	if _, err := m.GetTask(taskID); err != nil {
		return err
	}
	if m.ctx.Err() != nil {
		return ErrShutdown
	}

	select {
	case <-m.ctx.Done():
		return ErrShutdown
	case m.taskQueue <- queued{id: taskID, job: job}:
		return nil
	}
}

// worker processes tasks from the queue
func (m *Manager) worker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case q := <-m.taskQueue:
			m.run(q)
		}
	}
}

func (m *Manager) run(q queued) {
	ctx, cancel := context.WithTimeout(m.ctx, m.timeout)
	defer cancel()

	ctx = logging.WithFields(ctx, zap.String("task_id", q.id))
	if err := q.job(ctx); err != nil {
		logging.WithContext(ctx).Warn("task failed", zap.Error(err))

		if t, getErr := m.GetTask(q.id); getErr == nil && !t.IsTerminal() {
			_ = m.SetTaskError(q.id, err)
		}
	}
}

// Shutdown stops the workers and waits for running jobs to return
func (m *Manager) Shutdown() {
	m.cancel()
	m.wg.Wait()
}
