package task

import "time"

// Status represents the status of a task
type Status string

const (
	StatusPending       Status = "pending"
	StatusGenerating    Status = "generating"
	StatusSynchronizing Status = "synchronizing"
	StatusWritingFiles  Status = "writing_files"
	StatusCreatingRepo  Status = "creating_repo"
	StatusPushing       Status = "pushing"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
)

// Kind distinguishes what a task does
type Kind string

const (
	KindGenerate Kind = "generate"
	KindExport   Kind = "export"
)

// Task represents a generation or export task bound to one session
type Task struct {
	ID        string    `json:"task_id"`
	Kind      Kind      `json:"kind"`
	SessionID string    `json:"session_id"`
	Prompt    string    `json:"prompt,omitempty"`
	Model     string    `json:"model,omitempty"`
	APIKey    string    `json:"-"`
	RepoName  string    `json:"repo_name,omitempty"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	Changed   []string  `json:"changed,omitempty"`
	RepoURL   string    `json:"repo_url,omitempty"`
	Path      string    `json:"path,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateStatus updates the task status and message
func (t *Task) UpdateStatus(status Status, message string) {
	t.Status = status
	t.Message = message
	t.UpdatedAt = time.Now()
}

// SetError sets the task error and status to failed
func (t *Task) SetError(err error) {
	t.Status = StatusFailed
	t.Error = err.Error()
	t.Message = "Task failed"
	t.UpdatedAt = time.Now()
}

// IsTerminal returns true if the task is in a terminal state
func (t *Task) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}
