// internal/models/models.go
package models

import (
	"time"

	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
)

// Task is the server-side journal entry for one received envelope.
type Task struct {
	ID            string         `json:"id"`
	Role          string         `json:"role"` // role of the agent that handled it
	Status        a2a.TaskStatus `json:"status"`
	Request       a2a.Message    `json:"request"`
	Reply         *a2a.Message   `json:"reply,omitempty"`
	ProjectPath   string         `json:"project_path,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	LastUpdatedAt time.Time      `json:"last_updated_at"`
}

// NewTask starts a journal entry in the pending state.
func NewTask(env a2a.TaskEnvelope, role string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:        env.ID,
		Role:      role,
		Status:    a2a.TaskStatus{State: a2a.TaskStatePending, Timestamp: &now},
		Request:   env.Message,
		CreatedAt: now,
	}
}

// Transition moves the task to state, stamping the status.
func (t *Task) Transition(state a2a.TaskState, message string) a2a.TaskStatus {
	now := time.Now().UTC()
	t.Status = a2a.TaskStatus{State: state, Timestamp: &now, Message: message}
	return t.Status
}
