// internal/app/interfaces.go
package app

import (
	"context"

	"github.com/kathir-ks/a2a-ledger/internal/models"
	"github.com/kathir-ks/a2a-ledger/internal/repository"
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
)

// TaskService keeps the journal of tasks an agent has received.
// Journal failures are logged and never fail the task itself.
type TaskService interface {
	// Start records a received envelope as pending, then in_progress.
	// Re-sending an id starts a fresh run under the same record.
	Start(ctx context.Context, env a2a.TaskEnvelope, role string) *models.Task
	// Finish records the terminal response of a task.
	Finish(ctx context.Context, task *models.Task, resp *a2a.TaskResponse)
	// Get returns the journaled task as a protocol response.
	Get(ctx context.Context, id string) (*a2a.TaskResponse, error)
	// List returns the most recently received tasks first, at most limit
	// of them (all if limit <= 0).
	List(ctx context.Context, limit int) ([]*a2a.TaskResponse, error)
	// History returns the last limit status changes (all if limit <= 0).
	History(ctx context.Context, id string, limit int) ([]a2a.TaskStatus, error)
}

// TaskServiceDeps holds dependencies for TaskService.
type TaskServiceDeps struct {
	TaskRepo repository.TaskRepository
}
