// internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kathir-ks/a2a-ledger/internal/models" // Internal models
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"         // For TaskStatus history
)

// Shared errors. Backends wrap or return these so callers can use errors.Is
// without knowing which store is configured.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
)

// TaskRepository defines the persistence operations for the task journal.
type TaskRepository interface {
	// Create saves a new task. Returns ErrAlreadyExists on a duplicate ID.
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	// Update replaces an existing task, keeping its CreatedAt.
	Update(ctx context.Context, task *models.Task) (*models.Task, error)
	// FindByID retrieves a task by its ID or returns ErrNotFound.
	FindByID(ctx context.Context, id string) (*models.Task, error)
	// List returns the most recently created tasks first.
	List(ctx context.Context, limit int) ([]*models.Task, error)
	// AddHistory appends a status entry to the task's history log.
	AddHistory(ctx context.Context, taskID string, status a2a.TaskStatus) error
	// GetHistory retrieves the last N status entries for a task (all if limit <= 0).
	GetHistory(ctx context.Context, taskID string, limit int) ([]a2a.TaskStatus, error)
}

// UnlockFunc releases a lock obtained from a Locker.
type UnlockFunc func(ctx context.Context) error

// Locker grants exclusive ownership of a key across processes.
type Locker interface {
	// Lock blocks until the key is acquired or ctx ends. The TTL bounds how
	// long a crashed holder can keep the key.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
