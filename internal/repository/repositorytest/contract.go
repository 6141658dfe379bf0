// Package repositorytest holds behaviour checks shared by every
// repository backend.
package repositorytest

import (
	"context"
	"testing"
	"time"

	"github.com/kathir-ks/a2a-ledger/internal/models"
	"github.com/kathir-ks/a2a-ledger/internal/repository"
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTaskRepositoryContract exercises a fresh, empty TaskRepository.
func RunTaskRepositoryContract(t *testing.T, repo repository.TaskRepository) {
	ctx := context.Background()
	env := a2a.NewTextEnvelope("contract-task-1", a2a.RoleUser, "Uncompleted backend tasks")

	t.Run("Create and Find", func(t *testing.T) {
		// 1. Create
		created, err := repo.Create(ctx, models.NewTask(env, "backend"))
		require.NoError(t, err)
		assert.Equal(t, a2a.TaskStatePending, created.Status.State)
		assert.False(t, created.CreatedAt.IsZero())

		// 2. Find
		found, err := repo.FindByID(ctx, env.ID)
		require.NoError(t, err)
		assert.Equal(t, "backend", found.Role)
		assert.Equal(t, env.Message, found.Request)
	})

	t.Run("Duplicate Create", func(t *testing.T) {
		_, err := repo.Create(ctx, models.NewTask(env, "backend"))
		assert.ErrorIs(t, err, repository.ErrAlreadyExists)
	})

	t.Run("Update keeps CreatedAt", func(t *testing.T) {
		before, err := repo.FindByID(ctx, env.ID)
		require.NoError(t, err)

		resp := a2a.NewCompletedResponse(env, "done")
		models.ApplyResponse(before, resp)
		updated, err := repo.Update(ctx, before)
		require.NoError(t, err)

		assert.Equal(t, a2a.TaskStateCompleted, updated.Status.State)
		assert.True(t, updated.CreatedAt.Equal(before.CreatedAt))
		require.NotNil(t, updated.Reply)
		assert.Equal(t, "done", updated.Reply.Text())
	})

	t.Run("Update Non-Existent", func(t *testing.T) {
		_, err := repo.Update(ctx, &models.Task{ID: "missing"})
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("Find Non-Existent", func(t *testing.T) {
		_, err := repo.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("History", func(t *testing.T) {
		require.NoError(t, repo.AddHistory(ctx, env.ID, a2a.TaskStatus{State: a2a.TaskStatePending}))
		require.NoError(t, repo.AddHistory(ctx, env.ID, a2a.TaskStatus{State: a2a.TaskStateInProgress}))
		require.NoError(t, repo.AddHistory(ctx, env.ID, a2a.TaskStatus{State: a2a.TaskStateCompleted}))

		all, err := repo.GetHistory(ctx, env.ID, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.NotNil(t, all[0].Timestamp)

		last, err := repo.GetHistory(ctx, env.ID, 2)
		require.NoError(t, err)
		require.Len(t, last, 2)
		assert.Equal(t, a2a.TaskStateInProgress, last[0].State)
		assert.Equal(t, a2a.TaskStateCompleted, last[1].State)

		assert.ErrorIs(t, repo.AddHistory(ctx, "missing", a2a.TaskStatus{State: a2a.TaskStateFailed}), repository.ErrNotFound)
		empty, err := repo.GetHistory(ctx, "missing", 0)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("List newest first", func(t *testing.T) {
		second := models.NewTask(a2a.NewTextEnvelope("contract-task-2", a2a.RoleUser, "x"), "frontend")
		second.CreatedAt = time.Now().UTC().Add(time.Minute)
		_, err := repo.Create(ctx, second)
		require.NoError(t, err)

		tasks, err := repo.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, "contract-task-2", tasks[0].ID)

		limited, err := repo.List(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})
}

// RunLockerContract checks exclusion and release on a Locker.
func RunLockerContract(t *testing.T, locker repository.Locker) {
	ctx := context.Background()

	t.Run("Lock and Unlock", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "contract-a", 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))

		// Re-acquire after release.
		unlock, err = locker.Lock(ctx, "contract-a", 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))
	})

	t.Run("Contention", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "contract-b", 5*time.Second)
		require.NoError(t, err)

		waitCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(waitCtx, "contract-b", 5*time.Second)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		// Other keys are independent.
		other, err := locker.Lock(ctx, "contract-c", 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, other(ctx))

		require.NoError(t, unlock(ctx))
	})

	t.Run("Waiter acquires after release", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "contract-d", 5*time.Second)
		require.NoError(t, err)

		acquired := make(chan error, 1)
		go func() {
			waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			u, err := locker.Lock(waitCtx, "contract-d", 5*time.Second)
			if err == nil {
				err = u(ctx)
			}
			acquired <- err
		}()

		time.Sleep(150 * time.Millisecond)
		require.NoError(t, unlock(ctx))
		assert.NoError(t, <-acquired)
	})
}
