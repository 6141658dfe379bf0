package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/kathir-ks/a2a-ledger/internal/models"
	"github.com/kathir-ks/a2a-ledger/internal/repository"
	"github.com/kathir-ks/a2a-ledger/internal/repository/memory"
	"github.com/kathir-ks/a2a-ledger/internal/repository/repositorytest"
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTaskRepository_Contract(t *testing.T) {
	repositorytest.RunTaskRepositoryContract(t, memory.NewMemoryTaskRepository())
}

func TestTaskJournal_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	journal := memory.NewMemoryTaskRepository(memory.WithTTL(50 * time.Millisecond))
	env := a2a.NewTextEnvelope("short-lived", a2a.RoleUser, "x")

	_, err := journal.Create(ctx, models.NewTask(env, "backend"))
	require.NoError(t, err)
	require.NoError(t, journal.AddHistory(ctx, env.ID, a2a.TaskStatus{State: a2a.TaskStatePending}))

	time.Sleep(100 * time.Millisecond)

	_, err = journal.FindByID(ctx, env.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	trail, err := journal.GetHistory(ctx, env.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, trail)
	tasks, err := journal.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	// The id is free again and starts with a fresh trail.
	_, err = journal.Create(ctx, models.NewTask(env, "backend"))
	require.NoError(t, err)
	trail, err = journal.GetHistory(ctx, env.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, trail)
}

func TestTaskJournal_WritesExtendTTL(t *testing.T) {
	ctx := context.Background()
	journal := memory.NewMemoryTaskRepository(memory.WithTTL(150 * time.Millisecond))
	env := a2a.NewTextEnvelope("busy", a2a.RoleUser, "x")

	_, err := journal.Create(ctx, models.NewTask(env, "backend"))
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		time.Sleep(60 * time.Millisecond)
		require.NoError(t, journal.AddHistory(ctx, env.ID, a2a.TaskStatus{State: a2a.TaskStateInProgress}))
	}
	_, err = journal.FindByID(ctx, env.ID)
	assert.NoError(t, err)
}

func TestTaskJournal_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	journal := memory.NewMemoryTaskRepository()
	env := a2a.NewTextEnvelope("copy", a2a.RoleUser, "x")

	created, err := journal.Create(ctx, models.NewTask(env, "backend"))
	require.NoError(t, err)
	created.Role = "frontend"

	found, err := journal.FindByID(ctx, env.ID)
	require.NoError(t, err)
	assert.Equal(t, "backend", found.Role)
}

func TestMemoryLocker_Contract(t *testing.T) {
	repositorytest.RunLockerContract(t, memory.NewLocker())
}

func TestMemoryLocker_TTLExpiry(t *testing.T) {
	locker := memory.NewLocker()
	ctx := context.Background()

	_, err := locker.Lock(ctx, "abandoned", 50*time.Millisecond)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlock, err := locker.Lock(waitCtx, "abandoned", time.Second)
	require.NoError(t, err, "expired holder should not block forever")
	assert.NoError(t, unlock(ctx))
}
