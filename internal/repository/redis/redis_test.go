package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kathir-ks/a2a-ledger/internal/models"
	"github.com/kathir-ks/a2a-ledger/internal/repository/redis"
	"github.com/kathir-ks/a2a-ledger/internal/repository/repositorytest"
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisTaskRepository_Contract(t *testing.T) {
	_, client := newClient(t)
	repositorytest.RunTaskRepositoryContract(t, redis.NewTaskRepository(client))
}

func TestRedisLocker_Contract(t *testing.T) {
	_, client := newClient(t)
	repositorytest.RunLockerContract(t, redis.NewLocker(client, "test:"))
}

func TestRedisLocker_KeyLayout(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "tasks.md:frontend", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:tasks.md:frontend"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:tasks.md:frontend"))
}

func TestRedisLocker_StaleUnlockDoesNotStealLock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock1, err := locker.Lock(ctx, "k", time.Second)
	require.NoError(t, err)

	// Holder 1 outlives its TTL; holder 2 takes over.
	mr.FastForward(2 * time.Second)
	unlock2, err := locker.Lock(ctx, "k", 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, unlock1(ctx))
	assert.True(t, mr.Exists("test:lock:k"), "stale unlock must not release the new holder")
	require.NoError(t, unlock2(ctx))
}

func TestRedisTaskRepository_TTL(t *testing.T) {
	mr, client := newClient(t)
	repo := redis.NewTaskRepository(client, redis.WithTTL(time.Minute), redis.WithPrefix("ttl:"))
	ctx := context.Background()

	_, err := repo.Create(ctx, models.NewTask(a2a.NewTextEnvelope("t1", a2a.RoleUser, "x"), "backend"))
	require.NoError(t, err)
	assert.True(t, mr.Exists("ttl:task:t1"))

	mr.FastForward(2 * time.Minute)

	tasks, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
