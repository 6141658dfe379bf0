package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/kathir-ks/a2a-ledger/internal/app"
	"github.com/kathir-ks/a2a-ledger/internal/repository"
	"github.com/kathir-ks/a2a-ledger/internal/repository/memory"
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) app.TaskService {
	t.Helper()
	svc, err := app.NewTaskService(app.TaskServiceDeps{TaskRepo: memory.NewMemoryTaskRepository()})
	require.NoError(t, err)
	return svc
}

func TestNewTaskService_RequiresRepo(t *testing.T) {
	_, err := app.NewTaskService(app.TaskServiceDeps{})
	assert.Error(t, err)
}

func TestTaskService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	env := a2a.NewTextEnvelope("t-1", a2a.RoleUser, "PROJECT_PATH: /srv/app\n\nbuild it")

	task := svc.Start(ctx, env, "frontend")
	assert.Equal(t, a2a.TaskStateInProgress, task.Status.State)

	got, err := svc.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateInProgress, got.Status.State)

	svc.Finish(ctx, task, a2a.NewCompletedResponse(env, "built"))
	got, err = svc.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCompleted, got.Status.State)
	reply, err := a2a.ExtractReply(got)
	require.NoError(t, err)
	assert.Equal(t, "built", reply)

	history, err := svc.History(ctx, "t-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, a2a.TaskStatePending, history[0].State)
	assert.Equal(t, a2a.TaskStateCompleted, history[2].State)

	last, err := svc.History(ctx, "t-1", 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, a2a.TaskStateCompleted, last[0].State)
}

func TestTaskService_RerunSameID(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	env := a2a.NewTextEnvelope("dup", a2a.RoleUser, "x")

	first := svc.Start(ctx, env, "backend")
	svc.Finish(ctx, first, a2a.NewFailedResponse(env, "boom"))

	second := svc.Start(ctx, env, "backend")
	got, err := svc.Get(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateInProgress, got.Status.State)

	svc.Finish(ctx, second, a2a.NewCompletedResponse(env, "ok"))
	got, err = svc.Get(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCompleted, got.Status.State)
}

func TestTaskService_List(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	for _, id := range []string{"a", "b", "c"} {
		env := a2a.NewTextEnvelope(id, a2a.RoleUser, "x")
		task := svc.Start(ctx, env, "backend")
		svc.Finish(ctx, task, a2a.NewCompletedResponse(env, "ok "+id))
		time.Sleep(2 * time.Millisecond)
	}

	all, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "a", all[2].ID)
	reply, err := a2a.ExtractReply(all[0])
	require.NoError(t, err)
	assert.Equal(t, "ok c", reply)

	two, err := svc.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestTaskService_NotFound(t *testing.T) {
	svc := newService(t)
	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = svc.History(context.Background(), "nope", 0)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
