// internal/repository/redis/task_repo.go
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kathir-ks/a2a-ledger/internal/models"
	"github.com/kathir-ks/a2a-ledger/internal/repository"
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
	backend "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "a2a-ledger:"

// TaskRepository implements repository.TaskRepository on Redis.
// Each task is a JSON string; history is a list; a sorted set indexes
// tasks by creation time.
type TaskRepository struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the repository.
type Option func(*TaskRepository)

// WithTTL sets the expiration for task records and their history.
func WithTTL(ttl time.Duration) Option {
	return func(r *TaskRepository) {
		r.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(r *TaskRepository) {
		r.prefix = prefix
	}
}

// NewClient opens a client for the given address.
func NewClient(address, password string, db int) *backend.Client {
	return backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
}

// NewTaskRepository creates a Redis-backed task journal from an existing client.
func NewTaskRepository(client *backend.Client, opts ...Option) *TaskRepository {
	r := &TaskRepository{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *TaskRepository) key(id string) string        { return r.prefix + "task:" + id }
func (r *TaskRepository) historyKey(id string) string { return r.prefix + "task:" + id + ":history" }
func (r *TaskRepository) indexKey() string            { return r.prefix + "tasks" }

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	stored := *task
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.LastUpdatedAt = stored.CreatedAt

	data, err := json.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("marshal task %s: %w", task.ID, err)
	}
	ok, err := r.client.SetNX(ctx, r.key(task.ID), data, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis create task %s: %w", task.ID, err)
	}
	if !ok {
		return nil, repository.ErrAlreadyExists
	}
	if err := r.client.ZAdd(ctx, r.indexKey(), backend.Z{
		Score:  float64(stored.CreatedAt.UnixNano()),
		Member: task.ID,
	}).Err(); err != nil {
		return nil, fmt.Errorf("redis index task %s: %w", task.ID, err)
	}
	log.Debugf("RedisRepo: Created task %s", task.ID)
	return &stored, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *models.Task) (*models.Task, error) {
	existing, err := r.FindByID(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	stored := *task
	stored.CreatedAt = existing.CreatedAt
	stored.LastUpdatedAt = time.Now().UTC()

	data, err := json.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("marshal task %s: %w", task.ID, err)
	}
	// XX: only overwrite a record that still exists.
	res, err := r.client.SetArgs(ctx, r.key(task.ID), data, backend.SetArgs{Mode: "XX", KeepTTL: r.ttl == 0, TTL: r.ttl}).Result()
	if errors.Is(err, backend.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis update task %s: %w", task.ID, err)
	}
	log.Debugf("RedisRepo: Updated task %s (%s, state: %s)", task.ID, res, stored.Status.State)
	return &stored, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get task %s: %w", id, err)
	}
	var task models.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", id, err)
	}
	return &task, nil
}

func (r *TaskRepository) List(ctx context.Context, limit int) ([]*models.Task, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := r.client.ZRevRange(ctx, r.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list tasks: %w", err)
	}
	tasks := make([]*models.Task, 0, len(ids))
	for _, id := range ids {
		task, err := r.FindByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			// Expired record; drop the stale index entry.
			r.client.ZRem(ctx, r.indexKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (r *TaskRepository) AddHistory(ctx context.Context, taskID string, status a2a.TaskStatus) error {
	n, err := r.client.Exists(ctx, r.key(taskID)).Result()
	if err != nil {
		return fmt.Errorf("redis check task %s: %w", taskID, err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	if status.Timestamp == nil || status.Timestamp.IsZero() {
		now := time.Now().UTC()
		status.Timestamp = &now
	}
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal status for %s: %w", taskID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, r.historyKey(taskID), data)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.historyKey(taskID), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append history %s: %w", taskID, err)
	}
	return nil
}

func (r *TaskRepository) GetHistory(ctx context.Context, taskID string, limit int) ([]a2a.TaskStatus, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raw, err := r.client.LRange(ctx, r.historyKey(taskID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get history %s: %w", taskID, err)
	}
	out := make([]a2a.TaskStatus, 0, len(raw))
	for _, item := range raw {
		var st a2a.TaskStatus
		if err := json.Unmarshal([]byte(item), &st); err != nil {
			return nil, fmt.Errorf("decode history for %s: %w", taskID, err)
		}
		out = append(out, st)
	}
	return out, nil
}
