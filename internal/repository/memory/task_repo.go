// internal/repository/memory/task_repo.go
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kathir-ks/a2a-ledger/internal/models"
	"github.com/kathir-ks/a2a-ledger/internal/repository"
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
	log "github.com/sirupsen/logrus"
)

// journalEntry is one task's record plus its status trail. The record is
// kept encoded so callers never share memory with the journal.
type journalEntry struct {
	record    []byte
	createdAt time.Time
	trail     []a2a.TaskStatus
	expiresAt time.Time // zero: never
}

func (e *journalEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func (e *journalEntry) decode() (*models.Task, error) {
	var task models.Task
	if err := json.Unmarshal(e.record, &task); err != nil {
		return nil, fmt.Errorf("decode journal record: %w", err)
	}
	return &task, nil
}

// TaskJournal is an in-process task journal. With a TTL, a task and its
// trail disappear once the task has gone untouched for that long, the same
// way the Redis journal lets its keys expire.
type TaskJournal struct {
	mu      sync.Mutex
	entries map[string]*journalEntry
	ttl     time.Duration
	now     func() time.Time
}

// JournalOption configures a TaskJournal.
type JournalOption func(*TaskJournal)

// WithTTL expires tasks that have not been written for ttl. Zero keeps
// them for the life of the process.
func WithTTL(ttl time.Duration) JournalOption {
	return func(j *TaskJournal) { j.ttl = ttl }
}

// NewMemoryTaskRepository returns an empty in-process journal.
func NewMemoryTaskRepository(opts ...JournalOption) *TaskJournal {
	j := &TaskJournal{
		entries: make(map[string]*journalEntry),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

var _ repository.TaskRepository = (*TaskJournal)(nil)

// live returns the entry for id, dropping it if it has expired.
// Caller holds j.mu.
func (j *TaskJournal) live(id string) (*journalEntry, bool) {
	e, ok := j.entries[id]
	if !ok {
		return nil, false
	}
	if e.expired(j.now()) {
		delete(j.entries, id)
		log.Debugf("MemoryJournal: task %s expired", id)
		return nil, false
	}
	return e, true
}

func (j *TaskJournal) touch(e *journalEntry) {
	if j.ttl > 0 {
		e.expiresAt = j.now().Add(j.ttl)
	}
}

func (j *TaskJournal) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, ok := j.live(task.ID); ok {
		return nil, repository.ErrAlreadyExists
	}
	stored := *task
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = j.now()
	}
	stored.LastUpdatedAt = stored.CreatedAt
	data, err := json.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("encode task %s: %w", task.ID, err)
	}
	e := &journalEntry{record: data, createdAt: stored.CreatedAt}
	j.touch(e)
	j.entries[task.ID] = e
	log.Debugf("MemoryJournal: recorded task %s", task.ID)
	return e.decode()
}

// Update replaces the record of a live task. CreatedAt is kept from the
// first run so the task keeps its place in List.
func (j *TaskJournal) Update(ctx context.Context, task *models.Task) (*models.Task, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	e, ok := j.live(task.ID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	stored := *task
	stored.CreatedAt = e.createdAt
	stored.LastUpdatedAt = j.now()
	data, err := json.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("encode task %s: %w", task.ID, err)
	}
	e.record = data
	j.touch(e)
	log.Debugf("MemoryJournal: task %s now %s", task.ID, stored.Status.State)
	return e.decode()
}

func (j *TaskJournal) FindByID(ctx context.Context, id string) (*models.Task, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	e, ok := j.live(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return e.decode()
}

// List returns live tasks newest first. Expired tasks met on the way are
// swept.
func (j *TaskJournal) List(ctx context.Context, limit int) ([]*models.Task, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	ids := make([]string, 0, len(j.entries))
	for id := range j.entries {
		if _, ok := j.live(id); ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(a, b int) bool {
		return j.entries[ids[a]].createdAt.After(j.entries[ids[b]].createdAt)
	})
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}

	tasks := make([]*models.Task, 0, len(ids))
	for _, id := range ids {
		task, err := j.entries[id].decode()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// AddHistory appends to the trail of a live task and extends its TTL.
func (j *TaskJournal) AddHistory(ctx context.Context, taskID string, status a2a.TaskStatus) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	e, ok := j.live(taskID)
	if !ok {
		return repository.ErrNotFound
	}
	if status.Timestamp == nil || status.Timestamp.IsZero() {
		now := j.now()
		status.Timestamp = &now
	}
	e.trail = append(e.trail, status)
	j.touch(e)
	return nil
}

// GetHistory returns the last limit statuses (all if limit <= 0), oldest
// first. Unknown or expired tasks have an empty trail.
func (j *TaskJournal) GetHistory(ctx context.Context, taskID string, limit int) ([]a2a.TaskStatus, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	e, ok := j.live(taskID)
	if !ok {
		return []a2a.TaskStatus{}, nil
	}
	trail := e.trail
	if limit > 0 && limit < len(trail) {
		trail = trail[len(trail)-limit:]
	}
	return append([]a2a.TaskStatus{}, trail...), nil
}
