// internal/app/task_service.go
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/kathir-ks/a2a-ledger/internal/models"
	"github.com/kathir-ks/a2a-ledger/internal/repository"
	"github.com/kathir-ks/a2a-ledger/internal/roles"
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
	log "github.com/sirupsen/logrus"
)

type taskService struct {
	repo repository.TaskRepository
}

// NewTaskService creates a new TaskService implementation.
func NewTaskService(deps TaskServiceDeps) (TaskService, error) {
	if deps.TaskRepo == nil {
		return nil, errors.New("task service requires a task repository")
	}
	return &taskService{repo: deps.TaskRepo}, nil
}

func (s *taskService) Start(ctx context.Context, env a2a.TaskEnvelope, role string) *models.Task {
	task := models.NewTask(env, role)
	task.ProjectPath = roles.ParsePayload(env.Message.Text()).ProjectPath

	if _, err := s.repo.Create(ctx, task); err != nil {
		if !errors.Is(err, repository.ErrAlreadyExists) {
			log.Errorf("TaskService: journal create %s: %v", env.ID, err)
			return task
		}
		// Same id sent again: a new, independent run of the task.
		log.WithField("task_id", env.ID).Info("TaskService: id seen before, starting a new run")
		if _, err := s.repo.Update(ctx, task); err != nil {
			log.Errorf("TaskService: journal reset %s: %v", env.ID, err)
		}
	}
	s.record(ctx, task, task.Status)
	s.record(ctx, task, task.Transition(a2a.TaskStateInProgress, ""))
	return task
}

func (s *taskService) Finish(ctx context.Context, task *models.Task, resp *a2a.TaskResponse) {
	models.ApplyResponse(task, resp)
	s.record(ctx, task, task.Status)
}

// record stores the task and appends status to its history.
func (s *taskService) record(ctx context.Context, task *models.Task, status a2a.TaskStatus) {
	if _, err := s.repo.Update(ctx, task); err != nil {
		log.Errorf("TaskService: journal update %s: %v", task.ID, err)
		return
	}
	if err := s.repo.AddHistory(ctx, task.ID, status); err != nil {
		log.Errorf("TaskService: journal history %s: %v", task.ID, err)
	}
}

func (s *taskService) Get(ctx context.Context, id string) (*a2a.TaskResponse, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", id, err)
	}
	return models.TaskModelToA2A(task), nil
}

func (s *taskService) List(ctx context.Context, limit int) ([]*a2a.TaskResponse, error) {
	tasks, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	out := make([]*a2a.TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, models.TaskModelToA2A(t))
	}
	return out, nil
}

func (s *taskService) History(ctx context.Context, id string, limit int) ([]a2a.TaskStatus, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, fmt.Errorf("task %s: %w", id, err)
	}
	return s.repo.GetHistory(ctx, id, limit)
}
