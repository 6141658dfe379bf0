// Package worker turns a role profile and a completer into the task
// handler served by that role's agent.
package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/kathir-ks/a2a-ledger/internal/completion"
	"github.com/kathir-ks/a2a-ledger/internal/ledger"
	"github.com/kathir-ks/a2a-ledger/internal/roles"
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
	log "github.com/sirupsen/logrus"
)

// Handler implements agentlib.TaskHandler for one role.
type Handler struct {
	profile     *roles.Profile
	completer   completion.Completer
	projectPath string // used when the text carries no PROJECT_PATH marker
	planFile    string
	ledgerFile  string
}

// NewHandler creates a role handler. planFile and ledgerFile are resolved
// against the project path of each task unless they are absolute.
func NewHandler(profile *roles.Profile, completer completion.Completer, projectPath, planFile, ledgerFile string) (*Handler, error) {
	if profile == nil {
		return nil, errors.New("role profile is required")
	}
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	return &Handler{
		profile:     profile,
		completer:   completer,
		projectPath: projectPath,
		planFile:    planFile,
		ledgerFile:  ledgerFile,
	}, nil
}

func resolve(dir, file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}

// HandleTaskSend implements agentlib.TaskHandler.
func (h *Handler) HandleTaskSend(ctx context.Context, env a2a.TaskEnvelope) (*a2a.TaskResponse, error) {
	payload := roles.ParsePayload(env.Message.Text())
	projectPath := payload.ProjectPath
	if projectPath == "" {
		projectPath = h.projectPath
	} else if !filepath.IsAbs(projectPath) {
		log.Warnf("Relative project path %q in task %s, using default %s", projectPath, env.ID, h.projectPath)
		projectPath = h.projectPath
	}

	logger := log.WithFields(log.Fields{"role": h.profile.Name, "task_id": env.ID, "project_path": projectPath})
	data := roles.PromptData{
		Text:        payload.Body,
		Description: payload.Description,
		ProjectPath: projectPath,
		PlanFile:    resolve(projectPath, h.planFile),
		LedgerFile:  resolve(projectPath, h.ledgerFile),
	}

	if h.profile.Name == roles.Planning {
		if err := h.bootstrap(data); err != nil {
			return nil, err
		}
	}

	prompt, err := h.profile.RenderServerPrompt(data)
	if err != nil {
		return nil, err
	}

	logger.Info("Received task, delegating to completion subsystem")
	reply, err := h.completer.Complete(ctx, completion.Request{
		Role:         h.profile.Name,
		SystemPrompt: h.profile.SystemPrompt,
		Prompt:       prompt,
		WorkDir:      projectPath,
	})
	if err != nil {
		return nil, fmt.Errorf("%s completion: %w", h.profile.Name, err)
	}
	if reply == "" {
		return nil, completion.ErrEmptyOutput
	}
	return a2a.NewCompletedResponse(env, reply), nil
}

// bootstrap creates the plan and ledger files the planner is asked to fill.
func (h *Handler) bootstrap(data roles.PromptData) error {
	for path, content := range map[string]string{
		data.PlanFile:   ledger.DefaultPlanContent,
		data.LedgerFile: ledger.DefaultLedgerContent,
	} {
		created, err := ledger.EnsureFile(path, content)
		if err != nil {
			return fmt.Errorf("prepare project files: %w", err)
		}
		if created {
			log.Infof("Created %s", path)
		}
	}
	return nil
}
