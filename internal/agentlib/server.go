// internal/agentlib/server.go
package agentlib

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/kathir-ks/a2a-ledger/internal/observability"
	"github.com/kathir-ks/a2a-ledger/internal/repository"
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
	log "github.com/sirupsen/logrus"
)

// maxBodyBytes caps the size of a task envelope.
const maxBodyBytes = 4 << 20

// agentServer wraps the agent's core logic for HTTP handling.
type agentServer struct {
	agent *Agent
}

// NewRouter creates the HTTP router for the agent.
func (ags *agentServer) NewRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(recoveryMiddleware)
	router.Use(ags.loggingMiddleware)

	router.HandleFunc(a2a.PathAgentCard, ags.handleAgentCard).Methods(http.MethodGet)
	router.HandleFunc(a2a.PathSendTask, ags.handleSendTask).Methods(http.MethodPost)
	router.HandleFunc(a2a.PathListTasks, ags.handleListTasks).Methods(http.MethodGet)
	router.HandleFunc(a2a.PathGetTask, ags.handleGetTask).Methods(http.MethodGet)
	router.HandleFunc(a2a.PathGetTask+"/history", ags.handleGetHistory).Methods(http.MethodGet)
	router.Handle(a2a.PathMetrics, observability.Handler()).Methods(http.MethodGet)
	router.HandleFunc(a2a.PathHealth, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	return router
}

func (ags *agentServer) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(ags.agent.cardJSON)
}

// handleSendTask validates the envelope, waits for an admission slot, runs
// the handler and journals each state change. Once the envelope is valid
// the reply is always 200 with a completed or failed task.
func (ags *agentServer) handleSendTask(w http.ResponseWriter, r *http.Request) {
	a := ags.agent

	// 1. Decode and validate
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	env, err := a2a.DecodeEnvelope(body)
	if err != nil {
		log.WithField("role", a.config.Role).Warnf("Agent: rejected envelope: %v", err)
		writeError(w, statusForError(err), err.Error())
		return
	}
	// The reply echoes the caller's id even when empty; only the journal
	// needs a key.
	journalEnv := env
	if env.ID == "" {
		journalEnv.ID = uuid.NewString()
		log.Warnf("Agent: envelope without id, journaled as %s", journalEnv.ID)
	}
	logger := log.WithFields(log.Fields{"role": a.config.Role, "task_id": journalEnv.ID})

	// 2. Admission
	ctx := r.Context()
	if err := a.slots.Acquire(ctx, 1); err != nil {
		logger.Warn("Agent: caller left while waiting for a free slot")
		writeError(w, statusForError(ErrBusy), ErrBusy.Error())
		return
	}
	defer a.slots.Release(1)
	defer observability.TaskStarted(a.config.Role)()

	// 3. Journal: pending -> in_progress
	task := a.journal.Start(ctx, journalEnv, a.config.Role)

	// 4. Run
	taskCtx, cancel := context.WithTimeout(ctx, a.taskTimeout)
	defer cancel()
	start := time.Now()
	resp := ags.runHandler(taskCtx, env)
	if resp.Status.State == a2a.TaskStateFailed {
		logger.WithField("duration_ms", time.Since(start).Milliseconds()).Warnf("Agent: task failed: %s", resp.Status.Message)
	} else {
		logger.WithField("duration_ms", time.Since(start).Milliseconds()).Info("Agent: task completed")
	}

	// 5. Journal the outcome and reply
	a.journal.Finish(context.WithoutCancel(ctx), task, resp)
	observability.RecordTask(a.config.Role, string(resp.Status.State))
	writeJSONResponse(w, http.StatusOK, resp)
}

// runHandler calls the TaskHandler and maps every fault (error, nil
// response, bad state, panic) to a failed task.
func (ags *agentServer) runHandler(ctx context.Context, env a2a.TaskEnvelope) (resp *a2a.TaskResponse) {
	defer func() {
		if p := recover(); p != nil {
			log.WithFields(log.Fields{"task_id": env.ID, "panic": p}).Error("Agent: Recovered from task handler panic")
			resp = a2a.NewFailedResponse(env, "agent encountered an unexpected error")
		}
	}()

	out, err := ags.agent.taskHandler.HandleTaskSend(ctx, env)
	switch {
	case err != nil:
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return a2a.NewFailedResponse(env, fmt.Sprintf("task aborted: %v", ctx.Err()))
		}
		return a2a.NewFailedResponse(env, err.Error())
	case out == nil:
		return a2a.NewFailedResponse(env, "task handler returned no response")
	case !out.Status.State.Terminal():
		return a2a.NewFailedResponse(env, fmt.Sprintf("task handler returned non-terminal state %q", out.Status.State))
	}
	out.ID = env.ID
	return out
}

func (ags *agentServer) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := ags.agent.journal.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeJournalError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, task)
}

func (ags *agentServer) handleListTasks(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	tasks, err := ags.agent.journal.List(r.Context(), limit)
	if err != nil {
		writeJournalError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, tasks)
}

func (ags *agentServer) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	history, err := ags.agent.journal.History(r.Context(), mux.Vars(r)["id"], limit)
	if err != nil {
		writeJournalError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, history)
}

func writeJournalError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	log.Errorf("Agent: journal lookup: %v", err)
	writeError(w, statusForError(err), err.Error())
}
