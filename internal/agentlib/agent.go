// internal/agentlib/agent.go
package agentlib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/kathir-ks/a2a-ledger/internal/app"
	"github.com/kathir-ks/a2a-ledger/internal/repository"
	"github.com/kathir-ks/a2a-ledger/internal/repository/memory"
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// Agent represents a runnable A2A agent service.
type Agent struct {
	config      *Config
	card        a2a.AgentCard
	cardJSON    []byte // encoded once; the card never changes after NewAgent
	taskHandler TaskHandler
	tasks       repository.TaskRepository
	journal     app.TaskService
	slots       *semaphore.Weighted
	taskTimeout time.Duration

	mu          sync.Mutex
	httpServer  *http.Server
	serverLogic *agentServer
}

// Option configures an Agent.
type Option func(*Agent)

// WithRepository sets the task journal. Defaults to an in-memory one.
func WithRepository(repo repository.TaskRepository) Option {
	return func(a *Agent) {
		a.tasks = repo
	}
}

// NewAgent creates a new agent instance.
// It requires agent configuration and a TaskHandler implementation.
func NewAgent(cfg *Config, handler TaskHandler, opts ...Option) (*Agent, error) {
	if cfg == nil {
		return nil, errors.New("agent configuration cannot be nil")
	}
	if handler == nil {
		return nil, errors.New("agent task handler cannot be nil")
	}
	card := cfg.Card
	if card.Name == "" || card.Version == "" || card.URL == "" {
		return nil, fmt.Errorf("agent card requires Name, Version, and URL (found Name='%s', Version='%s', URL='%s')", card.Name, card.Version, card.URL)
	}
	cardJSON, err := json.Marshal(card)
	if err != nil {
		return nil, fmt.Errorf("encode agent card: %w", err)
	}

	maxInFlight := cfg.MaxInFlight
	if maxInFlight < 1 {
		maxInFlight = 1
	}

	taskTimeout := cfg.TaskTimeout
	if taskTimeout <= 0 {
		taskTimeout = 5 * time.Minute
	}

	agent := &Agent{
		config:      cfg,
		taskTimeout: taskTimeout,
		card:        card,
		cardJSON:    cardJSON,
		taskHandler: handler,
		slots:       semaphore.NewWeighted(int64(maxInFlight)),
	}
	for _, opt := range opts {
		opt(agent)
	}
	if agent.tasks == nil {
		agent.tasks = memory.NewMemoryTaskRepository()
	}
	if agent.journal, err = app.NewTaskService(app.TaskServiceDeps{TaskRepo: agent.tasks}); err != nil {
		return nil, err
	}
	agent.serverLogic = &agentServer{agent: agent}

	return agent, nil
}

// GetCard returns the AgentCard describing this agent.
func (a *Agent) GetCard() a2a.AgentCard {
	return a.card
}

// Handler returns the agent's HTTP handler without starting a listener.
func (a *Agent) Handler() http.Handler {
	return a.serverLogic.NewRouter()
}

// Start runs the agent's HTTP server.
// It blocks until the server is shut down. Call Stop() for graceful shutdown.
func (a *Agent) Start() error {
	l, err := net.Listen("tcp", a.config.listenAddr())
	if err != nil {
		return fmt.Errorf("agent '%s' listen on %s: %w", a.card.Name, a.config.listenAddr(), err)
	}
	return a.Serve(l)
}

// Serve runs the HTTP server on an existing listener.
func (a *Agent) Serve(l net.Listener) error {
	a.mu.Lock()
	if a.httpServer != nil {
		a.mu.Unlock()
		return errors.New("agent server already started")
	}
	srv := &http.Server{
		Handler:     a.Handler(),
		ReadTimeout: 15 * time.Second,
		// A task may run for the whole task timeout before the reply is written.
		WriteTimeout: a.taskTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	a.httpServer = srv
	a.mu.Unlock()

	log.Infof("Starting Agent '%s' v%s (%s) on %s", a.card.Name, a.card.Version, a.config.Role, l.Addr())
	log.Infof("Agent Card URL: %s%s", a.card.URL, a2a.PathAgentCard)

	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("Agent '%s' HTTP server error: %v", a.card.Name, err)
		a.mu.Lock()
		a.httpServer = nil
		a.mu.Unlock()
		return err
	}

	log.Infof("Agent '%s' server stopped.", a.card.Name)
	return nil
}

// Stop gracefully shuts down the agent's HTTP server.
func (a *Agent) Stop(ctx context.Context) error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.mu.Unlock()

	if srv == nil {
		log.Warnf("Agent '%s' server is not running, cannot stop.", a.card.Name)
		return nil
	}

	log.Infof("Shutting down Agent '%s' server...", a.card.Name)
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Agent '%s' graceful shutdown failed: %v", a.card.Name, err)
		// Fallback to close if shutdown fails after context deadline
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorf("Agent '%s' server close failed: %v", a.card.Name, closeErr)
		}
		return err
	}

	log.Infof("Agent '%s' server shutdown complete.", a.card.Name)
	return nil
}
