// internal/agentlib/interfaces.go
package agentlib

import (
	"context"

	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
)

// TaskHandler defines the interface that agent implementations must satisfy
// to process incoming task requests.
type TaskHandler interface {
	// HandleTaskSend processes a validated envelope and returns the reply.
	// An error is reported to the caller as a failed task; it never
	// changes the HTTP status.
	HandleTaskSend(ctx context.Context, env a2a.TaskEnvelope) (*a2a.TaskResponse, error)
}

// TaskHandlerFunc adapts a function to TaskHandler.
type TaskHandlerFunc func(ctx context.Context, env a2a.TaskEnvelope) (*a2a.TaskResponse, error)

func (f TaskHandlerFunc) HandleTaskSend(ctx context.Context, env a2a.TaskEnvelope) (*a2a.TaskResponse, error) {
	return f(ctx, env)
}
