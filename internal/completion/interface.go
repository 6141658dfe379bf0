// internal/completion/interface.go
package completion

import (
	"context"
	"errors"
)

// ErrEmptyOutput is returned when a provider finishes without producing text.
var ErrEmptyOutput = errors.New("completion produced no output")

// Request is one unit of work handed to the completion subsystem.
type Request struct {
	Role         string // role name, e.g. "frontend"
	SystemPrompt string
	Prompt       string
	WorkDir      string // project directory the work should happen in
}

// Completer performs the work described by a prompt and reports back in
// natural language. Side effects (editing files, checking off ledger
// tasks) are the implementation's business.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	// ProviderName returns the name of the backing provider.
	ProviderName() string
}

// Func adapts a plain function to the Completer interface.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Complete(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

func (f Func) ProviderName() string { return "func" }
