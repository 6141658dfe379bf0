// internal/completion/process.go
package completion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// ProcessCompleter runs an external command per request. The prompt is
// written to stdin, context is passed through A2A_* environment variables,
// and stdout becomes the reply.
type ProcessCompleter struct {
	command string
	args    []string
	timeout time.Duration
	env     []string
}

// ProcessOption configures a ProcessCompleter.
type ProcessOption func(*ProcessCompleter)

// WithTimeout bounds each run. Zero means the request context alone decides.
func WithTimeout(d time.Duration) ProcessOption {
	return func(p *ProcessCompleter) {
		p.timeout = d
	}
}

// WithEnv adds KEY=VALUE pairs to the child environment.
func WithEnv(kv ...string) ProcessOption {
	return func(p *ProcessCompleter) {
		p.env = append(p.env, kv...)
	}
}

// NewProcessCompleter creates a completer that shells out to command.
func NewProcessCompleter(command string, args []string, opts ...ProcessOption) (*ProcessCompleter, error) {
	if command == "" {
		return nil, errors.New("completion command is required for the process provider")
	}
	p := &ProcessCompleter{command: command, args: args}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *ProcessCompleter) ProviderName() string {
	return "process"
}

func (p *ProcessCompleter) Complete(ctx context.Context, req Request) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.command, p.args...)
	// Grandchildren may hold stdout open after the command is killed.
	cmd.WaitDelay = time.Second
	if req.WorkDir != "" {
		if info, err := os.Stat(req.WorkDir); err == nil && info.IsDir() {
			cmd.Dir = req.WorkDir
		} else {
			log.Warnf("Completion work dir %q is not a directory, running in current directory", req.WorkDir)
		}
	}
	cmd.Env = append(cmd.Environ(), p.env...)
	cmd.Env = append(cmd.Env,
		"A2A_ROLE="+req.Role,
		"A2A_PROJECT_PATH="+req.WorkDir,
		"A2A_SYSTEM_PROMPT="+req.SystemPrompt,
	)
	cmd.Stdin = strings.NewReader(req.Prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	log.WithFields(log.Fields{
		"command":     p.command,
		"role":        req.Role,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Completion process finished")

	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("completion process %s: %w", p.command, ctx.Err())
		}
		return "", fmt.Errorf("completion process %s failed: %v. Stderr: %s", p.command, err, strings.TrimSpace(stderr.String()))
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", ErrEmptyOutput
	}
	return out, nil
}
