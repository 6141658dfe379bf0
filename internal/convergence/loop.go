// internal/convergence/loop.go
package convergence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kathir-ks/a2a-ledger/internal/ledger"
	"github.com/kathir-ks/a2a-ledger/internal/observability"
	"github.com/kathir-ks/a2a-ledger/internal/repository"
	"github.com/kathir-ks/a2a-ledger/internal/roles"
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
	log "github.com/sirupsen/logrus"
)

// Terminal loop errors. Dispatch failures wrap both ErrDispatch and the
// transport sentinel from pkg/a2a.
var (
	ErrNoWork   = errors.New("no tasks for this role in the ledger")
	ErrStalled  = errors.New("ledger made no progress")
	ErrDocument = errors.New("ledger unreadable")
	ErrDispatch = errors.New("dispatch failed")
)

// Defaults applied to zero-valued Loop fields.
const (
	DefaultPause      = 3 * time.Second
	DefaultStallLimit = 5
)

// State names where the loop is, or where it ended.
type State string

const (
	StateChecking    State = "checking"
	StateDispatching State = "dispatching"
	StateConverged   State = "converged"
	StateFailed      State = "failed"
	StateStalled     State = "stalled"
	StateNoWork      State = "no_work"
	StateCanceled    State = "canceled"
)

// Dispatcher sends one envelope and waits for the reply.
// agentruntime.Client satisfies it.
type Dispatcher interface {
	SendTask(ctx context.Context, baseURL string, env a2a.TaskEnvelope) (*a2a.TaskResponse, error)
}

// Report summarizes a finished run.
type Report struct {
	Role        string
	Rounds      int // CHECKING passes
	Dispatched  int
	LastPending int
	State       State
}

// Loop drives one role's agent until its ledger sections are all checked.
// The ledger is re-read from disk on every round; the loop keeps no other
// coordination state.
type Loop struct {
	Profile     *roles.Profile
	Client      Dispatcher
	BaseURL     string
	ProjectPath string
	LedgerPath  string
	PlanPath    string

	Pause      time.Duration // between a reply and the next check
	StallLimit int           // no-progress rounds tolerated
	MaxRounds  int           // 0 means unbounded
	MaxDepth   int           // deepest heading level matched

	// Locker, when set, makes the (ledger, role) pair exclusive across
	// drivers for the duration of each check-and-dispatch round.
	Locker  repository.Locker
	LockTTL time.Duration

	// OnReply receives the text of every completed dispatch.
	OnReply func(reply string)
}

func (l *Loop) validate() error {
	switch {
	case l.Profile == nil:
		return errors.New("convergence: role profile is required")
	case l.Client == nil:
		return errors.New("convergence: dispatcher is required")
	case l.BaseURL == "":
		return errors.New("convergence: agent base URL is required")
	case l.LedgerPath == "":
		return errors.New("convergence: ledger path is required")
	}
	return nil
}

// LockKey identifies the ownership lock for a ledger and role.
func LockKey(ledgerPath, role string) string {
	return "ledger:" + ledgerPath + ":" + role
}

// Run loops until the role converges, fails, stalls or ctx ends.
func (l *Loop) Run(ctx context.Context) (Report, error) {
	report := Report{State: StateChecking}
	if err := l.validate(); err != nil {
		report.State = StateFailed
		return report, err
	}
	role := l.Profile.Name
	report.Role = role

	pause := l.Pause
	if pause <= 0 {
		pause = DefaultPause
	}
	stallLimit := l.StallLimit
	if stallLimit <= 0 {
		stallLimit = DefaultStallLimit
	}

	logger := log.WithFields(log.Fields{"role": role, "ledger": l.LedgerPath})
	logger.Warn("Ledger edits from other roles are not serialized with this driver")

	var prog progress
	for {
		if err := ctx.Err(); err != nil {
			report.State = StateCanceled
			return report, err
		}
		if l.MaxRounds > 0 && report.Rounds >= l.MaxRounds {
			report.State = StateStalled
			return report, fmt.Errorf("%w: gave up after %d rounds", ErrStalled, report.Rounds)
		}

		report.Rounds++
		report.State = StateChecking
		done, err := l.round(ctx, logger, &report, &prog, stallLimit)
		if err != nil || done {
			return report, err
		}

		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			report.State = StateCanceled
			return report, ctx.Err()
		case <-timer.C:
		}
	}
}

// progress tracks how long the pending set has stayed the same.
type progress struct {
	fingerprint string
	stall       int
}

// round performs one CHECKING pass and, when tasks are pending, one
// dispatch. It holds the ownership lock for both.
func (l *Loop) round(ctx context.Context, logger *log.Entry, report *Report, prog *progress, stallLimit int) (bool, error) {
	if l.Locker != nil {
		ttl := l.LockTTL
		if ttl <= 0 {
			ttl = 10 * time.Minute
		}
		unlock, err := l.Locker.Lock(ctx, LockKey(l.LedgerPath, l.Profile.Name), ttl)
		if err != nil {
			if ctx.Err() != nil {
				report.State = StateCanceled
				return true, ctx.Err()
			}
			report.State = StateFailed
			return true, fmt.Errorf("acquire ledger ownership: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				logger.Warnf("Releasing ledger ownership: %v", err)
			}
		}()
	}

	res := ledger.ScanFile(l.LedgerPath, l.Profile.Matcher(), l.MaxDepth)
	observability.SetPendingTasks(l.Profile.Name, len(res.Tasks))

	switch res.Outcome {
	case ledger.OutcomeAllComplete:
		logger.Infof("All %d %s tasks are complete", res.Total, l.Profile.Label)
		report.LastPending = 0
		report.State = StateConverged
		return true, nil

	case ledger.OutcomeNoMatchingSection:
		report.State = StateNoWork
		return true, fmt.Errorf("%w: no %s section with tasks in %s", ErrNoWork, l.Profile.Label, l.LedgerPath)

	case ledger.OutcomeDocumentError:
		prog.stall++
		observability.SetStallRounds(l.Profile.Name, prog.stall)
		logger.Warnf("Cannot read ledger (%d/%d): %v", prog.stall, stallLimit, res.Err)
		if prog.stall >= stallLimit {
			report.State = StateFailed
			return true, fmt.Errorf("%w: %v", ErrDocument, res.Err)
		}
		return false, nil
	}

	report.LastPending = len(res.Tasks)
	fp := ledger.Fingerprint(res.Tasks)
	if fp == prog.fingerprint {
		prog.stall++
	} else {
		prog.stall = 0
	}
	prog.fingerprint = fp
	observability.SetStallRounds(l.Profile.Name, prog.stall)
	if prog.stall >= stallLimit {
		report.State = StateStalled
		return true, fmt.Errorf("%w: %d pending %s tasks unchanged for %d rounds", ErrStalled, len(res.Tasks), l.Profile.Label, prog.stall)
	}

	logger.Infof("Found %d uncompleted %s tasks (%d/%d done)", len(res.Tasks), l.Profile.Label, res.Completed, res.Total)
	report.State = StateDispatching
	reply, err := l.dispatch(ctx, res.Tasks)
	report.Dispatched++
	if err != nil {
		if ctx.Err() != nil {
			report.State = StateCanceled
			return true, ctx.Err()
		}
		report.State = StateFailed
		return true, err
	}
	if l.OnReply != nil {
		l.OnReply(reply)
	}
	return false, nil
}

func (l *Loop) dispatch(ctx context.Context, tasks []ledger.Task) (string, error) {
	text, err := l.Profile.RenderDispatchPrompt(roles.PromptData{
		ProjectPath: l.ProjectPath,
		PlanFile:    l.PlanPath,
		LedgerFile:  l.LedgerPath,
		TaskList:    l.Profile.FormatTaskList(tasks),
	})
	if err != nil {
		return "", err
	}
	env := a2a.NewTextEnvelope(uuid.NewString(), a2a.RoleUser, text)

	start := time.Now()
	resp, err := l.Client.SendTask(ctx, l.BaseURL, env)
	if err == nil {
		var reply string
		if reply, err = a2a.ExtractReply(resp); err == nil {
			observability.RecordDispatch(l.Profile.Name, "completed", time.Since(start))
			return reply, nil
		}
	}
	observability.RecordDispatch(l.Profile.Name, "failed", time.Since(start))
	return "", fmt.Errorf("%w: %w", ErrDispatch, err)
}
