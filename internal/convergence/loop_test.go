package convergence_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kathir-ks/a2a-ledger/internal/agentruntime"
	"github.com/kathir-ks/a2a-ledger/internal/convergence"
	"github.com/kathir-ks/a2a-ledger/internal/repository/memory"
	"github.com/kathir-ks/a2a-ledger/internal/roles"
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenario = `# Project Tasks

## Frontend Tasks
- [ ] Build login form
- [x] Set up router

## Backend Tasks
- [ ] Add auth endpoint
`

// fakeAgent answers every dispatch and optionally edits the ledger first.
type fakeAgent struct {
	mu    sync.Mutex
	texts []string
	act   func(n int) (*a2a.TaskResponse, error)
}

func (f *fakeAgent) SendTask(ctx context.Context, baseURL string, env a2a.TaskEnvelope) (*a2a.TaskResponse, error) {
	f.mu.Lock()
	f.texts = append(f.texts, env.Message.Text())
	n := len(f.texts)
	f.mu.Unlock()
	if f.act != nil {
		resp, err := f.act(n)
		if resp != nil {
			resp.ID = env.ID
		}
		return resp, err
	}
	return a2a.NewCompletedResponse(env, "nothing done"), nil
}

func (f *fakeAgent) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}

func writeLedger(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func checkOff(t *testing.T, path, task string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	updated := strings.Replace(string(data), "- [ ] "+task, "- [x] "+task, 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
}

func newLoop(t *testing.T, role, ledgerPath string, client convergence.Dispatcher) *convergence.Loop {
	t.Helper()
	profile, err := roles.Lookup(role)
	require.NoError(t, err)
	return &convergence.Loop{
		Profile:     profile,
		Client:      client,
		BaseURL:     "http://agent.test",
		ProjectPath: filepath.Dir(ledgerPath),
		LedgerPath:  ledgerPath,
		PlanPath:    filepath.Join(filepath.Dir(ledgerPath), "plan.md"),
		Pause:       time.Millisecond,
		StallLimit:  3,
	}
}

func TestRun_AlreadyComplete(t *testing.T) {
	path := writeLedger(t, "## Frontend\n- [x] a\n- [X] b\n")
	agent := &fakeAgent{}

	report, err := newLoop(t, roles.Frontend, path, agent).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, convergence.StateConverged, report.State)
	assert.Equal(t, 0, report.Dispatched)
	assert.Equal(t, 1, report.Rounds)
	assert.Equal(t, 0, agent.calls())
}

func TestRun_ConvergesAsAgentChecksOff(t *testing.T) {
	path := writeLedger(t, "## Backend Tasks\n- [ ] one\n- [ ] two\n\n## Frontend\n- [ ] untouched\n")
	pending := []string{"one", "two"}
	agent := &fakeAgent{}
	agent.act = func(n int) (*a2a.TaskResponse, error) {
		checkOff(t, path, pending[n-1])
		return a2a.NewCompletedResponse(a2a.TaskEnvelope{}, "did "+pending[n-1]), nil
	}

	var replies []string
	loop := newLoop(t, roles.Backend, path, agent)
	loop.OnReply = func(r string) { replies = append(replies, r) }

	report, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, convergence.StateConverged, report.State)
	assert.Equal(t, 2, report.Dispatched)
	assert.Equal(t, 3, report.Rounds)
	assert.Equal(t, []string{"did one", "did two"}, replies)

	// First payload lists both tasks, second only the remaining one.
	require.Equal(t, 2, agent.calls())
	assert.Contains(t, agent.texts[0], "- one\n- two")
	assert.NotContains(t, agent.texts[0], "untouched")
	assert.Contains(t, agent.texts[1], "- two")
	assert.NotContains(t, agent.texts[1], "- one")
}

func TestRun_PayloadCarriesProjectPath(t *testing.T) {
	path := writeLedger(t, scenario)
	agent := &fakeAgent{act: func(n int) (*a2a.TaskResponse, error) {
		return nil, a2a.ErrConnectionLost
	}}

	loop := newLoop(t, roles.Frontend, path, agent)
	_, err := loop.Run(context.Background())
	require.Error(t, err)

	require.Equal(t, 1, agent.calls())
	payload := roles.ParsePayload(agent.texts[0])
	assert.Equal(t, filepath.Dir(path), payload.ProjectPath)
	assert.Contains(t, agent.texts[0], "Uncompleted frontend tasks:\n\n- Build login form")
	assert.NotContains(t, agent.texts[0], "Add auth endpoint")
	assert.NotContains(t, agent.texts[0], "Set up router")
}

func TestRun_Stalls(t *testing.T) {
	path := writeLedger(t, scenario)
	agent := &fakeAgent{}

	report, err := newLoop(t, roles.Frontend, path, agent).Run(context.Background())
	require.ErrorIs(t, err, convergence.ErrStalled)
	assert.Equal(t, convergence.StateStalled, report.State)
	assert.Equal(t, 3, report.Dispatched)
	assert.Equal(t, 4, report.Rounds)
	assert.Equal(t, 1, report.LastPending)
}

func TestRun_ProgressResetsStall(t *testing.T) {
	// Tasks are rewritten each round, so the pending set keeps changing
	// even though the count never drops.
	path := writeLedger(t, "## Frontend\n- [ ] task 0\n")
	agent := &fakeAgent{}
	agent.act = func(n int) (*a2a.TaskResponse, error) {
		if n >= 6 {
			require.NoError(t, os.WriteFile(path, []byte("## Frontend\n- [x] done\n"), 0o644))
		} else {
			require.NoError(t, os.WriteFile(path, []byte("## Frontend\n- [ ] task "+strings.Repeat("i", n)+"\n"), 0o644))
		}
		return a2a.NewCompletedResponse(a2a.TaskEnvelope{}, "ok"), nil
	}

	report, err := newLoop(t, roles.Frontend, path, agent).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, report.Dispatched)
}

func TestRun_NoMatchingSection(t *testing.T) {
	for name, content := range map[string]string{
		"no heading":    "## Backend\n- [ ] api\n",
		"empty section": "## Frontend\nSome notes, no checkboxes.\n",
		"too deep":      "#### Frontend\n- [ ] deep\n",
	} {
		t.Run(name, func(t *testing.T) {
			agent := &fakeAgent{}
			report, err := newLoop(t, roles.Frontend, writeLedger(t, content), agent).Run(context.Background())
			require.ErrorIs(t, err, convergence.ErrNoWork)
			assert.Equal(t, convergence.StateNoWork, report.State)
			assert.Equal(t, 0, agent.calls())
		})
	}
}

func TestRun_MissingLedger(t *testing.T) {
	agent := &fakeAgent{}
	loop := newLoop(t, roles.Frontend, filepath.Join(t.TempDir(), "missing.md"), agent)

	report, err := loop.Run(context.Background())
	require.ErrorIs(t, err, convergence.ErrDocument)
	assert.Equal(t, 3, report.Rounds)
	assert.Equal(t, 0, agent.calls())
}

func TestRun_LedgerAppearsAfterError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.md")
	loop := newLoop(t, roles.Frontend, path, &fakeAgent{})
	loop.Pause = 40 * time.Millisecond

	go func() {
		time.Sleep(10 * time.Millisecond)
		os.WriteFile(path, []byte("## Frontend\n- [x] done\n"), 0o644)
	}()

	report, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, convergence.StateConverged, report.State)
}

func TestRun_DispatchErrors(t *testing.T) {
	cases := map[string]struct {
		act  func(int) (*a2a.TaskResponse, error)
		want error
	}{
		"connection lost": {
			act:  func(int) (*a2a.TaskResponse, error) { return nil, a2a.ErrConnectionLost },
			want: a2a.ErrConnectionLost,
		},
		"timeout": {
			act:  func(int) (*a2a.TaskResponse, error) { return nil, a2a.ErrTimeout },
			want: a2a.ErrTimeout,
		},
		"failed task": {
			act: func(int) (*a2a.TaskResponse, error) {
				return a2a.NewFailedResponse(a2a.TaskEnvelope{}, "completion produced no output"), nil
			},
			want: a2a.ErrNoReply,
		},
		"empty messages": {
			act: func(int) (*a2a.TaskResponse, error) {
				return &a2a.TaskResponse{Status: a2a.TaskStatus{State: a2a.TaskStateCompleted}}, nil
			},
			want: a2a.ErrNoReply,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			agent := &fakeAgent{act: tc.act}
			report, err := newLoop(t, roles.Frontend, writeLedger(t, scenario), agent).Run(context.Background())
			require.ErrorIs(t, err, convergence.ErrDispatch)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, convergence.StateFailed, report.State)
			assert.Equal(t, 1, report.Dispatched)
		})
	}
}

func TestRun_UnreachableAgent(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	loop := newLoop(t, roles.Frontend, writeLedger(t, scenario), agentruntime.NewHTTPClient(agentruntime.Options{DispatchTimeout: 2 * time.Second}))
	loop.BaseURL = url

	start := time.Now()
	report, err := loop.Run(context.Background())
	require.ErrorIs(t, err, convergence.ErrDispatch)
	assert.ErrorIs(t, err, a2a.ErrConnectionLost)
	assert.Equal(t, convergence.StateFailed, report.State)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRun_MaxRounds(t *testing.T) {
	loop := newLoop(t, roles.Frontend, writeLedger(t, scenario), &fakeAgent{})
	loop.StallLimit = 100
	loop.MaxRounds = 2

	report, err := loop.Run(context.Background())
	require.ErrorIs(t, err, convergence.ErrStalled)
	assert.Equal(t, 2, report.Rounds)
	assert.Equal(t, 2, report.Dispatched)
}

func TestRun_CanceledDuringPause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	agent := &fakeAgent{}
	agent.act = func(int) (*a2a.TaskResponse, error) {
		cancel()
		return a2a.NewCompletedResponse(a2a.TaskEnvelope{}, "ok"), nil
	}
	loop := newLoop(t, roles.Frontend, writeLedger(t, scenario), agent)
	loop.Pause = time.Hour

	report, err := loop.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, convergence.StateCanceled, report.State)
	assert.Equal(t, 1, report.Dispatched)
}

func TestRun_OwnershipLock(t *testing.T) {
	path := writeLedger(t, "## Frontend\n- [x] done\n")
	locker := memory.NewLocker()

	unlock, err := locker.Lock(context.Background(), convergence.LockKey(path, roles.Frontend), time.Minute)
	require.NoError(t, err)

	loop := newLoop(t, roles.Frontend, path, &fakeAgent{})
	loop.Locker = locker

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	report, err := loop.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, convergence.StateCanceled, report.State)

	// Another role on the same ledger is not blocked.
	other := newLoop(t, roles.Backend, writeLedger(t, "## Backend\n- [x] ok\n"), &fakeAgent{})
	other.LedgerPath = path
	other.Locker = locker
	_, err = other.Run(context.Background())
	require.ErrorIs(t, err, convergence.ErrNoWork)

	require.NoError(t, unlock(context.Background()))
	report, err = loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, convergence.StateConverged, report.State)
}

func TestRun_Validation(t *testing.T) {
	_, err := (&convergence.Loop{}).Run(context.Background())
	assert.Error(t, err)

	loop := newLoop(t, roles.Frontend, writeLedger(t, scenario), &fakeAgent{})
	loop.BaseURL = ""
	_, err = loop.Run(context.Background())
	assert.Error(t, err)
	assert.False(t, errors.Is(err, convergence.ErrDispatch))
}
